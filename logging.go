package serial

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// loggerBox lets SetLogger swap the package logger without a data race
// against the concurrent Dispatcher/Looper goroutines reading it.
var loggerBox atomic.Pointer[zap.Logger]

func init() {
	loggerBox.Store(zap.NewNop())
}

// SetLogger installs the structured logger the Manager uses for port
// open/close and the Dispatcher uses for delivery start/stop. The
// Looper logs nothing; dropped or filtered events and background
// adapter errors are not logged. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerBox.Store(l)
}

func logger() *zap.Logger {
	return loggerBox.Load()
}
