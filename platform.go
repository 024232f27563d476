package serial

import (
	"runtime"
	"strings"
	"sync/atomic"
)

// currentPlatform is captured once at package init from runtime.GOOS
// and shared by every Manager; NewManager does not detect the platform
// again.
var currentPlatform = detectPlatform(runtime.GOOS)

func detectPlatform(goos string) Platform {
	name := strings.ToLower(goos)
	switch {
	case strings.Contains(name, "linux"):
		return PlatformLinux
	case strings.Contains(name, "windows"):
		return PlatformWindows
	case strings.Contains(name, "solaris"), strings.Contains(name, "sunos"):
		return PlatformSolaris
	case strings.Contains(name, "darwin"), strings.Contains(name, "mac os"), strings.Contains(name, "macos"):
		return PlatformMacOSX
	default:
		return PlatformUnknown
	}
}

// OSType returns the integer platform constant for the running host,
// (Linux=1, Windows=2, Solaris=3, MacOSX=4).
func OSType() Platform {
	return currentPlatform
}

// debugEnabled is the process-wide debug flag. Only Debug reads it;
// the façade's logging (see SetLogger) and the native adapters do not
// consult it.
var debugEnabled atomic.Bool

// SetDebug sets the process-wide debug flag reported by Debug. It does
// not change what the façade or the native adapters log.
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

// Debug reports the current process-wide debug flag.
func Debug() bool {
	return debugEnabled.Load()
}
