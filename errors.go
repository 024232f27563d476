package serial

import (
	"errors"
	"fmt"
)

// Error wraps an optional message around an underlying cause, so
// call sites that expect a formatted "msg: cause" string keep working.
type Error struct {
	msg string
	err error
}

func (e Error) Error() string {
	if e.msg != "" {
		if e.err != nil {
			return e.msg + ": " + e.err.Error()
		}
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e Error) Unwrap() error {
	return e.err
}

func wrapErr(msg string, e error) error {
	if e == nil {
		return nil
	}
	return Error{msg: msg, err: e}
}

// Error kinds for the façade's error contract. Compared with errors.Is; callers should
// never type-assert on these directly since IOError wraps an adapter
// message underneath.
var (
	ErrNullArg                 = errors.New("serial: required argument was nil")
	ErrInvalidArg              = errors.New("serial: argument out of domain")
	ErrPlatformConstraint      = errors.New("serial: operation not supported on this platform")
	ErrUnknownHandle           = errors.New("serial: handle not registered")
	ErrUnknownListener         = errors.New("serial: listener not registered")
	ErrAlreadyHasDataListener  = errors.New("serial: data listener already registered for this handle")
	ErrAlreadyHasEventListener = errors.New("serial: event listener already registered for this handle")
	ErrMustUnregisterData      = errors.New("serial: close refused, data listener still registered")
	ErrMustUnregisterEvent     = errors.New("serial: close refused, event listener still registered")
	ErrIO                      = errors.New("serial: adapter returned an error")
	ErrEOF                     = errors.New("serial: port reached end of stream")
	ErrTimeout                 = errors.New("serial: operation timed out")
)

// ioError surfaces a negative adapter status code as ErrIO, with the
// mapped human message from the Error Mapper (errormap.go) attached.
type ioError struct {
	code int
	msg  string
}

func (e *ioError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("serial: adapter error %d: %s", e.code, e.msg)
	}
	return fmt.Sprintf("serial: adapter error %d", e.code)
}

func (e *ioError) Unwrap() error { return ErrIO }

func newIOError(code int) error {
	return &ioError{code: code, msg: mapErrorCode(code)}
}
