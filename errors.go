package luabridge

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the integer result code returned across the boundary.
// The values match the interpreter's own LUA_OK/LUA_ERR* constants so that
// foreign callers can compare them against the published numbers.
type Status int

const (
	StatusOK        Status = 0
	StatusYield     Status = 1
	StatusErrRun    Status = 2
	StatusErrSyntax Status = 3
	StatusErrMem    Status = 4
	StatusErrErr    Status = 5
)

func (st Status) String() string {
	switch st {
	case StatusOK:
		return "ok"
	case StatusYield:
		return "yield"
	case StatusErrRun:
		return "runtime error"
	case StatusErrSyntax:
		return "syntax error"
	case StatusErrMem:
		return "memory error"
	case StatusErrErr:
		return "error in error handling"
	default:
		return fmt.Sprintf("status(%d)", int(st))
	}
}

// Sentinel errors. Use [errors.Is] to match an [*Error] by status:
//
//	if errors.Is(err, luabridge.ErrSyntax) { ... }
var (
	ErrSyntax  = &Error{Status: StatusErrSyntax}
	ErrRuntime = &Error{Status: StatusErrRun}
	ErrMemory  = &Error{Status: StatusErrMem}

	ErrClosed            = errors.New("luabridge: state is closed")
	ErrInvalidRef        = errors.New("luabridge: invalid reference")
	ErrFunctionTableFull = errors.New("luabridge: function table full")
	ErrUnknownFunction   = errors.New("luabridge: function is not registered")
	ErrStackOverflow     = errors.New("luabridge: stack overflow")
	ErrUnknownLayout     = errors.New("luabridge: unknown userdata layout")
	ErrCallbackState     = errors.New("luabridge: operation not allowed during a callback")
)

// Error is a failure reported by the interpreter at the boundary.
//
// Message is the textual form of the error value the interpreter produced;
// it is what gets copied into an [ErrorBuffer].
type Error struct {
	Status  Status
	Op      string // "load", "pcall", "resume", "field", ...
	Chunk   string // chunk name for load errors
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	var b strings.Builder
	b.WriteString("luabridge: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Status.String())
	if e.Chunk != "" {
		b.WriteString(" in ")
		b.WriteString(e.Chunk)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same status.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Status == t.Status
	}
	return false
}

// StatusOf returns the status carried by err.
// A nil error is StatusOK; errors that are not an [*Error] are runtime errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusErrRun
}

// ArgError is returned by the Check family when an argument does not have the
// expected type. Returned from a [Func], it raises the conventional
// "bad argument" error inside the interpreter.
type ArgError struct {
	Arg      int
	Func     string // name of the called function, if known
	Expected string // empty for non-type argument errors
	Got      string
	Msg      string
}

func (e *ArgError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = fmt.Sprintf("%s expected, got %s", e.Expected, e.Got)
	}
	if e.Func == "" {
		return fmt.Sprintf("bad argument #%d (%s)", e.Arg, msg)
	}
	return fmt.Sprintf("bad argument #%d to '%s' (%s)", e.Arg, e.Func, msg)
}

// classify maps an interpreter message to a status for the given stage.
func classify(defaultStatus Status, msg string) Status {
	switch msg {
	case "not enough memory":
		return StatusErrMem
	case "error in error handling":
		return StatusErrErr
	}
	return defaultStatus
}
