package luabridge

import (
	"fmt"

	"go.uber.org/zap"
	"zombiezen.com/go/lua"
)

// errorAtTop builds an *Error from the error value on top of the stack.
// The value stays on the stack.
func (s *State) errorAtTop(status Status, op, chunk string, cause error) *Error {
	msg := s.errorMessage(-1)
	e := &Error{
		Status:  classify(status, msg),
		Op:      op,
		Chunk:   chunk,
		Message: msg,
		Cause:   cause,
	}
	s.vm.log.Debug("lua error",
		zap.String("op", op),
		zap.Stringer("status", e.Status),
		zap.String("message", msg))
	return e
}

// errorMessage renders an error value. Strings and numbers are used as-is;
// other values are described by type.
func (s *State) errorMessage(idx int) string {
	l := s.l
	switch l.Type(idx) {
	case lua.TypeString, lua.TypeNumber:
		msg, _ := l.ToString(idx)
		return msg
	case lua.TypeNone:
		return ""
	default:
		return fmt.Sprintf("(error object is a %s value)", l.Type(idx))
	}
}

// ----------------------------------------------------------------------------
// Loading
// ----------------------------------------------------------------------------

// Load compiles a text chunk and pushes it as a function.
// On failure the error message is pushed instead and a syntax *Error is
// returned.
func (s *State) Load(src []byte, chunkName string) error {
	return s.LoadMode(src, chunkName, "t")
}

// LoadString is Load for a string source.
func (s *State) LoadString(src, chunkName string) error {
	return s.loadString(src, chunkName, "t")
}

// LoadMode is Load with an explicit mode: "t" for text, "b" for precompiled
// binary chunks, "bt" for both.
func (s *State) LoadMode(src []byte, chunkName, mode string) error {
	return s.loadString(string(src), chunkName, mode)
}

func (s *State) loadString(src, chunkName, mode string) error {
	s.ensure(1)
	if err := s.l.LoadString(src, chunkName, mode); err != nil {
		return s.errorAtTop(StatusErrSyntax, "load", chunkName, err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Calling
// ----------------------------------------------------------------------------

// PCall calls the function below the nArgs arguments on top of the stack.
// On success the function and arguments are replaced by nResults values
// (all of them for MultRet). On failure they are replaced by the error value
// and a runtime *Error is returned.
func (s *State) PCall(nArgs, nResults int) error {
	return s.PCallHandler(nArgs, nResults, 0)
}

// PCallHandler is PCall with a message handler at stack index msgHandler
// (0 for none). The handler sees the original error value and its result
// becomes the error value.
func (s *State) PCallHandler(nArgs, nResults, msgHandler int) error {
	if nResults != MultRet {
		s.ensure(nResults)
	}
	if err := s.l.Call(nArgs, nResults, msgHandler); err != nil {
		return s.errorAtTop(StatusErrRun, "pcall", "", err)
	}
	return nil
}

// ExecFunc calls the function below the nArgs arguments on top of the stack.
// On failure the error message is copied into buf, the error value is
// popped and the failure status is returned.
func (s *State) ExecFunc(nArgs, nResults int, buf *ErrorBuffer) Status {
	if err := s.PCall(nArgs, nResults); err != nil {
		return s.extract(err, buf)
	}
	return StatusOK
}

// DoBuffer loads and runs a text chunk, discarding its results. Either
// failure copies the message into buf and returns its status; the stack is
// left as it was found.
func (s *State) DoBuffer(src []byte, chunkName string, buf *ErrorBuffer) Status {
	if err := s.Load(src, chunkName); err != nil {
		return s.extract(err, buf)
	}
	return s.ExecFunc(0, 0, buf)
}

// extract copies the message of err into buf and pops the error value.
func (s *State) extract(err error, buf *ErrorBuffer) Status {
	buf.set(s.errorMessage(-1), s.vm.cfg.LegacyErrorCopy)
	s.l.Pop(1)
	return StatusOf(err)
}

// DoString loads and runs src, discarding its results.
// The stack is left as it was found.
func (s *State) DoString(src, chunkName string) error {
	if err := s.LoadString(src, chunkName); err != nil {
		s.l.Pop(1)
		return err
	}
	if err := s.PCall(0, 0); err != nil {
		s.l.Pop(1)
		return err
	}
	return nil
}

// Eval runs src and returns its results converted with ToAny.
//
//	vals, err := s.Eval(`return 1 + 1, "x"`, "=eval") // [2 "x"]
func (s *State) Eval(src, chunkName string) ([]any, error) {
	top := s.l.Top()
	if err := s.LoadString(src, chunkName); err != nil {
		s.l.SetTop(top)
		return nil, err
	}
	if err := s.PCall(0, MultRet); err != nil {
		s.l.SetTop(top)
		return nil, err
	}
	return s.popResults(top)
}

// RunFunc calls the function on top of the stack with args converted by
// PushAny. Results are left on the stack as with PCall.
func (s *State) RunFunc(nResults int, args ...any) error {
	if s.l.Top() == 0 {
		return fmt.Errorf("luabridge: run: expected function, got no value")
	}
	if !s.l.IsFunction(-1) {
		return fmt.Errorf("luabridge: run: expected function, got %s", s.TypeName(-1))
	}
	if !s.l.CheckStack(len(args)) {
		return ErrStackOverflow
	}
	top := s.l.Top()
	for i, arg := range args {
		if err := s.PushAny(arg); err != nil {
			s.l.SetTop(top)
			return fmt.Errorf("luabridge: run: argument %d: %w", i+1, err)
		}
	}
	return s.PCall(len(args), nResults)
}

// CallGlobal calls the global function name with args.
// Results are left on the stack as with PCall.
func (s *State) CallGlobal(name string, nResults int, args ...any) error {
	if _, err := s.PushGlobal(name); err != nil {
		s.l.Pop(1)
		return err
	}
	if !s.l.IsFunction(-1) {
		tp := s.TypeName(-1)
		s.l.Pop(1)
		return fmt.Errorf("luabridge: call %s: not a function (a %s value)", name, tp)
	}
	if err := s.RunFunc(nResults, args...); err != nil {
		if _, ok := err.(*Error); !ok {
			s.l.Pop(1)
		}
		return err
	}
	return nil
}

// popResults converts the values above top and removes them.
func (s *State) popResults(top int) ([]any, error) {
	n := s.l.Top() - top
	results := make([]any, n)
	for i := range n {
		v, err := s.ToAny(top + 1 + i)
		if err != nil {
			for _, r := range results[:i] {
				releaseAny(r)
			}
			s.l.SetTop(top)
			return nil, err
		}
		results[i] = v
	}
	s.l.SetTop(top)
	return results, nil
}
