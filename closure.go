package luabridge

import (
	"fmt"
)

// Closure is a Lua function held by the host. Its upvalues are preserved.
//
// A Closure keeps its function alive until Release is called. It may be
// called from host code at any time, including from inside a foreign
// function running on the same interpreter.
//
//	s.DoString(`function counter() local n = 0 return function() n = n + 1 return n end end`, "=c")
//	s.PushGlobal("counter")
//	s.PCall(0, 1)
//	next, _ := s.ClosureAt(-1)
//	s.Pop(1)
//	defer next.Release()
//	next.Call() // [1]
//	next.Call() // [2]
type Closure struct {
	vm  *vm
	ref Ref
}

// ClosureAt captures the function at idx.
func (s *State) ClosureAt(idx int) (*Closure, error) {
	if !s.l.IsFunction(idx) {
		return nil, fmt.Errorf("luabridge: closure: expected function, got %s", s.TypeName(idx))
	}
	s.ensure(1)
	s.l.PushValue(idx)
	return &Closure{vm: s.vm, ref: s.Ref()}, nil
}

// Call calls the function with args converted by PushAny and returns its
// results converted by ToAny. Function results are returned as *Closure
// values that the caller must release.
func (c *Closure) Call(args ...any) ([]any, error) {
	if c.vm.closed {
		return nil, ErrClosed
	}
	if c.ref == NoRef {
		return nil, ErrInvalidRef
	}
	s := c.vm.active
	top := s.l.Top()
	if !s.l.CheckStack(len(args) + 1) {
		return nil, ErrStackOverflow
	}
	s.PushRef(c.ref)
	if err := s.RunFunc(MultRet, args...); err != nil {
		s.l.SetTop(top)
		return nil, err
	}
	return s.popResults(top)
}

// Push pushes the function onto the stack of the innermost active state.
func (c *Closure) Push() error {
	if c.vm.closed {
		return ErrClosed
	}
	if c.ref == NoRef {
		return ErrInvalidRef
	}
	s := c.vm.active
	s.PushRef(c.ref)
	return nil
}

// Release lets the function be collected. It is safe to call more than once.
func (c *Closure) Release() {
	if c.ref == NoRef {
		return
	}
	if !c.vm.closed {
		c.vm.active.Unref(c.ref)
	}
	c.ref = NoRef
}
