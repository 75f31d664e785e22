package main

import (
	"go.uber.org/zap"

	"github.com/feather-lang/luabridge"
)

// dispatchState is the per-handle bookkeeping for calls into the host
// dispatcher. It holds no C values.
type dispatchState struct {
	main *luabridge.State

	// Callback states of the dispatches currently running, innermost last.
	// Stack operations go to the innermost one.
	views viewStack[*luabridge.State]

	// Error marked by LuaError/LuaTypeError during a dispatch. It is raised
	// when the dispatch returns.
	pending error
}

// cur returns the state C code currently operates on.
func (d *dispatchState) cur() *luabridge.State {
	return d.views.top(d.main)
}

// dispatching reports whether a host dispatch is running.
func (d *dispatchState) dispatching() bool { return d.views.depth() > 0 }

// fail records err. Inside a dispatch it becomes the pending error;
// outside it is only logged.
func (d *dispatchState) fail(op string, err error) {
	if d.dispatching() {
		if d.pending == nil {
			d.pending = err
		}
		return
	}
	d.main.Log().Debug("export call failed", zap.String("op", op), zap.Error(err))
}

// raise marks err as the error of the running dispatch. It reports false
// outside a dispatch, where there is no call to raise it from.
func (d *dispatchState) raise(op string, err error) bool {
	if !d.dispatching() {
		return false
	}
	d.fail(op, err)
	return true
}

// enter runs call with cs as the innermost view. The view and the pending
// error of the enclosing dispatch are restored even if call panics.
func (d *dispatchState) enter(cs *luabridge.State, fnIndex int, call func() int) (int, error) {
	d.views.push(cs)
	saved := d.pending
	d.pending = nil
	defer func() {
		d.pending = saved
		d.views.pop()
	}()

	n := call()
	if err := d.pending; err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, cs.RaiseError("foreign function %d failed", fnIndex)
	}
	return n, nil
}
