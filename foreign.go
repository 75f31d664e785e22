package luabridge

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"zombiezen.com/go/lua"
)

// Func is a host function callable from Lua.
//
// It reads its arguments from the stack of s (argument i at index i), pushes
// its results and returns how many there are. A non-nil error is raised as a
// Lua error at the call site instead of returning results.
//
//	add := func(s *luabridge.State) (int, error) {
//	    a, err := s.CheckInteger(1)
//	    if err != nil {
//	        return 0, err
//	    }
//	    b, err := s.CheckInteger(2)
//	    if err != nil {
//	        return 0, err
//	    }
//	    s.PushInteger(a + b)
//	    return 1, nil
//	}
type Func func(s *State) (int, error)

// FuncID identifies a Func in a [FuncTable].
type FuncID int

// funcEntry is one slot in the table.
type funcEntry struct {
	fn   Func
	refs int  // host registration plus one per live Lua function value
	held bool // host registration outstanding
}

// FuncTable stores the host functions reachable from one State.
//
// Every Lua function value created for an entry pins it; the pin is dropped
// when the value is collected. An entry is freed once it is neither pinned
// nor held by the host, so Lua can never call a freed slot.
type FuncTable struct {
	mu      sync.RWMutex
	entries []funcEntry
	free    []FuncID
	live    int
	max     int
}

// NewFuncTable creates a table holding at most limit live entries.
func NewFuncTable(limit int) *FuncTable {
	if limit <= 0 {
		limit = DefaultMaxFunctions
	}
	return &FuncTable{max: limit}
}

func (t *FuncTable) add(fn Func) (FuncID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live >= t.max {
		return 0, ErrFunctionTableFull
	}
	var id FuncID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		id = FuncID(len(t.entries))
		t.entries = append(t.entries, funcEntry{})
	}
	t.entries[id] = funcEntry{fn: fn}
	t.live++
	return id, nil
}

func (t *FuncTable) valid(id FuncID) bool {
	return id >= 0 && int(id) < len(t.entries) && t.entries[id].fn != nil
}

// Lookup returns the function stored under id.
func (t *FuncTable) Lookup(id FuncID) (Func, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.valid(id) {
		return nil, false
	}
	return t.entries[id].fn, true
}

func (t *FuncTable) retain(id FuncID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(id) {
		return false
	}
	t.entries[id].refs++
	return true
}

// release drops one count and frees the slot when none remain.
func (t *FuncTable) release(id FuncID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(id) {
		return false
	}
	e := &t.entries[id]
	e.refs--
	if e.refs > 0 {
		return false
	}
	*e = funcEntry{}
	t.free = append(t.free, id)
	t.live--
	return true
}

func (t *FuncTable) hold(id FuncID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id].held = true
	t.entries[id].refs++
}

func (t *FuncTable) unhold(id FuncID) bool {
	t.mu.Lock()
	if !t.valid(id) || !t.entries[id].held {
		t.mu.Unlock()
		return false
	}
	t.entries[id].held = false
	t.mu.Unlock()
	return t.release(id)
}

// Len returns the number of live entries.
func (t *FuncTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// IDs returns the live entry IDs in ascending order.
func (t *FuncTable) IDs() []FuncID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]FuncID, 0, t.live)
	for i, e := range t.entries {
		if e.fn != nil {
			ids = append(ids, FuncID(i))
		}
	}
	return ids
}

// reset drops every entry and returns how many were live.
func (t *FuncTable) reset() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.live
	t.entries = nil
	t.free = nil
	t.live = 0
	return n
}

// ----------------------------------------------------------------------------
// State API
// ----------------------------------------------------------------------------

// Funcs returns the function table of the state.
func (s *State) Funcs() *FuncTable { return s.vm.funcs }

// RegisterFunc stores fn and holds it on behalf of the host until
// UnregisterFunc. The returned ID can be pushed any number of times with
// PushFunctionID.
func (s *State) RegisterFunc(fn Func) (FuncID, error) {
	if fn == nil {
		return 0, fmt.Errorf("luabridge: register: nil function")
	}
	id, err := s.vm.funcs.add(fn)
	if err != nil {
		return 0, err
	}
	s.vm.funcs.hold(id)
	return id, nil
}

// UnregisterFunc drops the host hold on id. Lua function values already
// created for it keep working until they are collected.
func (s *State) UnregisterFunc(id FuncID) {
	if s.vm.funcs.unhold(id) {
		s.vm.log.Debug("function released", zap.Int("id", int(id)))
	}
}

// PushFunction pushes a Lua function that calls fn.
// The entry lives as long as the pushed value.
func (s *State) PushFunction(fn Func) (FuncID, error) {
	if fn == nil {
		return 0, fmt.Errorf("luabridge: push function: nil function")
	}
	id, err := s.vm.funcs.add(fn)
	if err != nil {
		return 0, err
	}
	s.pushTrampoline(id)
	return id, nil
}

// PushFunctionID pushes a new Lua function for a registered entry.
func (s *State) PushFunctionID(id FuncID) error {
	if _, ok := s.vm.funcs.Lookup(id); !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownFunction, id)
	}
	s.pushTrampoline(id)
	return nil
}

const pinMetatableName = "luabridge.funcpin"

// pushTrampoline pushes a closure over (id, pin). The pin is a userdata whose
// finalizer drops the count taken here.
func (s *State) pushTrampoline(id FuncID) {
	l := s.l
	s.ensure(6)
	l.PushInteger(int64(id))

	l.NewUserdataUV(1)
	l.PushInteger(int64(id))
	l.SetUserValue(-2, 1)
	if lua.NewMetatable(l, pinMetatableName) {
		l.PushClosure(0, s.vm.unpin)
		l.RawSetField(-2, "__gc")
		l.PushBoolean(false)
		l.RawSetField(-2, "__metatable")
	}
	l.SetMetatable(-2)
	s.vm.funcs.retain(id)

	l.PushClosure(2, s.vm.trampoline)
}

// releasePin is the __gc metamethod of pins.
func (v *vm) releasePin(l *lua.State) (int, error) {
	l.UserValue(1, 1)
	id, ok := l.ToInteger(-1)
	l.Pop(1)
	if ok && v.funcs.release(FuncID(id)) {
		v.log.Debug("function released", zap.Int64("id", id))
	}
	return 0, nil
}

// dispatch runs the Func named by upvalue 1 with a view of the callback stack.
func (v *vm) dispatch(l *lua.State) (int, error) {
	id, _ := l.ToInteger(lua.UpvalueIndex(1))
	fn, ok := v.funcs.Lookup(FuncID(id))
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrUnknownFunction, id)
	}
	s := &State{l: l, vm: v}
	prev := v.active
	v.active = s
	defer func() { v.active = prev }()
	return fn(s)
}

// ----------------------------------------------------------------------------
// Raising errors
// ----------------------------------------------------------------------------

// RaiseError formats an error carrying the position of the Lua code that
// called the running foreign function. Return it from a Func to raise it.
func (s *State) RaiseError(format string, args ...any) error {
	return &Error{
		Status:  StatusErrRun,
		Op:      "raise",
		Message: s.where(1) + fmt.Sprintf(format, args...),
	}
}

// TypeError reports that argument arg should have had type tname.
func (s *State) TypeError(arg int, tname string) error {
	return s.typeError(arg, tname)
}

// NewArgError reports a problem with argument arg of the running function.
func (s *State) NewArgError(arg int, msg string) error {
	e := &ArgError{Arg: arg, Msg: msg}
	s.nameArg(e)
	return e
}

// where returns "chunk:line: " for the function at the given call level.
func (s *State) where(level int) string {
	ar := s.l.Stack(level)
	if ar == nil {
		return ""
	}
	d := ar.Info("Sl")
	if d == nil || d.CurrentLine <= 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d: ", d.ShortSource, d.CurrentLine)
}

func (s *State) typeError(arg int, tname string) error {
	e := &ArgError{Arg: arg, Expected: tname, Got: s.typeNameForError(arg)}
	s.nameArg(e)
	return e
}

// nameArg fills in the called function name and adjusts for method calls.
func (s *State) nameArg(e *ArgError) {
	ar := s.l.Stack(0)
	if ar == nil {
		return
	}
	d := ar.Info("n")
	if d == nil {
		return
	}
	if d.NameWhat == "method" {
		e.Arg--
		if e.Arg == 0 {
			e.Msg = fmt.Sprintf("calling '%s' on bad self", d.Name)
			e.Expected, e.Got = "", ""
			return
		}
	}
	e.Func = d.Name
	if e.Func == "" {
		e.Func = "?"
	}
}

// typeNameForError prefers a metatable __name over the basic type name.
func (s *State) typeNameForError(idx int) string {
	l := s.l
	if l.Type(idx) == lua.TypeLightUserdata {
		return "light userdata"
	}
	switch s.GetMetafield(idx, "__name") {
	case lua.TypeNil:
	case lua.TypeString:
		name, _ := l.ToString(-1)
		l.Pop(1)
		return name
	default:
		l.Pop(1)
	}
	return l.Type(idx).String()
}
