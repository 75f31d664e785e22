package luabridge

import (
	"zombiezen.com/go/lua"
)

// The non-raw accessors may run metamethods and so may fail. On failure the
// error value is left where the result would have been.

// NewTable pushes an empty table.
func (s *State) NewTable() { s.l.CreateTable(0, 0) }

// CreateTable pushes an empty table with preallocated space.
func (s *State) CreateTable(nArr, nRec int) { s.l.CreateTable(nArr, nRec) }

// GetTable pops a key and pushes t[key] for the table at idx.
func (s *State) GetTable(idx int) (Type, error) {
	tp, err := s.l.Table(idx, 0)
	if err != nil {
		return lua.TypeNil, s.errorAtTop(StatusErrRun, "gettable", "", err)
	}
	return tp, nil
}

// GetField pushes t[k] for the table at idx.
func (s *State) GetField(idx int, k string) (Type, error) {
	tp, err := s.l.Field(idx, k, 0)
	if err != nil {
		return lua.TypeNil, s.errorAtTop(StatusErrRun, "getfield", "", err)
	}
	return tp, nil
}

// SetTable performs t[key] = value for the table at idx, with the value on
// top of the stack and the key below it. Both are popped. On failure they
// are replaced by the error value.
func (s *State) SetTable(idx int) error {
	if err := s.l.SetTable(idx, 0); err != nil {
		return s.errorAtTop(StatusErrRun, "settable", "", err)
	}
	return nil
}

// SetField pops a value and performs t[k] = value for the table at idx.
// On failure the value is replaced by the error value.
func (s *State) SetField(idx int, k string) error {
	if err := s.l.SetField(idx, k, 0); err != nil {
		return s.errorAtTop(StatusErrRun, "setfield", "", err)
	}
	return nil
}

// PushGlobal pushes the global name.
func (s *State) PushGlobal(name string) (Type, error) {
	s.ensure(3)
	tp, err := s.l.Global(name, 0)
	if err != nil {
		return lua.TypeNil, s.errorAtTop(StatusErrRun, "getglobal", "", err)
	}
	return tp, nil
}

// SetGlobal pops a value into the global name.
// On failure the value is replaced by the error value.
func (s *State) SetGlobal(name string) error {
	l := s.l
	s.ensure(4)
	l.RawIndex(lua.RegistryIndex, lua.RegistryIndexGlobals)
	l.Rotate(-2, 1)
	if err := l.SetField(-2, name, 0); err != nil {
		l.Remove(-2)
		return s.errorAtTop(StatusErrRun, "setglobal", "", err)
	}
	l.Pop(1)
	return nil
}

// PushGlobalTable pushes the table of globals.
func (s *State) PushGlobalTable() {
	s.ensure(1)
	s.l.RawIndex(lua.RegistryIndex, lua.RegistryIndexGlobals)
}

// Raw accessors bypass metamethods and never fail.

// RawGet pops a key and pushes t[key] for the table at idx.
func (s *State) RawGet(idx int) Type { return s.l.RawGet(idx) }

// RawSet pops a value and a key and stores t[key] = value.
func (s *State) RawSet(idx int) { s.l.RawSet(idx) }

// RawGetIndex pushes t[n].
func (s *State) RawGetIndex(idx int, n int64) Type { return s.l.RawIndex(idx, n) }

// RawSetIndex pops a value into t[n].
func (s *State) RawSetIndex(idx int, n int64) { s.l.RawSetIndex(idx, n) }

// RawGetField pushes t[k].
func (s *State) RawGetField(idx int, k string) Type {
	s.ensure(1)
	return s.l.RawField(idx, k)
}

// RawSetField pops a value into t[k].
func (s *State) RawSetField(idx int, k string) {
	s.ensure(1)
	s.l.RawSetField(idx, k)
}

// Next pops a key and pushes the next key-value pair of the table at idx.
// It returns false, pushing nothing, when the traversal is complete.
// Start a traversal by pushing nil.
func (s *State) Next(idx int) bool { return s.l.Next(idx) }

// ----------------------------------------------------------------------------
// Registry
// ----------------------------------------------------------------------------

// GetRegistry pops a key and pushes registry[key].
// The registry is a plain table, so the lookup cannot fail.
func (s *State) GetRegistry() Type { return s.l.RawGet(lua.RegistryIndex) }

// SetRegistry pops a value and a key and stores registry[key] = value.
func (s *State) SetRegistry() { s.l.RawSet(lua.RegistryIndex) }

// RawGetRegistry pushes registry[k].
func (s *State) RawGetRegistry(k string) Type {
	s.ensure(1)
	return s.l.RawField(lua.RegistryIndex, k)
}

// RawSetRegistry pops a value into registry[k].
func (s *State) RawSetRegistry(k string) {
	s.ensure(1)
	s.l.RawSetField(lua.RegistryIndex, k)
}

// ----------------------------------------------------------------------------
// Metatables
// ----------------------------------------------------------------------------

// NewMetatable pushes the metatable registered under name, creating it with
// __name set when it does not exist yet. It reports whether it was created.
func (s *State) NewMetatable(name string) bool {
	s.ensure(3)
	return lua.NewMetatable(s.l, name)
}

// PushMetatable pushes the metatable registered under name, or nil.
func (s *State) PushMetatable(name string) Type {
	s.ensure(1)
	return lua.Metatable(s.l, name)
}

// GetMetatable pushes the metatable of the value at idx.
// It pushes nothing and returns false when there is none.
func (s *State) GetMetatable(idx int) bool { return s.l.Metatable(idx) }

// SetMetatable pops a table or nil and sets it as the metatable of the
// value at idx.
func (s *State) SetMetatable(idx int) { s.l.SetMetatable(idx) }

// SetMetatableName sets the metatable registered under name on the value at idx.
func (s *State) SetMetatableName(idx int, name string) {
	idx = s.l.AbsIndex(idx)
	s.PushMetatable(name)
	s.l.SetMetatable(idx)
}

// GetMetafield pushes field e of the metatable of the value at idx and
// returns its type. It pushes nothing and returns TypeNil when there is no
// metatable or no such field.
func (s *State) GetMetafield(idx int, e string) Type {
	l := s.l
	idx = l.AbsIndex(idx)
	s.ensure(2)
	if !l.Metatable(idx) {
		return lua.TypeNil
	}
	tp := l.RawField(-1, e)
	if tp == lua.TypeNil {
		l.Pop(2)
		return lua.TypeNil
	}
	l.Remove(-2)
	return tp
}

// ----------------------------------------------------------------------------
// Functions and libraries
// ----------------------------------------------------------------------------

// AddFunction binds fn to the global name.
func (s *State) AddFunction(name string, fn Func) error {
	if _, err := s.PushFunction(fn); err != nil {
		return err
	}
	return s.SetGlobal(name)
}

// AddLibrary creates a table of functions bound to the global name. The
// table is also recorded in package.loaded so require finds it.
func (s *State) AddLibrary(name string, funcs map[string]Func) error {
	l := s.l
	s.ensure(3)
	l.CreateTable(0, len(funcs))
	for _, k := range sortedKeys(funcs) {
		if _, err := s.PushFunction(funcs[k]); err != nil {
			l.Pop(1)
			return err
		}
		l.RawSetField(-2, k)
	}
	s.pushSubtable(lua.RegistryIndex, lua.LoadedTable)
	l.PushValue(-2)
	l.RawSetField(-2, name)
	l.Pop(1)
	return s.SetGlobal(name)
}

// CreatePrototype registers a metatable named name whose fields are items
// converted with PushAny. The metatable indexes itself, so instances see
// its fields as methods. An item equal to Self refers to the metatable.
// The metatable is left on the stack.
func (s *State) CreatePrototype(name string, items map[string]any) error {
	l := s.l
	s.NewMetatable(name)
	s.ensure(2)
	l.PushValue(-1)
	l.RawSetField(-2, "__index")
	for _, k := range sortedKeys(items) {
		v := items[k]
		if _, ok := v.(selfMarker); ok {
			l.PushValue(-1)
		} else if err := s.PushAny(v); err != nil {
			l.Pop(1)
			return err
		}
		l.RawSetField(-2, k)
	}
	return nil
}

type selfMarker struct{}

// Self stands for the prototype itself in CreatePrototype items.
var Self any = selfMarker{}
