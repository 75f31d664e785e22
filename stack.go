package luabridge

import (
	"fmt"
	"io"
	"strconv"

	"zombiezen.com/go/lua"
)

// Type is the type tag of a stack value.
type Type = lua.Type

// Type tags, equal to the interpreter's LUA_T* constants.
const (
	TypeNone          = lua.TypeNone
	TypeNil           = lua.TypeNil
	TypeBoolean       = lua.TypeBoolean
	TypeLightUserdata = lua.TypeLightUserdata
	TypeNumber        = lua.TypeNumber
	TypeString        = lua.TypeString
	TypeTable         = lua.TypeTable
	TypeFunction      = lua.TypeFunction
	TypeUserdata      = lua.TypeUserdata
	TypeThread        = lua.TypeThread
)

// Pseudo-indices and call constants.
const (
	RegistryIndex = lua.RegistryIndex
	MultRet       = lua.MultipleReturns
)

// UpvalueIndex returns the pseudo-index of upvalue i of the running function.
func UpvalueIndex(i int) int { return lua.UpvalueIndex(i) }

// ----------------------------------------------------------------------------
// Stack hygiene
// ----------------------------------------------------------------------------

// Top returns the index of the top element, which is also the stack depth.
func (s *State) Top() int { return s.l.Top() }

// SetTop sets the stack depth, filling with nil or discarding values.
func (s *State) SetTop(idx int) { s.l.SetTop(idx) }

// Pop discards n values.
func (s *State) Pop(n int) { s.l.Pop(n) }

// CheckStack ensures room for n more values.
// It reports false instead of raising when the stack cannot grow.
func (s *State) CheckStack(n int) bool { return s.l.CheckStack(n) }

// AbsIndex converts a relative index into an absolute one.
func (s *State) AbsIndex(idx int) int { return s.l.AbsIndex(idx) }

// Remove deletes the value at idx, shifting the values above it down.
func (s *State) Remove(idx int) { s.l.Remove(idx) }

// Insert moves the top value to idx, shifting the values above it up.
func (s *State) Insert(idx int) { s.l.Rotate(idx, 1) }

// Replace pops the top value into idx.
func (s *State) Replace(idx int) { s.l.Replace(idx) }

// Copy copies the value at from into to.
func (s *State) Copy(from, to int) { s.l.Copy(from, to) }

// Rotate rotates the values between idx and the top by n positions.
func (s *State) Rotate(idx, n int) { s.l.Rotate(idx, n) }

// ----------------------------------------------------------------------------
// Push
// ----------------------------------------------------------------------------

// The push operations need one free slot. Use CheckStack before pushing
// more than the guaranteed minimum.

func (s *State) PushNil()              { s.l.PushNil() }
func (s *State) PushBoolean(b bool)    { s.l.PushBoolean(b) }
func (s *State) PushInteger(n int64)   { s.l.PushInteger(n) }
func (s *State) PushInt(n int)         { s.l.PushInteger(int64(n)) }
func (s *State) PushNumber(n float64)  { s.l.PushNumber(n) }
func (s *State) PushString(str string) { s.l.PushString(str) }
func (s *State) PushValue(idx int)     { s.l.PushValue(idx) }

// PushLightUserdata pushes an opaque host pointer value.
func (s *State) PushLightUserdata(p uintptr) { s.l.PushLightUserdata(p) }

// PushBytes pushes b as a string. Embedded NULs are kept.
func (s *State) PushBytes(b []byte) { s.l.PushString(string(b)) }

// ----------------------------------------------------------------------------
// Predicates
// ----------------------------------------------------------------------------

func (s *State) Type(idx int) Type        { return s.l.Type(idx) }
func (s *State) IsNil(idx int) bool       { return s.l.IsNil(idx) }
func (s *State) IsNone(idx int) bool      { return s.l.IsNone(idx) }
func (s *State) IsNoneOrNil(idx int) bool { return s.l.IsNoneOrNil(idx) }
func (s *State) IsBoolean(idx int) bool   { return s.l.IsBoolean(idx) }
func (s *State) IsTable(idx int) bool     { return s.l.IsTable(idx) }
func (s *State) IsFunction(idx int) bool  { return s.l.IsFunction(idx) }
func (s *State) IsThread(idx int) bool    { return s.l.IsThread(idx) }

// IsNumber reports whether the value is a number or a string convertible to one.
func (s *State) IsNumber(idx int) bool { return s.l.IsNumber(idx) }

// IsInteger reports whether the value is a number with an integer representation.
func (s *State) IsInteger(idx int) bool { return s.l.IsInteger(idx) }

// IsString reports whether the value is a string or a number.
func (s *State) IsString(idx int) bool { return s.l.IsString(idx) }

// IsUserdata reports whether the value is a full or light userdata.
func (s *State) IsUserdata(idx int) bool { return s.l.IsUserdata(idx) }

// TypeName returns the name of the type of the value at idx.
func (s *State) TypeName(idx int) string { return s.l.Type(idx).String() }

// ----------------------------------------------------------------------------
// Typed reads
// ----------------------------------------------------------------------------

// ToInteger returns the value as an integer, or 0 when it has no integer
// representation.
func (s *State) ToInteger(idx int) int64 {
	n, _ := s.l.ToInteger(idx)
	return n
}

// ToNumber returns the value as a float, or 0 when it is not convertible.
func (s *State) ToNumber(idx int) float64 {
	n, _ := s.l.ToNumber(idx)
	return n
}

// ToBoolean follows Lua truthiness: only nil and false are false.
func (s *State) ToBoolean(idx int) bool { return s.l.ToBoolean(idx) }

// ToString returns the value as a string. A number is converted in place,
// which confuses Next when applied to a table key.
func (s *State) ToString(idx int) (string, bool) { return s.l.ToString(idx) }

// ToBytes is ToString returning a fresh byte slice, nil when not convertible.
func (s *State) ToBytes(idx int) []byte {
	str, ok := s.l.ToString(idx)
	if !ok {
		return nil
	}
	return []byte(str)
}

// StringLen returns the byte length of the string at idx, or 0.
func (s *State) StringLen(idx int) int {
	if s.l.Type(idx) != lua.TypeString {
		if !s.l.IsString(idx) {
			return 0
		}
		str, _ := s.l.ToString(idx)
		return len(str)
	}
	return int(s.l.RawLen(idx))
}

// RawLen returns the raw length of a string, table or userdata.
func (s *State) RawLen(idx int) int { return int(s.l.RawLen(idx)) }

// ToPointer returns an identity for reference values, for diagnostics only.
func (s *State) ToPointer(idx int) uintptr { return s.l.ToPointer(idx) }

// RawEqual compares two values without metamethods.
func (s *State) RawEqual(idx1, idx2 int) bool { return s.l.RawEqual(idx1, idx2) }

// ----------------------------------------------------------------------------
// Checked reads
// ----------------------------------------------------------------------------

// The Check functions validate argument arg of the running foreign function.
// Their error is an *ArgError; returning it from a Func raises the usual
// "bad argument" error.

// CheckInteger returns argument arg as an integer.
func (s *State) CheckInteger(arg int) (int64, error) {
	n, ok := s.l.ToInteger(arg)
	if ok {
		return n, nil
	}
	if s.l.IsNumber(arg) {
		return 0, s.NewArgError(arg, "number has no integer representation")
	}
	return 0, s.typeError(arg, lua.TypeNumber.String())
}

// CheckNumber returns argument arg as a float.
func (s *State) CheckNumber(arg int) (float64, error) {
	n, ok := s.l.ToNumber(arg)
	if !ok {
		return 0, s.typeError(arg, lua.TypeNumber.String())
	}
	return n, nil
}

// CheckString returns argument arg as a string. Numbers are accepted.
func (s *State) CheckString(arg int) (string, error) {
	str, ok := s.l.ToString(arg)
	if !ok {
		return "", s.typeError(arg, lua.TypeString.String())
	}
	return str, nil
}

// CheckBoolean returns argument arg, which must be a boolean.
func (s *State) CheckBoolean(arg int) (bool, error) {
	if s.l.Type(arg) != lua.TypeBoolean {
		return false, s.typeError(arg, lua.TypeBoolean.String())
	}
	return s.l.ToBoolean(arg), nil
}

// CheckType verifies that argument arg has type t.
func (s *State) CheckType(arg int, t Type) error {
	if s.l.Type(arg) != t {
		return s.typeError(arg, t.String())
	}
	return nil
}

// CheckAny verifies that argument arg exists.
func (s *State) CheckAny(arg int) error {
	if s.l.Type(arg) == lua.TypeNone {
		return s.NewArgError(arg, "value expected")
	}
	return nil
}

// OptInteger returns argument arg as an integer, or def when it is absent or nil.
func (s *State) OptInteger(arg int, def int64) (int64, error) {
	if s.l.IsNoneOrNil(arg) {
		return def, nil
	}
	return s.CheckInteger(arg)
}

// OptString returns argument arg as a string, or def when it is absent or nil.
func (s *State) OptString(arg int, def string) (string, error) {
	if s.l.IsNoneOrNil(arg) {
		return def, nil
	}
	return s.CheckString(arg)
}

// ----------------------------------------------------------------------------
// Diagnostics
// ----------------------------------------------------------------------------

// StackDump writes one line per stack slot, bottom first.
func (s *State) StackDump(w io.Writer) error {
	top := s.l.Top()
	if _, err := fmt.Fprintf(w, "stack depth %d\n", top); err != nil {
		return err
	}
	for i := 1; i <= top; i++ {
		if _, err := fmt.Fprintf(w, "  [%d] %s: %s\n", i, s.TypeName(i), s.describe(i)); err != nil {
			return err
		}
	}
	return nil
}

// describe renders the value at idx without calling metamethods and without
// converting it in place.
func (s *State) describe(idx int) string {
	l := s.l
	switch l.Type(idx) {
	case lua.TypeNil, lua.TypeNone:
		return "nil"
	case lua.TypeBoolean:
		return strconv.FormatBool(l.ToBoolean(idx))
	case lua.TypeNumber:
		if n, ok := l.ToInteger(idx); ok && l.IsInteger(idx) {
			return strconv.FormatInt(n, 10)
		}
		n, _ := l.ToNumber(idx)
		return strconv.FormatFloat(n, 'g', -1, 64)
	case lua.TypeString:
		str, _ := l.ToString(idx)
		return strconv.Quote(str)
	default:
		return fmt.Sprintf("%#x", l.ToPointer(idx))
	}
}
