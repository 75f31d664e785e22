package luabridge

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"

	"zombiezen.com/go/lua"
)

// maxConvertDepth bounds table nesting in PushAny and ToAny.
const maxConvertDepth = 16

// PushAny pushes a Go value.
//
// Supported values:
//   - nil pushes nil
//   - bool, integers, floats, string and []byte push the matching Lua value
//   - Func and func(*State) (int, error) push a foreign function
//   - *Closure pushes its function
//   - slices and arrays push a sequence table
//   - maps push a table
//   - other functions are wrapped as with Register
func (s *State) PushAny(v any) error {
	return s.pushAny(v, 0)
}

func (s *State) pushAny(v any, depth int) error {
	if depth > maxConvertDepth {
		return fmt.Errorf("value nested deeper than %d levels", maxConvertDepth)
	}
	s.ensure(1)
	l := s.l
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case string:
		l.PushString(val)
	case []byte:
		l.PushString(string(val))
	case int:
		l.PushInteger(int64(val))
	case int64:
		l.PushInteger(val)
	case float64:
		l.PushNumber(val)
	case Func:
		_, err := s.PushFunction(val)
		return err
	case func(*State) (int, error):
		_, err := s.PushFunction(val)
		return err
	case *Closure:
		if val.vm != s.vm {
			return fmt.Errorf("closure belongs to another state")
		}
		if val.ref == NoRef {
			return ErrInvalidRef
		}
		s.PushRef(val.ref)
	default:
		return s.pushReflect(reflect.ValueOf(v), depth)
	}
	return nil
}

func (s *State) pushReflect(rv reflect.Value, depth int) error {
	l := s.l
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		l.PushInteger(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			l.PushNumber(float64(u))
		} else {
			l.PushInteger(int64(u))
		}
	case reflect.Float32, reflect.Float64:
		l.PushNumber(rv.Float())
	case reflect.Bool:
		l.PushBoolean(rv.Bool())
	case reflect.String:
		l.PushString(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			l.PushNil()
			return nil
		}
		n := rv.Len()
		l.CreateTable(n, 0)
		for i := 0; i < n; i++ {
			if err := s.pushAny(rv.Index(i).Interface(), depth+1); err != nil {
				l.Pop(1)
				return fmt.Errorf("element %d: %w", i+1, err)
			}
			l.RawSetIndex(-2, int64(i+1))
		}
	case reflect.Map:
		if rv.IsNil() {
			l.PushNil()
			return nil
		}
		l.CreateTable(0, rv.Len())
		s.ensure(2)
		iter := rv.MapRange()
		for iter.Next() {
			if err := s.pushAny(iter.Key().Interface(), depth+1); err != nil {
				l.Pop(1)
				return fmt.Errorf("key: %w", err)
			}
			if err := s.pushAny(iter.Value().Interface(), depth+1); err != nil {
				l.Pop(2)
				return fmt.Errorf("value for %v: %w", iter.Key().Interface(), err)
			}
			if l.IsNil(-2) {
				l.Pop(2)
				continue
			}
			if f, _ := l.ToNumber(-2); l.Type(-2) == lua.TypeNumber && math.IsNaN(f) {
				l.Pop(3)
				return fmt.Errorf("key: NaN cannot index a table")
			}
			l.RawSet(-3)
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			l.PushNil()
			return nil
		}
		return s.pushAny(rv.Elem().Interface(), depth)
	case reflect.Func:
		fn, err := wrapFunc(rv.Interface())
		if err != nil {
			return err
		}
		_, err = s.PushFunction(fn)
		return err
	default:
		return fmt.Errorf("cannot convert %s to a Lua value", rv.Type())
	}
	return nil
}

// ToAny converts the value at idx to Go.
//
// nil is nil, booleans are bool, integers are int64, other numbers are
// float64 and strings are string. A table whose keys are exactly 1..n is a
// []any, any other table is a map[any]any. A function is a *Closure, which
// the caller must release. A userdata created by NewUserdata is its []byte
// block and a light userdata is a uintptr.
func (s *State) ToAny(idx int) (any, error) {
	return s.toAny(s.l.AbsIndex(idx), 0)
}

func (s *State) toAny(idx, depth int) (any, error) {
	l := s.l
	switch tp := l.Type(idx); tp {
	case lua.TypeNil, lua.TypeNone:
		return nil, nil
	case lua.TypeBoolean:
		return l.ToBoolean(idx), nil
	case lua.TypeNumber:
		if l.IsInteger(idx) {
			n, _ := l.ToInteger(idx)
			return n, nil
		}
		n, _ := l.ToNumber(idx)
		return n, nil
	case lua.TypeString:
		str, _ := l.ToString(idx)
		return str, nil
	case lua.TypeTable:
		if depth >= maxConvertDepth {
			return nil, fmt.Errorf("table nested deeper than %d levels", maxConvertDepth)
		}
		return s.tableToAny(idx, depth)
	case lua.TypeFunction:
		return s.ClosureAt(idx)
	case lua.TypeLightUserdata:
		return l.ToPointer(idx), nil
	case lua.TypeUserdata:
		if data, ok := s.ToUserdata(idx); ok {
			return data, nil
		}
		return nil, fmt.Errorf("cannot convert foreign userdata")
	default:
		return nil, fmt.Errorf("cannot convert %s value", tp)
	}
}

func (s *State) tableToAny(idx, depth int) (any, error) {
	l := s.l
	s.ensure(3)
	m := make(map[any]any)
	var fail error
	l.PushNil()
	for l.Next(idx) {
		k, err := s.toAny(l.AbsIndex(-2), depth+1)
		if err == nil {
			if !isHashableKey(k) {
				releaseAny(k)
				err = fmt.Errorf("unsupported %s table key", l.Type(-2))
			}
		}
		var v any
		if err == nil {
			v, err = s.toAny(l.AbsIndex(-1), depth+1)
		}
		if err != nil {
			l.Pop(2)
			fail = err
			break
		}
		m[k] = v
		l.Pop(1)
	}
	if fail != nil {
		for _, v := range m {
			releaseAny(v)
		}
		return nil, fail
	}
	if seq, ok := asSequence(m); ok {
		return seq, nil
	}
	return m, nil
}

func isHashableKey(k any) bool {
	switch k.(type) {
	case bool, int64, float64, string, uintptr:
		return true
	}
	return false
}

// asSequence returns m as a slice when its keys are exactly 1..len(m).
// An empty table is an empty slice.
func asSequence(m map[any]any) ([]any, bool) {
	seq := make([]any, len(m))
	for k, v := range m {
		i, ok := k.(int64)
		if !ok || i < 1 || i > int64(len(m)) {
			return nil, false
		}
		seq[i-1] = v
	}
	return seq, true
}

// releaseAny releases the closures inside a value returned by ToAny.
func releaseAny(v any) {
	switch val := v.(type) {
	case *Closure:
		val.Release()
	case []any:
		for _, e := range val {
			releaseAny(e)
		}
	case map[any]any:
		for _, e := range val {
			releaseAny(e)
		}
	}
}

// ReleaseAll releases every *Closure inside values returned by ToAny or
// Closure.Call.
func ReleaseAll(vals ...any) {
	for _, v := range vals {
		releaseAny(v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// ----------------------------------------------------------------------------
// Reflection-based function wrapping
// ----------------------------------------------------------------------------

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	stateType = reflect.TypeOf((*State)(nil))
)

// Register binds a Go function of any signature to the global name.
//
// Arguments are converted from Lua according to the parameter types; a
// leading *State parameter receives the calling state. Results are pushed
// with PushAny. A trailing error result is raised when non-nil.
//
//	s.Register("greet", func(name string) string {
//	    return "Hello, " + name + "!"
//	})
func (s *State) Register(name string, fn any) error {
	f, err := wrapFunc(fn)
	if err != nil {
		return fmt.Errorf("luabridge: register %s: %w", name, err)
	}
	return s.AddFunction(name, f)
}

// wrapFunc adapts a Go function to a Func.
func wrapFunc(fn any) (Func, error) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected function, got %T", fn)
	}
	if fnVal.IsNil() {
		return nil, fmt.Errorf("nil function")
	}

	numIn := fnType.NumIn()
	isVariadic := fnType.IsVariadic()
	first := 0
	if numIn > 0 && fnType.In(0) == stateType {
		first = 1
	}

	return func(s *State) (int, error) {
		nargs := s.l.Top()
		fixed := numIn - first
		if isVariadic {
			fixed--
		}
		if !isVariadic && nargs > fixed {
			return 0, s.RaiseError("wrong number of arguments: expected %d, got %d", fixed, nargs)
		}

		callArgs := make([]reflect.Value, 0, max(numIn, first+nargs))
		if first == 1 {
			callArgs = append(callArgs, reflect.ValueOf(s))
		}
		for j := 0; j < fixed; j++ {
			v, err := convertArg(s, j+1, fnType.In(first+j))
			if err != nil {
				return 0, err
			}
			callArgs = append(callArgs, v)
		}
		if isVariadic {
			elem := fnType.In(numIn - 1).Elem()
			for j := fixed; j < nargs; j++ {
				v, err := convertArg(s, j+1, elem)
				if err != nil {
					return 0, err
				}
				callArgs = append(callArgs, v)
			}
		}

		results := fnVal.Call(callArgs)
		return processResults(s, results, fnType)
	}, nil
}

// convertArg converts argument arg to a Go value of type target.
func convertArg(s *State, arg int, target reflect.Type) (reflect.Value, error) {
	switch target.Kind() {
	case reflect.String:
		str, err := s.CheckString(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(str).Convert(target), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := s.CheckInteger(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.New(target).Elem()
		if v.OverflowInt(n) {
			return reflect.Value{}, s.NewArgError(arg, fmt.Sprintf("value out of range for %s", target))
		}
		v.SetInt(n)
		return v, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := s.CheckInteger(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		v := reflect.New(target).Elem()
		if n < 0 || v.OverflowUint(uint64(n)) {
			return reflect.Value{}, s.NewArgError(arg, fmt.Sprintf("value out of range for %s", target))
		}
		v.SetUint(uint64(n))
		return v, nil

	case reflect.Float32, reflect.Float64:
		n, err := s.CheckNumber(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(target), nil

	case reflect.Bool:
		return reflect.ValueOf(s.l.ToBoolean(arg)).Convert(target), nil

	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 && s.l.Type(arg) == lua.TypeString {
			return reflect.ValueOf(s.ToBytes(arg)).Convert(target), nil
		}
		if err := s.CheckType(arg, lua.TypeTable); err != nil {
			return reflect.Value{}, err
		}
		n := int(s.l.RawLen(arg))
		slice := reflect.MakeSlice(target, n, n)
		s.ensure(1)
		for j := 0; j < n; j++ {
			s.l.RawIndex(arg, int64(j+1))
			v, err := s.toAny(s.l.Top(), 0)
			s.l.Pop(1)
			if err != nil {
				return reflect.Value{}, s.NewArgError(arg, fmt.Sprintf("element %d: %v", j+1, err))
			}
			rv, err := assignable(v, target.Elem())
			if err != nil {
				releaseAny(v)
				return reflect.Value{}, s.NewArgError(arg, fmt.Sprintf("element %d: %v", j+1, err))
			}
			slice.Index(j).Set(rv)
		}
		return slice, nil

	case reflect.Interface:
		if target.NumMethod() != 0 {
			return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", target)
		}
		v, err := s.ToAny(arg)
		if err != nil {
			return reflect.Value{}, s.NewArgError(arg, err.Error())
		}
		if v == nil {
			return reflect.Zero(target), nil
		}
		return reflect.ValueOf(v), nil

	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", target)
	}
}

// assignable converts a ToAny result to type t.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case isNumeric(rv.Kind()) && isNumeric(t.Kind()):
		return rv.Convert(t), nil
	case rv.Kind() == reflect.String && t.Kind() == reflect.String:
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// processResults pushes the results of a wrapped call.
func processResults(s *State, results []reflect.Value, fnType reflect.Type) (int, error) {
	if n := fnType.NumOut(); n > 0 && fnType.Out(n-1) == errorType {
		last := results[len(results)-1]
		if !last.IsNil() {
			return 0, last.Interface().(error)
		}
		results = results[:len(results)-1]
	}
	if !s.l.CheckStack(len(results)) {
		return 0, ErrStackOverflow
	}
	for i, r := range results {
		if err := s.PushAny(r.Interface()); err != nil {
			return 0, fmt.Errorf("result %d: %w", i+1, err)
		}
	}
	return len(results), nil
}
