package luabridge_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/feather-lang/luabridge"
)

func TestTableAccess(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.NewTable()
	s.PushString("v")
	if err := s.SetField(-2, "k"); err != nil {
		t.Fatalf("SetField failed: %v", err)
	}
	s.PushInteger(5)
	s.PushString("five")
	if err := s.SetTable(-3); err != nil {
		t.Fatalf("SetTable failed: %v", err)
	}
	s.PushString("raw")
	s.RawSetIndex(-2, 1)

	if tp, err := s.GetField(-1, "k"); err != nil || tp != luabridge.TypeString {
		t.Fatalf("GetField = %v, %v", tp, err)
	}
	if str, _ := s.ToString(-1); str != "v" {
		t.Errorf("t.k = %q", str)
	}
	s.Pop(1)

	s.PushInteger(5)
	if tp, err := s.GetTable(-2); err != nil || tp != luabridge.TypeString {
		t.Fatalf("GetTable = %v, %v", tp, err)
	}
	s.Pop(1)

	if tp := s.RawGetIndex(-1, 1); tp != luabridge.TypeString {
		t.Errorf("RawGetIndex = %v", tp)
	}
	s.Pop(1)

	if n := s.RawLen(-1); n != 1 {
		t.Errorf("RawLen = %d, want 1", n)
	}
	if s.Top() != 1 {
		t.Errorf("expected depth 1, got %d", s.Top())
	}
}

func TestMetamethodErrorIsReturned(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	err := s.DoString(`
		strict = setmetatable({}, {
			__index = function(_, k) error("no field " .. k, 0) end,
			__newindex = function(_, k) error("read-only " .. k, 0) end,
		})`, "=t")
	if err != nil {
		t.Fatalf("DoString failed: %v", err)
	}
	s.PushGlobal("strict")

	if _, err := s.GetField(-1, "x"); err == nil || err.Error() != "no field x" {
		t.Errorf("GetField error = %v", err)
	}
	s.Pop(1)

	s.PushInteger(1)
	if err := s.SetField(-2, "y"); err == nil || err.Error() != "read-only y" {
		t.Errorf("SetField error = %v", err)
	}
	s.Pop(1)

	// Raw access bypasses the metamethods.
	s.PushInteger(1)
	s.RawSetField(-2, "y")
	if tp := s.RawGetField(-1, "y"); tp != luabridge.TypeNumber {
		t.Errorf("RawGetField = %v", tp)
	}
	s.Pop(2)
	if s.Top() != 0 {
		t.Errorf("expected depth 0, got %d", s.Top())
	}
}

func TestNext(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	if err := s.DoString(`t = {a = 1, b = 2, c = 3}`, "=t"); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}
	s.PushGlobal("t")
	sum := int64(0)
	keys := 0
	s.PushNil()
	for s.Next(-2) {
		sum += s.ToInteger(-1)
		keys++
		s.Pop(1)
	}
	if keys != 3 || sum != 6 {
		t.Errorf("visited %d keys summing %d", keys, sum)
	}
}

func TestRegistry(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.PushString("secret")
	s.RawSetRegistry("test.key")
	if tp := s.RawGetRegistry("test.key"); tp != luabridge.TypeString {
		t.Fatalf("RawGetRegistry = %v", tp)
	}
	s.Pop(1)

	s.PushString("test.key2")
	s.PushInteger(9)
	s.SetRegistry()
	s.PushString("test.key2")
	if tp := s.GetRegistry(); tp != luabridge.TypeNumber || s.ToInteger(-1) != 9 {
		t.Errorf("GetRegistry = %v %d", tp, s.ToInteger(-1))
	}
}

func TestGlobals(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.PushString("world")
	if err := s.SetGlobal("hello"); err != nil {
		t.Fatalf("SetGlobal failed: %v", err)
	}
	vals, err := s.Eval(`return hello`, "=t")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if vals[0] != "world" {
		t.Errorf("hello = %v", vals[0])
	}
	if tp, _ := s.PushGlobal("undefined_name"); tp != luabridge.TypeNil {
		t.Errorf("PushGlobal(undefined) = %v", tp)
	}
}

// ============================================================================
// Metatables and userdata
// ============================================================================

func TestMetatableFoo(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	if !s.NewMetatable("Foo") {
		t.Fatal("NewMetatable reported existing metatable")
	}
	s.Pop(1)
	if s.NewMetatable("Foo") {
		t.Error("second NewMetatable reported creation")
	}
	s.Pop(1)

	s.AddFunction("newfoo", func(cs *luabridge.State) (int, error) {
		data := cs.NewUserdataWithMetatable(4, "Foo")
		copy(data, "data")
		return 1, nil
	})
	s.AddFunction("readfoo", func(cs *luabridge.State) (int, error) {
		data, err := cs.CheckUserdata(1, "Foo")
		if err != nil {
			return 0, err
		}
		cs.PushBytes(data)
		return 1, nil
	})

	vals, err := s.Eval(`return readfoo(newfoo())`, "=t")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if vals[0] != "data" {
		t.Errorf("readfoo = %v", vals[0])
	}

	tests := []struct {
		src  string
		want string
	}{
		{`readfoo({})`, "bad argument #1 to 'readfoo' (Foo expected, got table)"},
		{`readfoo(nil)`, "bad argument #1 to 'readfoo' (Foo expected, got nil)"},
		{`readfoo()`, "bad argument #1 to 'readfoo' (Foo expected, got no value)"},
	}
	for _, tt := range tests {
		err := s.DoString(tt.src, "=t")
		if err == nil {
			t.Errorf("%s: expected error", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not contain %q", tt.src, err.Error(), tt.want)
		}
	}
}

func TestCheckUserdataOtherMetatable(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.NewMetatable("Foo")
	s.Pop(1)
	s.NewMetatable("Bar")
	s.Pop(1)

	s.NewUserdataWithMetatable(1, "Bar")
	if _, ok := s.TestUserdata(-1, "Foo"); ok {
		t.Error("Bar userdata passed as Foo")
	}
	if _, ok := s.TestUserdata(-1, "Bar"); !ok {
		t.Error("Bar userdata rejected as Bar")
	}
	_, err := s.CheckUserdata(-1, "Foo")
	if err == nil || !strings.Contains(err.Error(), "Foo expected, got Bar") {
		t.Errorf("CheckUserdata error = %v", err)
	}
	if s.Top() != 1 {
		t.Errorf("expected depth 1, got %d", s.Top())
	}
}

func TestUserdataBlockShared(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	data := s.NewUserdata(8)
	data[0] = 0xAB
	s.PushValue(-1)
	again, ok := s.ToUserdata(-1)
	if !ok {
		t.Fatal("ToUserdata failed")
	}
	if again[0] != 0xAB || len(again) != 8 {
		t.Errorf("block not shared: %x", again)
	}

	s.PushLightUserdata(1)
	if _, ok := s.ToUserdata(-1); ok {
		t.Error("light userdata reported a block")
	}
}

func TestGetMetafield(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.NewMetatable("Meta")
	s.PushString("custom")
	s.RawSetField(-2, "__kind")
	s.Pop(1)

	s.NewTable()
	s.SetMetatableName(-1, "Meta")
	if tp := s.GetMetafield(-1, "__kind"); tp != luabridge.TypeString {
		t.Fatalf("GetMetafield = %v", tp)
	}
	s.Pop(1)
	if tp := s.GetMetafield(-1, "__missing"); tp != luabridge.TypeNil {
		t.Errorf("GetMetafield(missing) = %v", tp)
	}
	if !s.GetMetatable(-1) {
		t.Fatal("GetMetatable reported none")
	}
	s.PushMetatable("Meta")
	if !s.RawEqual(-1, -2) {
		t.Error("metatable differs from registered one")
	}
	s.Pop(2)
	if s.Top() != 1 {
		t.Errorf("expected depth 1, got %d", s.Top())
	}
}

func TestAddLibrary(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	err := s.AddLibrary("mylib", map[string]luabridge.Func{
		"one": func(cs *luabridge.State) (int, error) { cs.PushInteger(1); return 1, nil },
		"two": func(cs *luabridge.State) (int, error) { cs.PushInteger(2); return 1, nil },
	})
	if err != nil {
		t.Fatalf("AddLibrary failed: %v", err)
	}
	vals, err := s.Eval(`return mylib.one() + require("mylib").two()`, "=t")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if vals[0] != int64(3) {
		t.Errorf("got %v, want 3", vals[0])
	}
}

func TestCreatePrototype(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	err := s.CreatePrototype("Point", map[string]any{
		"kind": "point",
		"self": luabridge.Self,
		"norm1": func(cs *luabridge.State) (int, error) {
			cs.GetField(1, "x")
			a := cs.ToInteger(-1)
			cs.GetField(1, "y")
			b := cs.ToInteger(-1)
			cs.PushInteger(a + b)
			return 1, nil
		},
	})
	if err != nil {
		t.Fatalf("CreatePrototype failed: %v", err)
	}
	s.SetGlobal("Point")

	vals, err := s.Eval(`
		local p = setmetatable({x = 3, y = 4}, Point)
		return p.kind, p:norm1(), Point.self == Point`, "=t")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if diff := cmp.Diff([]any{"point", int64(7), true}, vals); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
