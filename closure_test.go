package luabridge_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/feather-lang/luabridge"
)

func counter(t *testing.T, s *luabridge.State) *luabridge.Closure {
	t.Helper()
	vals, err := s.Eval(`
		local n = 0
		return function(step) n = n + (step or 1) return n end`, "=counter")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	c, ok := vals[0].(*luabridge.Closure)
	if !ok {
		t.Fatalf("expected *Closure, got %T", vals[0])
	}
	return c
}

func TestClosureKeepsUpvalues(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	next := counter(t, s)
	defer next.Release()

	var got []any
	for _, step := range []any{nil, nil, 10} {
		vals, err := next.Call(step)
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		got = append(got, vals...)
	}
	if diff := cmp.Diff([]any{int64(1), int64(2), int64(12)}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if s.Top() != 0 {
		t.Errorf("Call left depth %d", s.Top())
	}
}

func TestClosureRelease(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	next := counter(t, s)
	before := s.RefCount()
	next.Release()
	next.Release()
	if s.RefCount() != before-1 {
		t.Errorf("RefCount = %d, want %d", s.RefCount(), before-1)
	}
	if _, err := next.Call(); !errors.Is(err, luabridge.ErrInvalidRef) {
		t.Errorf("Call after Release = %v, want ErrInvalidRef", err)
	}
}

func TestClosureAfterClose(t *testing.T) {
	s := luabridge.New()
	next := counter(t, s)
	s.Close()
	if _, err := next.Call(); !errors.Is(err, luabridge.ErrClosed) {
		t.Errorf("Call after Close = %v, want ErrClosed", err)
	}
	next.Release()
}

func TestClosureCalledFromCallback(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	next := counter(t, s)
	defer next.Release()

	s.AddFunction("tick", func(cs *luabridge.State) (int, error) {
		vals, err := next.Call(5)
		if err != nil {
			return 0, err
		}
		return 1, cs.PushAny(vals[0])
	})
	if err := s.DoString(`tick() tick()`, "=t"); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}
	vals, err := next.Call(0)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if vals[0] != int64(10) {
		t.Errorf("counter = %v, want 10", vals[0])
	}
}

func TestClosureError(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	vals, err := s.Eval(`return function() error("inner", 0) end`, "=t")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	c := vals[0].(*luabridge.Closure)
	defer c.Release()

	_, err = c.Call()
	if !errors.Is(err, luabridge.ErrRuntime) || err.Error() != "inner" {
		t.Errorf("Call = %v", err)
	}
	if s.Top() != 0 {
		t.Errorf("failed Call left depth %d", s.Top())
	}
}

func TestClosureAtRejectsNonFunction(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.PushInteger(1)
	if _, err := s.ClosureAt(-1); err == nil {
		t.Error("expected error for non-function")
	}
}

func TestClosurePush(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	next := counter(t, s)
	defer next.Release()

	if err := next.Push(); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	s.PushInteger(3)
	if err := s.PCall(1, 1); err != nil {
		t.Fatalf("PCall failed: %v", err)
	}
	if got := s.ToInteger(-1); got != 3 {
		t.Errorf("result = %d, want 3", got)
	}
	s.Pop(1)

	// The pushed copy and the closure share upvalues.
	vals, err := next.Call()
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if diff := cmp.Diff([]any{int64(4)}, vals); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	next.Release()
	if err := next.Push(); !errors.Is(err, luabridge.ErrInvalidRef) {
		t.Errorf("Push after Release = %v, want ErrInvalidRef", err)
	}
}
