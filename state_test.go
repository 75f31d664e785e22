package luabridge_test

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/feather-lang/luabridge"
)

func TestNew(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	vals, err := s.Eval(`return string.format("%d-%s", 2 + 2, "ok")`, "=test")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(vals) != 1 || vals[0] != "4-ok" {
		t.Errorf("expected [4-ok], got %v", vals)
	}
	if s.Top() != 0 {
		t.Errorf("expected empty stack, got depth %d", s.Top())
	}
}

func TestStateID(t *testing.T) {
	a := luabridge.New()
	defer a.Close()
	b := luabridge.New()
	defer b.Close()

	if a.ID() == "" {
		t.Fatal("expected non-empty ID")
	}
	if a.ID() == b.ID() {
		t.Errorf("expected distinct IDs, both are %q", a.ID())
	}
}

func TestCloseIdempotent(t *testing.T) {
	s := luabridge.New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !s.Closed() {
		t.Error("expected Closed to report true")
	}
}

func TestCloseFromCallback(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	var viewErr, mainErr, capturedErr error
	s.AddFunction("tryclose", func(cs *luabridge.State) (int, error) {
		viewErr = cs.Close()
		mainErr = cs.Main().Close()
		capturedErr = s.Close()
		return 0, nil
	})
	if err := s.DoString("tryclose()", "=test"); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}
	for name, err := range map[string]error{"view": viewErr, "Main()": mainErr, "captured": capturedErr} {
		if !errors.Is(err, luabridge.ErrCallbackState) {
			t.Errorf("Close on %s: expected ErrCallbackState, got %v", name, err)
		}
	}
	if s.Closed() {
		t.Error("state closed while a callback was running")
	}

	// Once the callback has returned the state closes normally.
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !s.Closed() {
		t.Error("expected Closed after the callback returned")
	}
}

func TestWithLibraries(t *testing.T) {
	s := luabridge.New(luabridge.WithLibraries(luabridge.BaseLibrary))
	defer s.Close()

	vals, err := s.Eval(`return type(print), type(string)`, "=test")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if vals[0] != "function" || vals[1] != "nil" {
		t.Errorf("expected [function nil], got %v", vals)
	}

	if err := s.OpenLibraries(luabridge.StringLibrary); err != nil {
		t.Fatalf("OpenLibraries failed: %v", err)
	}
	vals, err = s.Eval(`return string.rep("ab", 2)`, "=test")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if vals[0] != "abab" {
		t.Errorf("expected abab, got %v", vals[0])
	}
}

func TestNoLibraries(t *testing.T) {
	s := luabridge.New(luabridge.WithLibraries())
	defer s.Close()

	if _, err := s.Eval(`return print`, "=test"); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	tp, err := s.PushGlobal("print")
	if err != nil {
		t.Fatalf("PushGlobal failed: %v", err)
	}
	if tp != luabridge.TypeNil {
		t.Errorf("expected nil print, got %v", tp)
	}
}

func TestOpenUnknownLibrary(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	if err := s.OpenLibraries("io"); err == nil {
		t.Fatal("expected error for unknown library")
	}
	if _, err := luabridge.NewFromConfig(luabridge.Config{Libraries: []string{"nope"}}); err == nil {
		t.Fatal("expected NewFromConfig to reject unknown library")
	}
}

func TestOpenLibrariesTwice(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	if err := s.DoString(`string.marker = true`, "=test"); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}
	if err := s.OpenLibraries(luabridge.StringLibrary); err != nil {
		t.Fatalf("OpenLibraries failed: %v", err)
	}
	vals, err := s.Eval(`return string.marker`, "=test")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if vals[0] != true {
		t.Errorf("reopening replaced the library table")
	}
}

// ============================================================================
// Threads
// ============================================================================

func TestThreadResume(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	err := s.DoString(`
		function gen(a)
			local b = coroutine.yield(a + 1)
			return b * 2
		end`, "=gen")
	if err != nil {
		t.Fatalf("DoString failed: %v", err)
	}

	s.PushGlobal("gen")
	if err := s.NewThread(); err != nil {
		t.Fatalf("NewThread failed: %v", err)
	}
	if !s.IsThread(-1) {
		t.Fatalf("expected thread, got %s", s.TypeName(-1))
	}
	thread := s.Top()

	s.PushInteger(10)
	n, err := s.Resume(thread, 1)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if n != 1 || s.ToInteger(-1) != 11 {
		t.Fatalf("expected yield 11, got %d values, top %v", n, s.ToInteger(-1))
	}
	s.Pop(n)
	if st, _ := s.ThreadStatus(thread); st != "suspended" {
		t.Errorf("expected suspended, got %q", st)
	}

	s.PushInteger(5)
	n, err = s.Resume(thread, 1)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if n != 1 || s.ToInteger(-1) != 10 {
		t.Fatalf("expected return 10, got %d values, top %v", n, s.ToInteger(-1))
	}
	s.Pop(n)
	if st, _ := s.ThreadStatus(thread); st != "dead" {
		t.Errorf("expected dead, got %q", st)
	}

	if _, err := s.Resume(thread, 0); err == nil {
		t.Fatal("expected error resuming dead thread")
	}
	s.Pop(1)
	if s.Top() != thread {
		t.Errorf("expected depth %d, got %d", thread, s.Top())
	}
}

func TestNewThreadRequiresFunction(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	s.PushInteger(1)
	if err := s.NewThread(); err == nil {
		t.Fatal("expected error for non-function")
	}
	if s.Top() != 1 {
		t.Errorf("expected stack untouched, got depth %d", s.Top())
	}
}

// ============================================================================
// Logging
// ============================================================================

func TestStateLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := luabridge.New(luabridge.WithLogger(zap.New(core)))

	opened := logs.FilterMessage("state opened").All()
	if len(opened) != 1 {
		t.Fatalf("expected one open event, got %d", len(opened))
	}
	if got := opened[0].ContextMap()["state"]; got != s.ID() {
		t.Errorf("state field = %v, want %s", got, s.ID())
	}

	s.PushString("kept")
	s.Ref()
	s.Close()
	closing := logs.FilterMessage("closing with outstanding references").All()
	if len(closing) != 1 || closing[0].ContextMap()["refs"] != int64(1) {
		t.Errorf("expected outstanding reference event, got %v", closing)
	}
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	luabridge.SetLogger(zap.New(core))
	defer luabridge.SetLogger(nil)

	s := luabridge.New()
	defer s.Close()
	s.Log().Info("hello")

	if logs.FilterMessage("hello").Len() != 1 {
		t.Errorf("expected state logger to write through the package logger")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := luabridge.NewLogger("debug"); err != nil {
		t.Errorf("NewLogger(debug) failed: %v", err)
	}
	if _, err := luabridge.NewLogger("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMainFromCallback(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	var main *luabridge.State
	var sameID bool
	s.AddFunction("probe", func(cs *luabridge.State) (int, error) {
		main = cs.Main()
		sameID = cs.ID() == s.ID()
		return 0, nil
	})
	if err := s.DoString(`probe()`, "=t"); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}
	if main != s {
		t.Error("Main from a callback did not return the creating state")
	}
	if !sameID {
		t.Error("callback view reported a different ID")
	}
}
