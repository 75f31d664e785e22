package luabridge

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zombiezen.com/go/lua"
)

// State is a handle to a Lua interpreter.
//
// Create one with [New] and always call [State.Close] when done.
// A State is not safe for concurrent use from multiple goroutines.
//
// Foreign functions receive their own *State for the duration of the call.
// It shares the interpreter with the State that created it but sees only the
// stack frame of the call.
//
//	s := luabridge.New()
//	defer s.Close()
//	if err := s.DoString(`x = 6 * 7`, "=main"); err != nil { ... }
type State struct {
	l  *lua.State
	vm *vm
}

// vm is the interpreter-wide part of a State, shared by every callback view.
type vm struct {
	id      string
	main    *State
	active  *State // innermost view, used by Closure.Call
	cfg     Config
	log     *zap.Logger
	refs    *refRegistry
	funcs   *FuncTable
	layouts map[string]*Layout
	closed  bool

	trampoline lua.Function
	unpin      lua.Function
}

// New creates a State with all standard libraries open.
//
// Allocation failure of the interpreter is fatal and panics.
func New(opts ...Option) *State {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := NewFromConfig(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// NewFromConfig creates a State from cfg.
// It fails only if cfg names an unknown library.
func NewFromConfig(cfg Config) (*State, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("luabridge: %w", err)
	}

	v := &vm{
		id:      uuid.NewString(),
		cfg:     cfg,
		refs:    newRefRegistry(),
		funcs:   NewFuncTable(cfg.MaxFunctions),
		layouts: make(map[string]*Layout),
	}
	base := cfg.Logger
	if base == nil {
		base = Logger()
	}
	v.log = base.With(zap.String("state", v.id))
	v.trampoline = v.dispatch
	v.unpin = v.releasePin

	s := &State{l: new(lua.State), vm: v}
	v.main = s
	v.active = s

	s.l.CreateTable(0, 0)
	s.l.RawSetField(lua.RegistryIndex, refTableKey)

	libs := cfg.Libraries
	if libs == nil {
		libs = AllLibraries
	}
	if len(libs) > 0 {
		if err := s.OpenLibraries(libs...); err != nil {
			s.Close()
			return nil, err
		}
	}

	v.log.Debug("state opened", zap.Strings("libraries", libs))
	return s, nil
}

// Close releases the interpreter together with every reference and foreign
// function it holds. Close is idempotent. It must be called on the State
// returned by [New], not on a callback view, and not while a foreign
// function is running.
func (s *State) Close() error {
	if s != s.vm.main || s.vm.active != s {
		return ErrCallbackState
	}
	if s.vm.closed {
		return nil
	}
	if n := s.vm.refs.count(); n > 0 {
		s.vm.log.Debug("closing with outstanding references", zap.Int("refs", n))
	}
	err := s.l.Close()
	s.vm.closed = true
	released := s.vm.funcs.reset()
	s.vm.refs.reset()
	s.vm.active = s
	s.vm.log.Debug("state closed", zap.Int("functions_released", released))
	return err
}

// ID returns the unique identifier of the interpreter.
// Callback views report the same ID as the State that created them.
func (s *State) ID() string { return s.vm.id }

// Closed reports whether Close has been called.
func (s *State) Closed() bool { return s.vm.closed }

// Main returns the State created by [New] for this interpreter.
func (s *State) Main() *State { return s.vm.main }

// Config returns the configuration the State was created with.
func (s *State) Config() Config { return s.vm.cfg }

// Log returns the logger of the state. It carries the state ID as a field.
func (s *State) Log() *zap.Logger { return s.vm.log }

// ensure grows the stack by n slots or panics.
// Inside a foreign function the panic surfaces as a Lua error.
func (s *State) ensure(n int) {
	if !s.l.CheckStack(n) {
		panic(ErrStackOverflow)
	}
}
