package luabridge

import (
	"zombiezen.com/go/lua"
)

// Ref is a handle to a value anchored by the State.
// A live handle keeps its value reachable until it is released with Unref.
type Ref int

const (
	// RefNil is returned by Ref for a nil value. It always pushes nil.
	RefNil Ref = -1
	// NoRef is never issued. Use it to mark an empty handle variable.
	NoRef Ref = -2
)

// refTableKey names the registry table holding referenced values.
const refTableKey = "luabridge.refs"

// refRegistry tracks which handles are live and which may be reissued.
type refRegistry struct {
	live map[Ref]struct{}
	free []Ref // released handles, reissued last-in first-out
	last Ref   // highest handle issued so far
}

func newRefRegistry() *refRegistry {
	return &refRegistry{live: make(map[Ref]struct{})}
}

func (r *refRegistry) alloc() Ref {
	var ref Ref
	if n := len(r.free); n > 0 {
		ref = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.last++
		ref = r.last
	}
	r.live[ref] = struct{}{}
	return ref
}

func (r *refRegistry) release(ref Ref) bool {
	if _, ok := r.live[ref]; !ok {
		return false
	}
	delete(r.live, ref)
	r.free = append(r.free, ref)
	return true
}

func (r *refRegistry) isLive(ref Ref) bool {
	_, ok := r.live[ref]
	return ok
}

func (r *refRegistry) count() int { return len(r.live) }

func (r *refRegistry) reset() {
	clear(r.live)
	r.free = r.free[:0]
	r.last = 0
}

func (s *State) pushRefTable() {
	s.l.RawField(lua.RegistryIndex, refTableKey)
}

// Ref pops the top value and returns a handle to it.
// A nil value yields RefNil and takes no slot.
func (s *State) Ref() Ref {
	l := s.l
	if l.IsNil(-1) {
		l.Pop(1)
		return RefNil
	}
	s.ensure(1)
	ref := s.vm.refs.alloc()
	s.pushRefTable()
	l.Rotate(-2, 1)
	l.RawSetIndex(-2, int64(ref))
	l.Pop(1)
	return ref
}

// Unref releases ref. Releasing RefNil, NoRef, an unknown handle or an
// already released handle does nothing.
func (s *State) Unref(ref Ref) {
	if ref <= 0 || !s.vm.refs.release(ref) {
		return
	}
	l := s.l
	s.ensure(2)
	s.pushRefTable()
	l.PushNil()
	l.RawSetIndex(-2, int64(ref))
	l.Pop(1)
}

// PushRef pushes the value behind ref. A released or never issued handle
// pushes nil; use CheckRef to tell the two apart.
func (s *State) PushRef(ref Ref) {
	l := s.l
	if ref <= 0 {
		l.PushNil()
		return
	}
	s.ensure(2)
	s.pushRefTable()
	l.RawIndex(-1, int64(ref))
	l.Remove(-2)
}

// CheckRef reports ErrInvalidRef unless ref is live or RefNil.
func (s *State) CheckRef(ref Ref) error {
	if ref == RefNil || s.vm.refs.isLive(ref) {
		return nil
	}
	return ErrInvalidRef
}

// RefCount returns the number of live handles.
func (s *State) RefCount() int { return s.vm.refs.count() }
