package main

import (
	"sync"
)

// handleTable maps integer handles to Go values so C code never holds a Go
// pointer. Handle 0 is never issued.
type handleTable[T any] struct {
	mu    sync.Mutex
	items map[uint64]T
	next  uint64
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{items: make(map[uint64]T), next: 1}
}

// add stores v and returns its handle.
func (h *handleTable[T]) add(v T) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.items[id] = v
	return id
}

// get retrieves the value for a handle.
func (h *handleTable[T]) get(id uint64) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.items[id]
	return v, ok
}

// remove deletes a handle and returns the value it held.
func (h *handleTable[T]) remove(id uint64) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.items[id]
	if ok {
		delete(h.items, id)
	}
	return v, ok
}

func (h *handleTable[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// viewStack tracks the callback states entered by nested dispatches. The
// innermost entry is the one C code is currently allowed to use.
type viewStack[T any] struct {
	views []T
}

func (v *viewStack[T]) push(x T) { v.views = append(v.views, x) }

func (v *viewStack[T]) pop() {
	var zero T
	v.views[len(v.views)-1] = zero
	v.views = v.views[:len(v.views)-1]
}

// top returns the innermost view, or def when no dispatch is running.
func (v *viewStack[T]) top(def T) T {
	if len(v.views) == 0 {
		return def
	}
	return v.views[len(v.views)-1]
}

func (v *viewStack[T]) depth() int { return len(v.views) }
