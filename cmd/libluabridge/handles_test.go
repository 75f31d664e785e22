package main

import (
	"testing"
)

func TestHandleTable(t *testing.T) {
	h := newHandleTable[string]()

	a := h.add("a")
	b := h.add("b")
	if a == 0 || b == 0 || a == b {
		t.Fatalf("bad handles %d %d", a, b)
	}
	if v, ok := h.get(a); !ok || v != "a" {
		t.Errorf("get(a) = %q, %v", v, ok)
	}
	if _, ok := h.get(0); ok {
		t.Error("handle 0 resolved")
	}

	if v, ok := h.remove(a); !ok || v != "a" {
		t.Errorf("remove(a) = %q, %v", v, ok)
	}
	if _, ok := h.remove(a); ok {
		t.Error("double remove succeeded")
	}
	if _, ok := h.get(a); ok {
		t.Error("removed handle still resolves")
	}
	if c := h.add("c"); c == a {
		t.Error("removed handle reissued")
	}
	if h.len() != 2 {
		t.Errorf("len = %d, want 2", h.len())
	}
}

func TestViewStack(t *testing.T) {
	var v viewStack[int]
	if got := v.top(-1); got != -1 {
		t.Errorf("empty top = %d", got)
	}
	v.push(1)
	v.push(2)
	if got := v.top(-1); got != 2 || v.depth() != 2 {
		t.Errorf("top = %d depth %d", got, v.depth())
	}
	v.pop()
	if got := v.top(-1); got != 1 {
		t.Errorf("after pop top = %d", got)
	}
	v.pop()
	if v.depth() != 0 {
		t.Errorf("depth = %d", v.depth())
	}
}

func TestCopyOut(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		msg    string
		legacy bool
		want   string
		n      int
	}{
		{"fits", 6, "err", false, "err\x00\x00\x00", 3},
		{"truncated", 4, "error!", false, "err\x00", 3},
		{"legacy", 4, "error!", true, "erro", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.size)
			n := copyOut(dst, tt.msg, tt.legacy)
			if n != tt.n || string(dst) != tt.want {
				t.Errorf("copyOut = %d %q, want %d %q", n, dst, tt.n, tt.want)
			}
		})
	}
}

func TestUserdataSpan(t *testing.T) {
	data := []byte("abcd")
	tests := []struct {
		name   string
		offset uint64
		want   string
		ok     bool
	}{
		{"start", 0, "abcd", true},
		{"middle", 2, "cd", true},
		{"end", 4, "", true},
		{"past end", 5, "", false},
		{"huge", ^uint64(0), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := userdataSpan(data, tt.offset)
			if ok != tt.ok || string(span) != tt.want {
				t.Errorf("userdataSpan(%d) = %q, %v, want %q, %v", tt.offset, span, ok, tt.want, tt.ok)
			}
		})
	}
}
