package main

import (
	"strings"
	"testing"

	"github.com/feather-lang/luabridge"
)

func TestSessionFeed(t *testing.T) {
	s := luabridge.New()
	defer s.Close()
	ss := &session{s: s}

	tests := []struct {
		line string
		out  string
		more bool
	}{
		{"1 + 2", "3", false},
		{"x = 10", "", false},
		{"x, x * 2", "10\t20", false},
		{"function f(a)", "", true},
		{"  return a * 3", "", true},
		{"end", "", false},
		{"f(2)", "6", false},
		{"'hi'", "hi", false},
		{"{1, 'a', {k = true}}", `{1, "a", {k = true}}`, false},
		{"0.5", "0.5", false},
	}
	for _, tt := range tests {
		out, more, err := ss.feed(tt.line)
		if err != nil {
			t.Fatalf("feed(%q) failed: %v", tt.line, err)
		}
		if out != tt.out || more != tt.more {
			t.Errorf("feed(%q) = %q, %v; want %q, %v", tt.line, out, more, tt.out, tt.more)
		}
	}
	if s.Top() != 0 {
		t.Errorf("session left depth %d", s.Top())
	}
}

func TestSessionErrors(t *testing.T) {
	s := luabridge.New()
	defer s.Close()
	ss := &session{s: s}

	if _, _, err := ss.feed("x = = 1"); err == nil {
		t.Error("expected syntax error")
	}
	if ss.pending() {
		t.Error("syntax error left input pending")
	}
	_, _, err := ss.feed("error('boom', 0)")
	if err == nil || err.Error() != "boom" {
		t.Errorf("runtime error = %v", err)
	}

	ss.feed("for i = 1, 2 do")
	if !ss.pending() {
		t.Fatal("expected pending input")
	}
	ss.reset()
	if out, _, err := ss.feed("1"); err != nil || out != "1" {
		t.Errorf("after reset: %q, %v", out, err)
	}
}

func TestCompleteName(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	got := completeName(s, "string.up")
	if len(got) != 1 || got[0] != "string.upper" {
		t.Errorf("completeName(string.up) = %v", got)
	}
	got = completeName(s, "pri")
	if !strings.Contains(strings.Join(got, " "), "print") {
		t.Errorf("completeName(pri) = %v", got)
	}
	if got := completeName(s, "nosuch.x"); got != nil {
		t.Errorf("completeName(nosuch.x) = %v", got)
	}
	if s.Top() != 0 {
		t.Errorf("completion left depth %d", s.Top())
	}
}
