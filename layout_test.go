package luabridge_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/feather-lang/luabridge"
)

var pointFields = []luabridge.Field{
	{Name: "id", Type: "int"},
	{Name: "weight", Type: "double"},
	{Name: "tag", Type: "string5"},
}

func TestLayoutOffsets(t *testing.T) {
	tests := []struct {
		name    string
		align   bool
		offsets []int
		size    int
	}{
		{"aligned", true, []int{0, 8, 16}, 24},
		{"packed", false, []int{0, 4, 12}, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ly, err := luabridge.NewLayout("point", pointFields, tt.align)
			if err != nil {
				t.Fatalf("NewLayout failed: %v", err)
			}
			var got []int
			for _, name := range ly.Fields() {
				off, _ := ly.Offset(name)
				got = append(got, off)
			}
			if diff := cmp.Diff(tt.offsets, got); diff != "" {
				t.Errorf("offsets mismatch (-want +got):\n%s", diff)
			}
			if ly.Size() != tt.size {
				t.Errorf("Size = %d, want %d", ly.Size(), tt.size)
			}
		})
	}
}

func TestLayoutInvalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []luabridge.Field
	}{
		{"unknown type", []luabridge.Field{{Name: "a", Type: "short"}}},
		{"bad string size", []luabridge.Field{{Name: "a", Type: "stringx"}}},
		{"duplicate", []luabridge.Field{{Name: "a", Type: "int"}, {Name: "a", Type: "long"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := luabridge.NewLayout("bad", tt.fields, false); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRecordFields(t *testing.T) {
	ly, err := luabridge.NewLayout("mixed", []luabridge.Field{
		{Name: "i", Type: "int"},
		{Name: "l", Type: "long"},
		{Name: "f", Type: "float"},
		{Name: "d", Type: "double"},
		{Name: "s", Type: "string5"},
	}, false)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	r, err := ly.Wrap(make([]byte, ly.Size()))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	r.SetInt("i", -3)
	r.SetLong("l", 1<<40)
	r.SetFloat("f", 1.5)
	r.SetDouble("d", -0.25)
	r.SetString("s", "abcdefgh")

	i, _ := r.Int("i")
	l, _ := r.Long("l")
	f, _ := r.Float("f")
	d, _ := r.Double("d")
	s, _ := r.String("s")
	if i != -3 || l != 1<<40 || f != 1.5 || d != -0.25 {
		t.Errorf("got i=%d l=%d f=%v d=%v", i, l, f, d)
	}
	if s != "abcde" {
		t.Errorf("string field = %q, want truncated %q", s, "abcde")
	}

	if _, err := r.Int("missing"); err == nil {
		t.Error("expected error for missing field")
	}
	if _, err := r.Long("i"); err == nil {
		t.Error("expected error for wrong field kind")
	}
}

func TestRecordLittleEndian(t *testing.T) {
	ly, _ := luabridge.NewLayout("one", []luabridge.Field{{Name: "n", Type: "int"}}, false)
	r, _ := ly.Wrap(make([]byte, 4))
	r.SetInt("n", 0x01020304)
	if diff := cmp.Diff([]byte{4, 3, 2, 1}, r.Bytes()); diff != "" {
		t.Errorf("bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestCast(t *testing.T) {
	wide, _ := luabridge.NewLayout("wide", []luabridge.Field{{Name: "v", Type: "long"}}, false)
	narrow, _ := luabridge.NewLayout("narrow", []luabridge.Field{{Name: "lo", Type: "int"}, {Name: "hi", Type: "int"}}, false)
	tooBig, _ := luabridge.NewLayout("big", []luabridge.Field{{Name: "v", Type: "string15"}}, false)

	r, _ := wide.Wrap(make([]byte, wide.Size()))
	r.SetLong("v", 7)
	view, err := luabridge.Cast(r, narrow)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	lo, _ := view.Int("lo")
	hi, _ := view.Int("hi")
	if lo != 7 || hi != 0 {
		t.Errorf("lo=%d hi=%d", lo, hi)
	}

	view.SetInt("hi", 1)
	if v, _ := r.Long("v"); v != 1<<32+7 {
		t.Errorf("write through cast not visible: %d", v)
	}

	if _, err := luabridge.Cast(r, tooBig); err == nil {
		t.Error("expected error casting to larger layout")
	}
}

func TestStateRecords(t *testing.T) {
	s := luabridge.New()
	defer s.Close()

	if _, err := s.DefineLayout("point", pointFields, true); err != nil {
		t.Fatalf("DefineLayout failed: %v", err)
	}
	r, err := s.NewRecord("point")
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if len(r.Bytes()) != 24 {
		t.Errorf("record size %d, want 24", len(r.Bytes()))
	}
	r.SetInt("id", 11)
	r.SetString("tag", "hi")

	again, err := s.RecordAt(-1, "point")
	if err != nil {
		t.Fatalf("RecordAt failed: %v", err)
	}
	id, _ := again.Int("id")
	tag, _ := again.String("tag")
	if id != 11 || tag != "hi" {
		t.Errorf("id=%d tag=%q", id, tag)
	}

	if _, err := s.NewRecord("nope"); !errors.Is(err, luabridge.ErrUnknownLayout) {
		t.Errorf("NewRecord(nope) = %v", err)
	}
	s.PushInteger(1)
	if _, err := s.RecordAt(-1, "point"); err == nil {
		t.Error("expected error for non-userdata")
	}
}
