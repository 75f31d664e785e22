package luabridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldKind is the storage type of a layout field.
type FieldKind int

const (
	FieldInt    FieldKind = iota // 32-bit signed integer
	FieldLong                    // 64-bit signed integer
	FieldFloat                   // 32-bit float
	FieldDouble                  // 64-bit float
	FieldString                  // NUL-terminated string of bounded length
)

func (k FieldKind) String() string {
	switch k {
	case FieldInt:
		return "int"
	case FieldLong:
		return "long"
	case FieldFloat:
		return "float"
	case FieldDouble:
		return "double"
	case FieldString:
		return "string"
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Field declares one field of a layout. Type is "int", "long", "float",
// "double" or "stringN", the last holding up to N bytes plus a terminator.
type Field struct {
	Name string
	Type string
}

type fieldInfo struct {
	offset int
	kind   FieldKind
	size   int
}

// Layout describes typed fields over a userdata block.
// Fields are little-endian and laid out in declaration order.
type Layout struct {
	name   string
	size   int
	fields map[string]fieldInfo
	order  []string
}

// NewLayout computes a layout. With align set every field starts on an
// 8-byte boundary.
func NewLayout(name string, fields []Field, align bool) (*Layout, error) {
	ly := &Layout{name: name, fields: make(map[string]fieldInfo, len(fields))}
	for _, f := range fields {
		if _, dup := ly.fields[f.Name]; dup {
			return nil, fmt.Errorf("layout %s: duplicate field %q", name, f.Name)
		}
		kind, size, err := parseFieldType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("layout %s: field %q: %w", name, f.Name, err)
		}
		ly.fields[f.Name] = fieldInfo{offset: ly.size, kind: kind, size: size}
		ly.order = append(ly.order, f.Name)
		if align {
			ly.size += (size + 7) / 8 * 8
		} else {
			ly.size += size
		}
	}
	return ly, nil
}

func parseFieldType(t string) (FieldKind, int, error) {
	switch t {
	case "int":
		return FieldInt, 4, nil
	case "long":
		return FieldLong, 8, nil
	case "float":
		return FieldFloat, 4, nil
	case "double":
		return FieldDouble, 8, nil
	}
	rest, ok := strings.CutPrefix(t, "string")
	if !ok {
		return 0, 0, fmt.Errorf("invalid type %q", t)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, 0, fmt.Errorf("invalid type %q", t)
	}
	return FieldString, n + 1, nil
}

// Name returns the layout name.
func (ly *Layout) Name() string { return ly.name }

// Size returns the number of bytes a record occupies.
func (ly *Layout) Size() int { return ly.size }

// Fields returns the field names in declaration order.
func (ly *Layout) Fields() []string { return append([]string(nil), ly.order...) }

// Offset returns the byte offset of a field.
func (ly *Layout) Offset(name string) (int, bool) {
	f, ok := ly.fields[name]
	return f.offset, ok
}

// Wrap views b as a record. b must hold at least Size bytes.
func (ly *Layout) Wrap(b []byte) (*Record, error) {
	if len(b) < ly.size {
		return nil, fmt.Errorf("layout %s: block of %d bytes is smaller than %d", ly.name, len(b), ly.size)
	}
	return &Record{layout: ly, data: b}, nil
}

// Record reads and writes the fields of a layout in a byte block.
type Record struct {
	layout *Layout
	data   []byte
}

// Layout returns the layout the record is viewed through.
func (r *Record) Layout() *Layout { return r.layout }

// Bytes returns the underlying block.
func (r *Record) Bytes() []byte { return r.data }

// Cast views the same block through another layout.
func Cast(r *Record, ly *Layout) (*Record, error) {
	return ly.Wrap(r.data)
}

func (r *Record) field(name string, kind FieldKind) ([]byte, error) {
	f, ok := r.layout.fields[name]
	if !ok {
		return nil, fmt.Errorf("layout %s: no field %q", r.layout.name, name)
	}
	if f.kind != kind {
		return nil, fmt.Errorf("layout %s: field %q is %s, not %s", r.layout.name, name, f.kind, kind)
	}
	return r.data[f.offset : f.offset+f.size], nil
}

// Int reads a 32-bit integer field.
func (r *Record) Int(name string) (int32, error) {
	b, err := r.field(name, FieldInt)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// SetInt stores a 32-bit integer field.
func (r *Record) SetInt(name string, v int32) error {
	b, err := r.field(name, FieldInt)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, uint32(v))
	return nil
}

// Long reads a 64-bit integer field.
func (r *Record) Long(name string) (int64, error) {
	b, err := r.field(name, FieldLong)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// SetLong stores a 64-bit integer field.
func (r *Record) SetLong(name string, v int64) error {
	b, err := r.field(name, FieldLong)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, uint64(v))
	return nil
}

// Float reads a 32-bit float field.
func (r *Record) Float(name string) (float32, error) {
	b, err := r.field(name, FieldFloat)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// SetFloat stores a 32-bit float field.
func (r *Record) SetFloat(name string, v float32) error {
	b, err := r.field(name, FieldFloat)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return nil
}

// Double reads a 64-bit float field.
func (r *Record) Double(name string) (float64, error) {
	b, err := r.field(name, FieldDouble)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// SetDouble stores a 64-bit float field.
func (r *Record) SetDouble(name string, v float64) error {
	b, err := r.field(name, FieldDouble)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return nil
}

// String reads a string field up to its terminator.
func (r *Record) String(name string) (string, error) {
	b, err := r.field(name, FieldString)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// SetString stores v, truncated to the field capacity, and terminates it.
func (r *Record) SetString(name string, v string) error {
	b, err := r.field(name, FieldString)
	if err != nil {
		return err
	}
	CopyError(b, v, false)
	return nil
}

// ----------------------------------------------------------------------------
// State integration
// ----------------------------------------------------------------------------

// DefineLayout computes a layout and registers it with the state under name,
// replacing any previous definition.
func (s *State) DefineLayout(name string, fields []Field, align bool) (*Layout, error) {
	ly, err := NewLayout(name, fields, align)
	if err != nil {
		return nil, err
	}
	s.vm.layouts[name] = ly
	return ly, nil
}

// Layout returns a layout registered with DefineLayout.
func (s *State) Layout(name string) (*Layout, bool) {
	ly, ok := s.vm.layouts[name]
	return ly, ok
}

// NewRecord pushes a new userdata sized for the named layout and returns a
// record over it.
func (s *State) NewRecord(layoutName string) (*Record, error) {
	ly, ok := s.vm.layouts[layoutName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, layoutName)
	}
	return ly.Wrap(s.NewUserdata(ly.size))
}

// RecordAt views the userdata at idx through the named layout.
func (s *State) RecordAt(idx int, layoutName string) (*Record, error) {
	ly, ok := s.vm.layouts[layoutName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, layoutName)
	}
	data, ok := s.ToUserdata(idx)
	if !ok {
		return nil, fmt.Errorf("luabridge: record: expected userdata, got %s", s.TypeName(idx))
	}
	return ly.Wrap(data)
}
