package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/feather-lang/luabridge"
)

// session accumulates REPL input until it forms a complete chunk, then
// evaluates it.
type session struct {
	s     *luabridge.State
	input string
}

// pending reports whether a partial chunk is waiting for more lines.
func (ss *session) pending() bool { return ss.input != "" }

// reset discards a partial chunk.
func (ss *session) reset() { ss.input = "" }

// feed adds a line. It returns the printed results of the chunk once it is
// complete, or more=true when the chunk still needs input.
func (ss *session) feed(line string) (out string, more bool, err error) {
	if ss.input != "" {
		ss.input += "\n" + line
	} else {
		ss.input = line
	}
	src := ss.input

	top := ss.s.Top()
	defer ss.s.SetTop(top)

	// Expressions print their value, as in the standalone interpreter.
	if err := ss.s.LoadString("return "+src, "=stdin"); err != nil {
		ss.s.SetTop(top)
		if err := ss.s.LoadString(src, "=stdin"); err != nil {
			if incomplete(err) {
				return "", true, nil
			}
			ss.input = ""
			return "", false, err
		}
	}
	ss.input = ""

	if err := ss.s.PCall(0, luabridge.MultRet); err != nil {
		return "", false, err
	}
	var parts []string
	for i := top + 1; i <= ss.s.Top(); i++ {
		v, err := ss.s.ToAny(i)
		if err != nil {
			parts = append(parts, ss.s.TypeName(i))
			continue
		}
		parts = append(parts, format(v))
		luabridge.ReleaseAll(v)
	}
	return strings.Join(parts, "\t"), false, nil
}

// incomplete reports whether a syntax error was caused by the chunk ending
// early.
func incomplete(err error) bool {
	return strings.HasSuffix(err.Error(), "<eof>")
}

// format renders one result value.
func format(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', 14, 64)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return fmt.Sprintf("userdata(%d bytes)", len(val))
	case *luabridge.Closure:
		return "function"
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatNested(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case map[any]any:
		keys := make([]string, 0, len(val))
		byKey := make(map[string]any, len(val))
		for k, e := range val {
			ks := format(k)
			keys = append(keys, ks)
			byKey[ks] = e
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " = " + formatNested(byKey[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func formatNested(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return format(v)
}
