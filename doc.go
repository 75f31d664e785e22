// Package luabridge exposes an embedded Lua 5.4 interpreter to a host.
//
// # Overview
//
// luabridge wraps the interpreter's stack API one operation at a time and
// turns the interpreter's non-local errors into ordinary Go results. It
// provides:
//
//   - State lifecycle, library opening and coroutine threads
//   - Stack marshaling: push, typed reads, checked argument reads
//   - A reference registry for anchoring values across calls
//   - Table, userdata and metatable access
//   - Protected calls with error extraction into fixed-size buffers
//   - Host functions callable from Lua, and Lua functions callable from Go
//
// The same operations are exported to C by cmd/libluabridge.
//
// # Quick Start
//
//	import "github.com/feather-lang/luabridge"
//
//	func main() {
//	    s := luabridge.New()
//	    defer s.Close()
//
//	    // Run a chunk
//	    if err := s.DoString(`x = 6 * 7`, "=main"); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Read a global
//	    s.PushGlobal("x")
//	    fmt.Println(s.ToInteger(-1)) // 42
//	    s.Pop(1)
//
//	    // Register Go functions
//	    s.Register("double", func(x int) int { return x * 2 })
//	    vals, _ := s.Eval("return double(21)", "=eval") // [42]
//	}
//
// # Host Functions
//
// A [Func] works on the stack directly. Arguments are at indices 1..n; the
// function pushes its results and returns their count. Returning an error
// raises it in Lua:
//
//	s.AddFunction("add", func(s *luabridge.State) (int, error) {
//	    a, err := s.CheckInteger(1)
//	    if err != nil {
//	        return 0, err // bad argument #1 to 'add' (number expected, got nil)
//	    }
//	    b, err := s.CheckInteger(2)
//	    if err != nil {
//	        return 0, err
//	    }
//	    s.PushInteger(a + b)
//	    return 1, nil
//	})
//
// Functions live in the state's [FuncTable]. Every Lua value created for a
// function keeps its entry alive until the value is collected.
//
// # Errors
//
// Loading and calling return an [*Error] whose Status mirrors the
// interpreter's result codes. The error value itself is left on the stack
// where the interpreter left it; [State.DoBuffer] and [State.ExecFunc]
// instead copy it into an [ErrorBuffer] and pop it:
//
//	buf := luabridge.NewErrorBuffer(256)
//	if st := s.DoBuffer([]byte("x = "), "=chunk", buf); st != luabridge.StatusOK {
//	    fmt.Println(st, buf.String()) // syntax error chunk:1: unexpected symbol near <eof>
//	}
//
// # References
//
// [State.Ref] pops a value and returns a handle that keeps it reachable.
// Handles are reused after [State.Unref]; a released handle pushes nil.
//
// # Supported Type Conversions
//
// Go to Lua ([State.PushAny]):
//   - nil → nil
//   - bool → boolean
//   - integers → integer, floats → number
//   - string, []byte → string
//   - []T, [N]T → sequence table
//   - map[K]V → table
//   - Func, func(...) → function
//
// Lua to Go ([State.ToAny]):
//   - integer → int64, number → float64
//   - string → string
//   - sequence table → []any, other table → map[any]any
//   - function → *Closure
package luabridge
