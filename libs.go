package luabridge

import (
	"fmt"

	"zombiezen.com/go/lua"
)

// Standard library names accepted by [State.OpenLibraries].
const (
	BaseLibrary      = "base"
	PackageLibrary   = lua.PackageLibraryName
	CoroutineLibrary = lua.CoroutineLibraryName
	TableLibrary     = lua.TableLibraryName
	StringLibrary    = lua.StringLibraryName
	MathLibrary      = lua.MathLibraryName
	UTF8Library      = lua.UTF8LibraryName
	DebugLibrary     = lua.DebugLibraryName
)

// AllLibraries is the set opened by default, in opening order.
var AllLibraries = []string{
	BaseLibrary,
	PackageLibrary,
	CoroutineLibrary,
	TableLibrary,
	StringLibrary,
	MathLibrary,
	UTF8Library,
	DebugLibrary,
}

var libraryOpeners = map[string]func(*lua.State){
	BaseLibrary:      lua.PushOpenBase,
	PackageLibrary:   lua.PushOpenPackage,
	CoroutineLibrary: lua.PushOpenCoroutine,
	TableLibrary:     lua.PushOpenTable,
	StringLibrary:    lua.PushOpenString,
	MathLibrary:      lua.PushOpenMath,
	UTF8Library:      lua.PushOpenUTF8,
	DebugLibrary:     lua.PushOpenDebug,
}

// OpenLibraries opens the named standard libraries, or all of them when no
// name is given. Each library is stored in package.loaded and bound to a
// global of the same name; the base library populates the globals table.
// Opening a library twice is a no-op.
func (s *State) OpenLibraries(names ...string) error {
	if len(names) == 0 {
		names = AllLibraries
	}
	for _, name := range names {
		open, ok := libraryOpeners[name]
		if !ok {
			return fmt.Errorf("luabridge: unknown library %q", name)
		}
		modName := name
		if name == BaseLibrary {
			modName = lua.GName
		}
		if err := s.requireLibrary(modName, open); err != nil {
			return err
		}
	}
	return nil
}

// requireLibrary opens a library once, records it in the loaded table and
// binds it to the global modName.
func (s *State) requireLibrary(modName string, open func(*lua.State)) error {
	l := s.l
	s.ensure(4)
	s.pushSubtable(lua.RegistryIndex, lua.LoadedTable)
	l.RawField(-1, modName)
	if !l.ToBoolean(-1) {
		l.Pop(1)
		open(l)
		l.PushString(modName)
		if err := l.Call(1, 1, 0); err != nil {
			e := s.errorAtTop(StatusErrRun, "open", modName, err)
			l.Pop(2)
			return e
		}
		l.PushValue(-1)
		l.RawSetField(-3, modName)
	}
	l.Remove(-2)

	l.RawIndex(lua.RegistryIndex, lua.RegistryIndexGlobals)
	l.Rotate(-2, 1)
	l.RawSetField(-2, modName)
	l.Pop(1)
	return nil
}

// pushSubtable pushes t[name] for the table at idx, creating it when absent.
// It reports whether the table already existed.
func (s *State) pushSubtable(idx int, name string) bool {
	l := s.l
	idx = l.AbsIndex(idx)
	if l.RawField(idx, name) == lua.TypeTable {
		return true
	}
	l.Pop(1)
	l.CreateTable(0, 0)
	l.PushValue(-1)
	l.RawSetField(idx, name)
	return false
}

// ----------------------------------------------------------------------------
// Threads
// ----------------------------------------------------------------------------

const coroutineKey = "luabridge.coroutine"

// pushCoroutineLib pushes a private copy of the coroutine library so threads
// work even when the script-visible library was not opened or was replaced.
func (s *State) pushCoroutineLib() error {
	l := s.l
	s.ensure(3)
	if l.RawField(lua.RegistryIndex, coroutineKey) == lua.TypeTable {
		return nil
	}
	l.Pop(1)
	lua.PushOpenCoroutine(l)
	if err := l.Call(0, 1, 0); err != nil {
		e := s.errorAtTop(StatusErrRun, "open", CoroutineLibrary, err)
		l.Pop(1)
		return e
	}
	l.PushValue(-1)
	l.RawSetField(lua.RegistryIndex, coroutineKey)
	return nil
}

// pushCoroutineFunc pushes coroutine[name] from the private library.
func (s *State) pushCoroutineFunc(name string) error {
	if err := s.pushCoroutineLib(); err != nil {
		return err
	}
	s.l.RawField(-1, name)
	s.l.Remove(-2)
	return nil
}

// NewThread pops a function and pushes a new thread that will run it.
// The thread shares the globals of the State.
func (s *State) NewThread() error {
	l := s.l
	if l.Top() == 0 {
		return fmt.Errorf("luabridge: new thread: expected function, got no value")
	}
	if !l.IsFunction(-1) {
		return fmt.Errorf("luabridge: new thread: expected function, got %s", s.TypeName(-1))
	}
	if err := s.pushCoroutineFunc("create"); err != nil {
		return err
	}
	l.Rotate(-2, 1)
	if err := l.Call(1, 1, 0); err != nil {
		e := s.errorAtTop(StatusErrRun, "newthread", "", err)
		l.Pop(1)
		return e
	}
	return nil
}

// Resume resumes the thread at threadIdx with the nArgs values on top of the
// stack. On success the arguments are replaced by the values the thread
// yielded or returned, and their count is returned. On failure the
// arguments are replaced by the error value.
func (s *State) Resume(threadIdx, nArgs int) (int, error) {
	l := s.l
	threadIdx = l.AbsIndex(threadIdx)
	if !l.IsThread(threadIdx) {
		return 0, fmt.Errorf("luabridge: resume: expected thread, got %s", s.TypeName(threadIdx))
	}
	base := l.Top() - nArgs
	if err := s.pushCoroutineFunc("resume"); err != nil {
		return 0, err
	}
	s.ensure(1)
	l.Rotate(base+1, 1)
	l.PushValue(threadIdx)
	l.Rotate(base+2, 1)
	if err := l.Call(nArgs+1, lua.MultipleReturns, 0); err != nil {
		return 0, s.errorAtTop(StatusErrRun, "resume", "", err)
	}
	if !l.ToBoolean(base + 1) {
		l.Remove(base + 1)
		l.SetTop(base + 1)
		return 0, s.errorAtTop(StatusErrRun, "resume", "", nil)
	}
	l.Remove(base + 1)
	return l.Top() - base, nil
}

// ThreadStatus returns "suspended", "running", "normal" or "dead" for the
// thread at idx.
func (s *State) ThreadStatus(idx int) (string, error) {
	l := s.l
	idx = l.AbsIndex(idx)
	if !l.IsThread(idx) {
		return "", fmt.Errorf("luabridge: thread status: expected thread, got %s", s.TypeName(idx))
	}
	if err := s.pushCoroutineFunc("status"); err != nil {
		return "", err
	}
	l.PushValue(idx)
	if err := l.Call(1, 1, 0); err != nil {
		e := s.errorAtTop(StatusErrRun, "status", "", err)
		l.Pop(1)
		return "", e
	}
	st, _ := l.ToString(-1)
	l.Pop(1)
	return st, nil
}
