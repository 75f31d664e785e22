// exports.go provides the C API exports for libluabridge.
// Build with: go build -buildmode=c-shared -o libluabridge.so .
package main

/*
#include <stdlib.h>
#include <stdint.h>
#include <string.h>

// Handle type for states (size_t to match Go's export).
typedef size_t LuaHandle;

// Host entry point for foreign functions. It receives the index given to
// LuaPushFunction and the state handle, reads its arguments with the Lua*
// getters, pushes its results and returns how many it pushed. A negative
// return raises a generic error; LuaError and LuaTypeError raise a specific
// one.
typedef int (*LuaDispatch)(void *data, int fnIndex, LuaHandle L);

static inline int callDispatch(LuaDispatch fn, void *data, int fnIndex, LuaHandle L) {
    return fn(data, fnIndex, L);
}
*/
import "C"

import (
	"bytes"
	"unsafe"

	"go.uber.org/zap"

	"github.com/feather-lang/luabridge"
)

// =============================================================================
// Internal state management using integer handles (not Go pointers)
// =============================================================================

// exportState holds state for an exported interpreter.
type exportState struct {
	handle uint64
	dispatchState

	dispatcher   C.LuaDispatch
	dispatchData unsafe.Pointer

	// Scratch C buffer returned by string getters. Valid until the next
	// call that returns a string on the same state.
	scratch    *C.char
	scratchCap C.size_t
}

var states = newHandleTable[*exportState]()

func getExportState(L C.LuaHandle) *exportState {
	st, _ := states.get(uint64(L))
	return st
}

// lookup resolves a handle to the state C code currently operates on.
func lookup(L C.LuaHandle) (*exportState, *luabridge.State) {
	st := getExportState(L)
	if st == nil {
		return nil, nil
	}
	return st, st.cur()
}

// cstring copies s into the scratch buffer.
func (st *exportState) cstring(s string, outLen *C.size_t) *C.char {
	need := C.size_t(len(s) + 1)
	if need > st.scratchCap {
		p := (*C.char)(C.realloc(unsafe.Pointer(st.scratch), need))
		if p == nil {
			return nil
		}
		st.scratch, st.scratchCap = p, need
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(st.scratch)), int(need))
	copy(buf, s)
	buf[len(s)] = 0
	if outLen != nil {
		*outLen = C.size_t(len(s))
	}
	return st.scratch
}

// trampoline returns the Func behind a value pushed with LuaPushFunction.
func (st *exportState) trampoline(fnIndex int) luabridge.Func {
	return func(cs *luabridge.State) (int, error) {
		if st.dispatcher == nil {
			return 0, cs.RaiseError("no dispatcher installed for function %d", fnIndex)
		}
		return st.enter(cs, fnIndex, func() int {
			return int(C.callDispatch(st.dispatcher, st.dispatchData, C.int(fnIndex), C.LuaHandle(st.handle)))
		})
	}
}

func goBytes(p *C.char, n C.size_t) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}

// cBuffer views caller-owned C memory as a byte slice.
func cBuffer(p *C.char, n C.size_t) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// Lifecycle
// =============================================================================

func register(s *luabridge.State) C.LuaHandle {
	st := &exportState{dispatchState: dispatchState{main: s}}
	st.handle = states.add(st)
	s.Log().Debug("export handle issued", zap.Uint64("handle", st.handle))
	return C.LuaHandle(st.handle)
}

//export LuaNewState
func LuaNewState() C.LuaHandle {
	return register(luabridge.New())
}

//export LuaNewStateConfig
func LuaNewStateConfig(path *C.char) C.LuaHandle {
	cfg, err := luabridge.LoadConfig(C.GoString(path))
	if err != nil {
		luabridge.Logger().Warn("cannot load config", zap.Error(err))
		return 0
	}
	s, err := luabridge.NewFromConfig(cfg)
	if err != nil {
		luabridge.Logger().Warn("cannot create state", zap.Error(err))
		return 0
	}
	return register(s)
}

//export LuaCloseState
func LuaCloseState(L C.LuaHandle) {
	if st := getExportState(L); st == nil || st.dispatching() {
		return
	}
	st, ok := states.remove(uint64(L))
	if !ok {
		return
	}
	st.main.Close()
	if st.scratch != nil {
		C.free(unsafe.Pointer(st.scratch))
		st.scratch = nil
	}
}

//export LuaStateID
func LuaStateID(L C.LuaHandle) *C.char {
	st := getExportState(L)
	if st == nil {
		return nil
	}
	return st.cstring(st.main.ID(), nil)
}

//export LuaSetLogLevel
func LuaSetLogLevel(level *C.char) C.int {
	log, err := luabridge.NewLogger(C.GoString(level))
	if err != nil {
		return -1
	}
	luabridge.SetLogger(log)
	return 0
}

//export LuaOpenLibrary
func LuaOpenLibrary(L C.LuaHandle, name *C.char) C.int {
	st, s := lookup(L)
	if st == nil {
		return -1
	}
	if err := s.OpenLibraries(C.GoString(name)); err != nil {
		st.fail("openlibrary", err)
		return -1
	}
	return 0
}

// =============================================================================
// Load and call
// =============================================================================

//export LuaLoadString
func LuaLoadString(L C.LuaHandle, src *C.char, length C.size_t, name *C.char) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.StatusErrRun)
	}
	err := s.Load(goBytes(src, length), C.GoString(name))
	return C.int(luabridge.StatusOf(err))
}

//export LuaPcall
func LuaPcall(L C.LuaHandle, nArgs, nResults C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.StatusErrRun)
	}
	return C.int(luabridge.StatusOf(s.PCall(int(nArgs), int(nResults))))
}

//export LuaDoBuffer
func LuaDoBuffer(L C.LuaHandle, src *C.char, length C.size_t, name *C.char, errBuf *C.char, errLen C.size_t) C.int {
	_, s := lookup(L)
	if s == nil {
		copyOut(cBuffer(errBuf, errLen), "invalid state handle", false)
		return C.int(luabridge.StatusErrRun)
	}
	st := s.DoBuffer(goBytes(src, length), C.GoString(name), wrapOut(cBuffer(errBuf, errLen)))
	return C.int(st)
}

//export LuaExecFunc
func LuaExecFunc(L C.LuaHandle, nArgs, nResults C.int, errBuf *C.char, errLen C.size_t) C.int {
	_, s := lookup(L)
	if s == nil {
		copyOut(cBuffer(errBuf, errLen), "invalid state handle", false)
		return C.int(luabridge.StatusErrRun)
	}
	return C.int(s.ExecFunc(int(nArgs), int(nResults), wrapOut(cBuffer(errBuf, errLen))))
}

// =============================================================================
// Stack
// =============================================================================

//export LuaGetTop
func LuaGetTop(L C.LuaHandle) C.int {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.int(s.Top())
}

//export LuaSetTop
func LuaSetTop(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.SetTop(int(idx))
	}
}

//export LuaPop
func LuaPop(L C.LuaHandle, n C.int) {
	if _, s := lookup(L); s != nil {
		s.Pop(int(n))
	}
}

//export LuaCheckStack
func LuaCheckStack(L C.LuaHandle, n C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return cbool(s.CheckStack(int(n)))
}

//export LuaAbsIndex
func LuaAbsIndex(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.int(s.AbsIndex(int(idx)))
}

//export LuaRemove
func LuaRemove(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.Remove(int(idx))
	}
}

//export LuaInsert
func LuaInsert(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.Insert(int(idx))
	}
}

//export LuaReplace
func LuaReplace(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.Replace(int(idx))
	}
}

//export LuaPushValue
func LuaPushValue(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.PushValue(int(idx))
	}
}

//export LuaStackDump
func LuaStackDump(L C.LuaHandle, buf *C.char, length C.size_t) C.size_t {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	var out bytes.Buffer
	s.StackDump(&out)
	return C.size_t(copyOut(cBuffer(buf, length), out.String(), false))
}

// =============================================================================
// Push
// =============================================================================

//export LuaPushNil
func LuaPushNil(L C.LuaHandle) {
	if _, s := lookup(L); s != nil {
		s.PushNil()
	}
}

//export LuaPushInteger
func LuaPushInteger(L C.LuaHandle, n C.int64_t) {
	if _, s := lookup(L); s != nil {
		s.PushInteger(int64(n))
	}
}

//export LuaPushNumber
func LuaPushNumber(L C.LuaHandle, n C.double) {
	if _, s := lookup(L); s != nil {
		s.PushNumber(float64(n))
	}
}

//export LuaPushBoolean
func LuaPushBoolean(L C.LuaHandle, b C.int) {
	if _, s := lookup(L); s != nil {
		s.PushBoolean(b != 0)
	}
}

//export LuaPushString
func LuaPushString(L C.LuaHandle, str *C.char, length C.size_t) {
	if _, s := lookup(L); s != nil {
		s.PushString(C.GoStringN(str, C.int(length)))
	}
}

//export LuaPushLightUserdata
func LuaPushLightUserdata(L C.LuaHandle, p C.uintptr_t) {
	if _, s := lookup(L); s != nil {
		s.PushLightUserdata(uintptr(p))
	}
}

//export LuaPushGlobal
func LuaPushGlobal(L C.LuaHandle, name *C.char) C.int {
	st, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	tp, err := s.PushGlobal(C.GoString(name))
	if err != nil {
		st.fail("getglobal", err)
		return C.int(luabridge.TypeNone)
	}
	return C.int(tp)
}

// =============================================================================
// Predicates and reads
// =============================================================================

//export LuaType
func LuaType(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	return C.int(s.Type(int(idx)))
}

//export LuaTypeName
func LuaTypeName(L C.LuaHandle, idx C.int) *C.char {
	st, s := lookup(L)
	if s == nil {
		return nil
	}
	return st.cstring(s.TypeName(int(idx)), nil)
}

//export LuaIsNumber
func LuaIsNumber(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsNumber(int(idx)))
}

//export LuaIsInteger
func LuaIsInteger(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsInteger(int(idx)))
}

//export LuaIsString
func LuaIsString(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsString(int(idx)))
}

//export LuaIsBoolean
func LuaIsBoolean(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsBoolean(int(idx)))
}

//export LuaIsNil
func LuaIsNil(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsNil(int(idx)))
}

//export LuaIsNone
func LuaIsNone(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s == nil || s.IsNone(int(idx)))
}

//export LuaIsTable
func LuaIsTable(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsTable(int(idx)))
}

//export LuaIsFunction
func LuaIsFunction(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsFunction(int(idx)))
}

//export LuaIsUserdata
func LuaIsUserdata(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsUserdata(int(idx)))
}

//export LuaIsThread
func LuaIsThread(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.IsThread(int(idx)))
}

//export LuaGetInteger
func LuaGetInteger(L C.LuaHandle, idx C.int) C.int64_t {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.int64_t(s.ToInteger(int(idx)))
}

//export LuaGetNumber
func LuaGetNumber(L C.LuaHandle, idx C.int) C.double {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.double(s.ToNumber(int(idx)))
}

//export LuaGetBoolean
func LuaGetBoolean(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.ToBoolean(int(idx)))
}

//export LuaGetString
func LuaGetString(L C.LuaHandle, idx C.int, length *C.size_t) *C.char {
	st, s := lookup(L)
	if s == nil {
		return nil
	}
	str, ok := s.ToString(int(idx))
	if !ok {
		return nil
	}
	return st.cstring(str, length)
}

//export LuaGetPointer
func LuaGetPointer(L C.LuaHandle, idx C.int) C.uintptr_t {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.uintptr_t(s.ToPointer(int(idx)))
}

//export LuaRawLen
func LuaRawLen(L C.LuaHandle, idx C.int) C.size_t {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.size_t(s.RawLen(int(idx)))
}

// =============================================================================
// Require family (raise through the pending error inside a dispatch)
// =============================================================================

//export LuaRequireInteger
func LuaRequireInteger(L C.LuaHandle, arg C.int) C.int64_t {
	st, s := lookup(L)
	if s == nil {
		return 0
	}
	n, err := s.CheckInteger(int(arg))
	if err != nil {
		st.fail("checkinteger", err)
		return 0
	}
	return C.int64_t(n)
}

//export LuaRequireNumber
func LuaRequireNumber(L C.LuaHandle, arg C.int) C.double {
	st, s := lookup(L)
	if s == nil {
		return 0
	}
	n, err := s.CheckNumber(int(arg))
	if err != nil {
		st.fail("checknumber", err)
		return 0
	}
	return C.double(n)
}

//export LuaRequireString
func LuaRequireString(L C.LuaHandle, arg C.int, length *C.size_t) *C.char {
	st, s := lookup(L)
	if s == nil {
		return nil
	}
	str, err := s.CheckString(int(arg))
	if err != nil {
		st.fail("checkstring", err)
		return nil
	}
	return st.cstring(str, length)
}

//export LuaRequireType
func LuaRequireType(L C.LuaHandle, arg, tp C.int) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if err := s.CheckType(int(arg), luabridge.Type(tp)); err != nil {
		st.fail("checktype", err)
		return -1
	}
	return 0
}

//export LuaError
func LuaError(L C.LuaHandle, msg *C.char) C.int {
	st, s := lookup(L)
	if s == nil || !st.raise("error", s.RaiseError("%s", C.GoString(msg))) {
		return -1
	}
	return 0
}

//export LuaTypeError
func LuaTypeError(L C.LuaHandle, arg C.int, tname *C.char) C.int {
	st, s := lookup(L)
	if s == nil || !st.raise("typeerror", s.TypeError(int(arg), C.GoString(tname))) {
		return -1
	}
	return 0
}

// =============================================================================
// References
// =============================================================================

//export LuaRef
func LuaRef(L C.LuaHandle) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.NoRef)
	}
	return C.int(s.Ref())
}

//export LuaUnref
func LuaUnref(L C.LuaHandle, ref C.int) {
	if _, s := lookup(L); s != nil {
		s.Unref(luabridge.Ref(ref))
	}
}

//export LuaPushRef
func LuaPushRef(L C.LuaHandle, ref C.int) {
	if _, s := lookup(L); s != nil {
		s.PushRef(luabridge.Ref(ref))
	}
}

//export LuaRefCount
func LuaRefCount(L C.LuaHandle) C.int {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	return C.int(s.RefCount())
}

// =============================================================================
// Tables and registry
// =============================================================================

//export LuaNewTable
func LuaNewTable(L C.LuaHandle) {
	if _, s := lookup(L); s != nil {
		s.NewTable()
	}
}

//export LuaCreateTable
func LuaCreateTable(L C.LuaHandle, nArr, nRec C.int) {
	if _, s := lookup(L); s != nil {
		s.CreateTable(int(nArr), int(nRec))
	}
}

//export LuaGetTable
func LuaGetTable(L C.LuaHandle, idx C.int) C.int {
	st, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	tp, err := s.GetTable(int(idx))
	if err != nil {
		st.fail("gettable", err)
		return C.int(luabridge.TypeNone)
	}
	return C.int(tp)
}

//export LuaGetField
func LuaGetField(L C.LuaHandle, idx C.int, k *C.char) C.int {
	st, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	tp, err := s.GetField(int(idx), C.GoString(k))
	if err != nil {
		st.fail("getfield", err)
		return C.int(luabridge.TypeNone)
	}
	return C.int(tp)
}

//export LuaSetTable
func LuaSetTable(L C.LuaHandle, idx C.int) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if err := s.SetTable(int(idx)); err != nil {
		st.fail("settable", err)
		return -1
	}
	return 0
}

//export LuaSetField
func LuaSetField(L C.LuaHandle, idx C.int, k *C.char) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if err := s.SetField(int(idx), C.GoString(k)); err != nil {
		st.fail("setfield", err)
		return -1
	}
	return 0
}

//export LuaSetGlobal
func LuaSetGlobal(L C.LuaHandle, name *C.char) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if err := s.SetGlobal(C.GoString(name)); err != nil {
		st.fail("setglobal", err)
		return -1
	}
	return 0
}

//export LuaRawGet
func LuaRawGet(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	return C.int(s.RawGet(int(idx)))
}

//export LuaRawSet
func LuaRawSet(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.RawSet(int(idx))
	}
}

//export LuaRawGetIndex
func LuaRawGetIndex(L C.LuaHandle, idx C.int, n C.int64_t) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	return C.int(s.RawGetIndex(int(idx), int64(n)))
}

//export LuaRawSetIndex
func LuaRawSetIndex(L C.LuaHandle, idx C.int, n C.int64_t) {
	if _, s := lookup(L); s != nil {
		s.RawSetIndex(int(idx), int64(n))
	}
}

//export LuaNext
func LuaNext(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.Next(int(idx)))
}

//export LuaGetRegistry
func LuaGetRegistry(L C.LuaHandle) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	return C.int(s.GetRegistry())
}

//export LuaSetRegistry
func LuaSetRegistry(L C.LuaHandle) {
	if _, s := lookup(L); s != nil {
		s.SetRegistry()
	}
}

// =============================================================================
// Metatables and userdata
// =============================================================================

//export LuaNewMetatable
func LuaNewMetatable(L C.LuaHandle, name *C.char) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.NewMetatable(C.GoString(name)))
}

//export LuaPushMetatable
func LuaPushMetatable(L C.LuaHandle, name *C.char) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNone)
	}
	return C.int(s.PushMetatable(C.GoString(name)))
}

//export LuaGetMetatable
func LuaGetMetatable(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	return cbool(s != nil && s.GetMetatable(int(idx)))
}

//export LuaSetMetatable
func LuaSetMetatable(L C.LuaHandle, idx C.int) {
	if _, s := lookup(L); s != nil {
		s.SetMetatable(int(idx))
	}
}

//export LuaSetMetatableName
func LuaSetMetatableName(L C.LuaHandle, idx C.int, name *C.char) {
	if _, s := lookup(L); s != nil {
		s.SetMetatableName(int(idx), C.GoString(name))
	}
}

//export LuaGetMetafield
func LuaGetMetafield(L C.LuaHandle, idx C.int, e *C.char) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.TypeNil)
	}
	return C.int(s.GetMetafield(int(idx), C.GoString(e)))
}

// Userdata blocks are Go memory and are never handed to C directly; they are
// read and written by copy.

//export LuaNewUserdata
func LuaNewUserdata(L C.LuaHandle, size C.size_t) {
	if _, s := lookup(L); s != nil {
		s.NewUserdata(int(size))
	}
}

//export LuaUserdataSize
func LuaUserdataSize(L C.LuaHandle, idx C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return -1
	}
	data, ok := s.ToUserdata(int(idx))
	if !ok {
		return -1
	}
	return C.int(len(data))
}

//export LuaRequireUserdata
func LuaRequireUserdata(L C.LuaHandle, arg C.int, tname *C.char) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	data, err := s.CheckUserdata(int(arg), C.GoString(tname))
	if err != nil {
		st.fail("checkudata", err)
		return -1
	}
	return C.int(len(data))
}

//export LuaUserdataRead
func LuaUserdataRead(L C.LuaHandle, idx C.int, offset C.size_t, dst *C.char, n C.size_t) C.size_t {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	data, ok := s.ToUserdata(int(idx))
	if !ok {
		return 0
	}
	span, ok := userdataSpan(data, uint64(offset))
	if !ok {
		return 0
	}
	return C.size_t(copy(cBuffer(dst, n), span))
}

//export LuaUserdataWrite
func LuaUserdataWrite(L C.LuaHandle, idx C.int, offset C.size_t, src *C.char, n C.size_t) C.size_t {
	_, s := lookup(L)
	if s == nil {
		return 0
	}
	data, ok := s.ToUserdata(int(idx))
	if !ok {
		return 0
	}
	span, ok := userdataSpan(data, uint64(offset))
	if !ok {
		return 0
	}
	return C.size_t(copy(span, cBuffer(src, n)))
}

// =============================================================================
// Threads
// =============================================================================

//export LuaNewThread
func LuaNewThread(L C.LuaHandle) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if err := s.NewThread(); err != nil {
		st.fail("newthread", err)
		return -1
	}
	return 0
}

//export LuaResume
func LuaResume(L C.LuaHandle, threadIdx, nArgs C.int, nResults *C.int) C.int {
	_, s := lookup(L)
	if s == nil {
		return C.int(luabridge.StatusErrRun)
	}
	n, err := s.Resume(int(threadIdx), int(nArgs))
	if nResults != nil {
		*nResults = C.int(n)
	}
	return C.int(luabridge.StatusOf(err))
}

//export LuaThreadStatus
func LuaThreadStatus(L C.LuaHandle, idx C.int) *C.char {
	st, s := lookup(L)
	if s == nil {
		return nil
	}
	status, err := s.ThreadStatus(int(idx))
	if err != nil {
		return nil
	}
	return st.cstring(status, nil)
}

// =============================================================================
// Foreign functions
// =============================================================================

//export LuaSetDispatcher
func LuaSetDispatcher(L C.LuaHandle, fn C.LuaDispatch, data unsafe.Pointer) {
	st := getExportState(L)
	if st == nil {
		return
	}
	st.dispatcher = fn
	st.dispatchData = data
}

//export LuaPushFunction
func LuaPushFunction(L C.LuaHandle, fnIndex C.int) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if _, err := s.PushFunction(st.trampoline(int(fnIndex))); err != nil {
		st.fail("pushfunction", err)
		return -1
	}
	return 0
}

//export LuaAddFunction
func LuaAddFunction(L C.LuaHandle, name *C.char, fnIndex C.int) C.int {
	st, s := lookup(L)
	if s == nil {
		return -1
	}
	if err := s.AddFunction(C.GoString(name), st.trampoline(int(fnIndex))); err != nil {
		st.fail("addfunction", err)
		return -1
	}
	return 0
}

func main() {}
