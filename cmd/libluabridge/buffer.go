package main

import (
	"github.com/feather-lang/luabridge"
)

// copyOut writes msg into a caller-supplied error buffer with the copy
// semantics of the state's configuration and returns the bytes written.
func copyOut(dst []byte, msg string, legacy bool) int {
	return luabridge.CopyError(dst, msg, legacy)
}

// wrapOut views a caller-supplied buffer as an ErrorBuffer. A nil or empty
// buffer yields nil, which the call helpers treat as "discard".
func wrapOut(dst []byte) *luabridge.ErrorBuffer {
	if len(dst) == 0 {
		return nil
	}
	return luabridge.WrapErrorBuffer(dst)
}

// userdataSpan returns the part of a userdata block starting at offset.
// An offset past the end fails; one equal to the length yields an empty span.
func userdataSpan(data []byte, offset uint64) ([]byte, bool) {
	if offset > uint64(len(data)) {
		return nil, false
	}
	return data[offset:], true
}
