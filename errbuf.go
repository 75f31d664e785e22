package luabridge

// ErrorBuffer is a fixed-capacity destination for error messages.
//
// Messages longer than the buffer are truncated. In the default mode the
// buffer always ends up NUL-terminated with the unused tail zeroed, so a C
// caller can read it as a string. In legacy mode the message bytes are copied
// as-is with no terminator, up to the full capacity.
type ErrorBuffer struct {
	buf []byte
	n   int
}

// NewErrorBuffer allocates a buffer of the given capacity.
func NewErrorBuffer(size int) *ErrorBuffer {
	return &ErrorBuffer{buf: make([]byte, size)}
}

// WrapErrorBuffer uses caller-owned storage as the buffer.
func WrapErrorBuffer(b []byte) *ErrorBuffer {
	return &ErrorBuffer{buf: b}
}

// Cap returns the buffer capacity.
func (b *ErrorBuffer) Cap() int { return len(b.buf) }

// Len returns the number of message bytes written by the last copy.
func (b *ErrorBuffer) Len() int { return b.n }

// Bytes returns the message bytes written by the last copy.
func (b *ErrorBuffer) Bytes() []byte { return b.buf[:b.n] }

// String returns the message written by the last copy.
func (b *ErrorBuffer) String() string { return string(b.buf[:b.n]) }

// Raw returns the whole underlying storage.
func (b *ErrorBuffer) Raw() []byte { return b.buf }

// Reset zeroes the buffer.
func (b *ErrorBuffer) Reset() {
	clear(b.buf)
	b.n = 0
}

func (b *ErrorBuffer) set(msg string, legacy bool) {
	if b == nil {
		return
	}
	b.n = CopyError(b.buf, msg, legacy)
}

// CopyError copies msg into dst and returns the number of message bytes
// written.
//
// By default at most len(dst)-1 bytes are copied, followed by a NUL and
// zeros up to the end of dst. With legacy set, up to len(dst) bytes are
// copied and the rest of dst is left untouched.
func CopyError(dst []byte, msg string, legacy bool) int {
	if len(dst) == 0 {
		return 0
	}
	if legacy {
		return copy(dst, msg)
	}
	n := copy(dst[:len(dst)-1], msg)
	clear(dst[n:])
	return n
}
