package codec

import (
	"bytes"
	"encoding/binary"
	"math"
)

var le = binary.LittleEndian

func getF64(src []byte, off int) float64 {
	return math.Float64frombits(le.Uint64(src[off : off+8]))
}

func putF64(dst []byte, off int, v float64) {
	le.PutUint64(dst[off:off+8], math.Float64bits(v))
}

func getI32(src []byte, off int) int32 {
	return int32(le.Uint32(src[off : off+4]))
}

func putI32(dst []byte, off int, v int32) {
	le.PutUint32(dst[off:off+4], uint32(v))
}

func getI64(src []byte, off int) int64 {
	return int64(le.Uint64(src[off : off+8]))
}

func putI64(dst []byte, off int, v int64) {
	le.PutUint64(dst[off:off+8], uint64(v))
}

// CString reads a fixed-width, NUL-padded char array.
// Bytes after the first NUL and trailing spaces are discarded.
func CString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(bytes.TrimRight(src, " "))
}

func putCString(dst []byte, s string) {
	n := copy(dst, s)
	clear(dst[n:])
}

func alloc(dst []byte, size int) []byte {
	if cap(dst) < size {
		return make([]byte, size)
	}
	dst = dst[:size]
	clear(dst)
	return dst
}
