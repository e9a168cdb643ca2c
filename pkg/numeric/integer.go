package numeric

import (
	"encoding/binary"
	"fmt"
)

// SignExtend interprets the low width bits of v as a two's complement number.
func SignExtend(v uint64, width int) int64 {
	if width < 1 || width > 64 {
		panic(fmt.Sprintf("numeric: invalid sign width %d", width))
	}
	shift := uint(64 - width)
	return int64(v<<shift) >> shift
}

// Uint24 reads a little-endian 24-bit unsigned integer.
func Uint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// PutUint24 writes v as a little-endian 24-bit unsigned integer.
func PutUint24(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// Int24 reads a little-endian 24-bit signed integer.
func Int24(b []byte) int32 {
	return int32(SignExtend(uint64(Uint24(b)), 24))
}

// PutInt24 writes v as a little-endian 24-bit signed integer.
func PutInt24(b []byte, v int32) {
	PutUint24(b, uint32(v)&0xFFFFFF)
}

// Uint48 reads a little-endian 48-bit unsigned integer.
func Uint48(b []byte) uint64 {
	_ = b[5]
	return uint64(binary.LittleEndian.Uint32(b[0:4])) | uint64(binary.LittleEndian.Uint16(b[4:6]))<<32
}

// PutUint48 writes v as a little-endian 48-bit unsigned integer.
func PutUint48(b []byte, v uint64) {
	_ = b[5]
	binary.LittleEndian.PutUint32(b[0:4], uint32(v))
	binary.LittleEndian.PutUint16(b[4:6], uint16(v>>32))
}
