// Package bits provides bit-range extraction and insertion primitives over
// unsigned integers, as used by GATT flag fields and packed payloads.
//
// All functions are pure. A (start, width) pair that does not fit the
// container type is a programming error, so these functions panic instead of
// returning an error.
package bits

import (
	"fmt"
	mathbits "math/bits"
)

// Unsigned is the set of containers the bit-field functions operate on.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Width returns the number of bits in T.
func Width[T Unsigned]() int {
	return mathbits.Len64(uint64(^T(0)))
}

func checkRange[T Unsigned](start, width int) {
	w := Width[T]()
	if start < 0 || width < 1 || start+width > w {
		panic(fmt.Sprintf("bits: range start=%d width=%d exceeds %d-bit container", start, width, w))
	}
}

func checkBit[T Unsigned](bit int) {
	w := Width[T]()
	if bit < 0 || bit >= w {
		panic(fmt.Sprintf("bits: bit %d outside %d-bit container", bit, w))
	}
}

// Mask returns a value with width bits set starting at bit start.
func Mask[T Unsigned](start, width int) T {
	checkRange[T](start, width)
	ones := ^T(0)
	if width < Width[T]() {
		ones = (T(1) << uint(width)) - 1
	}
	return ones << uint(start)
}

// Extract returns the width-bit field of value that begins at bit start.
func Extract[T Unsigned](value T, start, width int) T {
	return (value & Mask[T](start, width)) >> uint(start)
}

// Set returns value with the width-bit field at start replaced by field.
// Panics if field does not fit in width bits.
func Set[T Unsigned](value, field T, start, width int) T {
	m := Mask[T](start, width)
	if field > m>>uint(start) {
		panic(fmt.Sprintf("bits: field 0x%x does not fit in %d bits", uint64(field), width))
	}
	return (value &^ m) | (field << uint(start))
}

// Test reports whether bit is set in value.
func Test[T Unsigned](value T, bit int) bool {
	checkBit[T](bit)
	return value&(T(1)<<uint(bit)) != 0
}

// SetBit returns value with bit set.
func SetBit[T Unsigned](value T, bit int) T {
	checkBit[T](bit)
	return value | T(1)<<uint(bit)
}

// ClearBit returns value with bit cleared.
func ClearBit[T Unsigned](value T, bit int) T {
	checkBit[T](bit)
	return value &^ (T(1) << uint(bit))
}

// Toggle returns value with bit flipped.
func Toggle[T Unsigned](value T, bit int) T {
	checkBit[T](bit)
	return value ^ T(1)<<uint(bit)
}

// Assign sets or clears bit depending on on.
func Assign[T Unsigned](value T, bit int, on bool) T {
	if on {
		return SetBit(value, bit)
	}
	return ClearBit(value, bit)
}

// RotateLeft rotates value left by k bits within the width of T.
// Negative k rotates right.
func RotateLeft[T Unsigned](value T, k int) T {
	w := Width[T]()
	k %= w
	if k < 0 {
		k += w
	}
	if k == 0 {
		return value
	}
	return value<<uint(k) | value>>uint(w-k)
}

// RotateRight rotates value right by k bits within the width of T.
func RotateRight[T Unsigned](value T, k int) T {
	return RotateLeft(value, -k)
}

// Reverse returns value with the order of all its bits reversed.
func Reverse[T Unsigned](value T) T {
	w := Width[T]()
	return T(mathbits.Reverse64(uint64(value)) >> uint(64-w))
}

// ReverseField reverses the bit order inside the width-bit field at start,
// leaving the rest of value untouched.
func ReverseField[T Unsigned](value T, start, width int) T {
	field := uint64(Extract(value, start, width))
	reversed := T(mathbits.Reverse64(field) >> uint(64-width))
	return Set(value, reversed, start, width)
}

// PopCount returns the number of set bits in value.
func PopCount[T Unsigned](value T) int {
	return mathbits.OnesCount64(uint64(value))
}
