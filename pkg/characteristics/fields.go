package characteristics

import (
	"encoding/binary"
	"fmt"

	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/numeric"
)

// fieldReader walks a payload left to right. A field that runs past the end
// is recorded as a ParseFieldError and reported as absent; the reader stays
// usable so later fields are still attempted.
type fieldReader struct {
	raw  []byte
	off  int
	errs []gatt.ParseFieldError
}

func newFieldReader(raw []byte) *fieldReader {
	return &fieldReader{raw: raw}
}

func (r *fieldReader) take(field string, n int) ([]byte, bool) {
	if r.off+n > len(r.raw) {
		r.errs = append(r.errs, gatt.FieldErrorAt(field, r.raw, r.off, n,
			fmt.Sprintf("truncated: need %d bytes, have %d", n, len(r.raw)-r.off)))
		r.off = len(r.raw)
		return nil, false
	}
	b := r.raw[r.off : r.off+n]
	r.off += n
	return b, true
}

func (r *fieldReader) uint8(field string) (uint8, bool) {
	b, ok := r.take(field, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *fieldReader) uint16(field string) (uint16, bool) {
	b, ok := r.take(field, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

// sfloat reads an SFLOAT. A reserved code has no value to report, so it is
// recorded as a field error and read as absent.
func (r *fieldReader) sfloat(field string) (numeric.MedFloat, bool) {
	v, ok := r.uint16(field)
	if !ok {
		return numeric.NoValue(), false
	}
	return r.medFloat(field, 2, numeric.DecodeSFloat(v), "reserved SFLOAT value")
}

func (r *fieldReader) float(field string) (numeric.MedFloat, bool) {
	b, ok := r.take(field, 4)
	if !ok {
		return numeric.NoValue(), false
	}
	return r.medFloat(field, 4, numeric.DecodeFloat(binary.LittleEndian.Uint32(b)), "reserved FLOAT value")
}

func (r *fieldReader) medFloat(field string, n int, v numeric.MedFloat, reason string) (numeric.MedFloat, bool) {
	if v.Special == numeric.Reserved {
		r.fail(field, r.off-n, n, reason)
		return numeric.NoValue(), false
	}
	return v, true
}

// fail records a field problem at the given offset and width.
func (r *fieldReader) fail(field string, offset, n int, reason string) {
	r.errs = append(r.errs, gatt.FieldErrorAt(field, r.raw, offset, n, reason))
}

// remaining is the number of unread bytes.
func (r *fieldReader) remaining() int {
	return len(r.raw) - r.off
}

// trailing records unread bytes as a field error; callers use it when the
// layout leaves no room for extra data.
func (r *fieldReader) trailing() {
	if n := r.remaining(); n > 0 {
		r.fail("trailing", r.off, n, fmt.Sprintf("%d unexpected trailing bytes", n))
		r.off = len(r.raw)
	}
}

// fieldWriter is the encoding counterpart of fieldReader.
type fieldWriter struct {
	buf []byte
}

func (w *fieldWriter) uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *fieldWriter) uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *fieldWriter) sfloat(info gatt.Info, field string, v numeric.MedFloat) error {
	raw, err := numeric.EncodeSFloat(v)
	if err != nil {
		return &gatt.EncodeError{Info: info, Field: field, Value: v, Err: err}
	}
	w.uint16(raw)
	return nil
}

func (w *fieldWriter) float(info gatt.Info, field string, v numeric.MedFloat) error {
	raw, err := numeric.EncodeFloat(v)
	if err != nil {
		return &gatt.EncodeError{Info: info, Field: field, Value: v, Err: err}
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, raw)
	return nil
}

func (w *fieldWriter) bytes() []byte {
	return w.buf
}
