package characteristics

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/srg/gattkit/pkg/gatt"
)

var dateTimeInfo = info(0x2A08)

// DateTime is the 7-byte SIG date/time. A zero Year, Month or Day means
// "not known".
type DateTime struct {
	Year    uint16 `json:"year"`
	Month   uint8  `json:"month"`
	Day     uint8  `json:"day"`
	Hours   uint8  `json:"hours"`
	Minutes uint8  `json:"minutes"`
	Seconds uint8  `json:"seconds"`
}

// DateTimeFrom converts t, dropping sub-second precision and the zone.
func DateTimeFrom(t time.Time) DateTime {
	return DateTime{
		Year:    uint16(t.Year()),
		Month:   uint8(t.Month()),
		Day:     uint8(t.Day()),
		Hours:   uint8(t.Hour()),
		Minutes: uint8(t.Minute()),
		Seconds: uint8(t.Second()),
	}
}

// Time returns the value as a UTC time when the date is fully known.
func (d DateTime) Time() (time.Time, bool) {
	if d.Year == 0 || d.Month == 0 || d.Day == 0 {
		return time.Time{}, false
	}
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), int(d.Hours), int(d.Minutes), int(d.Seconds), 0, time.UTC), true
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hours, d.Minutes, d.Seconds)
}

type dateTimeField struct {
	name   string
	offset int
	width  int
	lo     int
	hi     int
	// zero is accepted as "unknown" even when below lo
	zeroOK bool
}

var dateTimeFields = []dateTimeField{
	{"year", 0, 2, 1582, 9999, true},
	{"month", 2, 1, 1, 12, true},
	{"day", 3, 1, 1, 31, true},
	{"hours", 4, 1, 0, 23, false},
	{"minutes", 5, 1, 0, 59, false},
	{"seconds", 6, 1, 0, 59, false},
}

func (f dateTimeField) valid(v int) bool {
	return (v == 0 && f.zeroOK) || (v >= f.lo && v <= f.hi)
}

// decodeDateTime reads 7 bytes at raw[offset:]. Out-of-range fields are set
// to zero and reported; prefix names the enclosing field in errors.
func decodeDateTime(raw []byte, offset int, prefix string) (DateTime, []gatt.ParseFieldError) {
	var errs []gatt.ParseFieldError
	values := make([]int, len(dateTimeFields))
	for i, f := range dateTimeFields {
		at := offset + f.offset
		v := int(raw[at])
		if f.width == 2 {
			v = int(binary.LittleEndian.Uint16(raw[at:]))
		}
		if !f.valid(v) {
			errs = append(errs, gatt.FieldErrorAt(prefix+f.name, raw, at, f.width, fmt.Sprintf("%d outside %d..%d", v, f.lo, f.hi)))
			v = 0
		}
		values[i] = v
	}
	return DateTime{
		Year:    uint16(values[0]),
		Month:   uint8(values[1]),
		Day:     uint8(values[2]),
		Hours:   uint8(values[3]),
		Minutes: uint8(values[4]),
		Seconds: uint8(values[5]),
	}, errs
}

func encodeDateTime(info gatt.Info, prefix string, d DateTime) ([]byte, error) {
	values := []int{int(d.Year), int(d.Month), int(d.Day), int(d.Hours), int(d.Minutes), int(d.Seconds)}
	for i, f := range dateTimeFields {
		if !f.valid(values[i]) {
			return nil, &gatt.EncodeError{Info: info, Field: prefix + f.name, Value: values[i], Reason: fmt.Sprintf("must be %d..%d", f.lo, f.hi)}
		}
	}
	out := binary.LittleEndian.AppendUint16(make([]byte, 0, 7), d.Year)
	return append(out, d.Month, d.Day, d.Hours, d.Minutes, d.Seconds), nil
}

// DateTimeCodec is the Date Time characteristic.
type DateTimeCodec struct{}

func (DateTimeCodec) Info() gatt.Info                     { return dateTimeInfo }
func (DateTimeCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(7) }

func (DateTimeCodec) DecodeValue(raw []byte, _ *gatt.Context) (DateTime, []gatt.ParseFieldError) {
	return decodeDateTime(raw, 0, "")
}

func (DateTimeCodec) EncodeValue(d DateTime) ([]byte, error) {
	return encodeDateTime(dateTimeInfo, "", d)
}
