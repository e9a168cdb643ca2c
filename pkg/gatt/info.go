package gatt

import "fmt"

// Kind tells which Bluetooth SIG assigned-numbers table an Info record comes from.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCharacteristic
	KindService
	KindDescriptor
	KindUnit
)

func (k Kind) String() string {
	switch k {
	case KindCharacteristic:
		return "characteristic"
	case KindService:
		return "service"
	case KindDescriptor:
		return "descriptor"
	case KindUnit:
		return "unit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ValueType is the declared value type of a characteristic.
type ValueType string

const (
	ValueUnknown ValueType = ""
	ValueBool    ValueType = "boolean"
	ValueUint8   ValueType = "uint8"
	ValueUint16  ValueType = "uint16"
	ValueUint24  ValueType = "uint24"
	ValueUint32  ValueType = "uint32"
	ValueSint8   ValueType = "sint8"
	ValueSint16  ValueType = "sint16"
	ValueSint32  ValueType = "sint32"
	ValueSFloat  ValueType = "medfloat16"
	ValueFloat   ValueType = "medfloat32"
	ValueUTF8    ValueType = "utf8s"
	ValueStruct  ValueType = "struct"
	ValueBytes   ValueType = "bytes"
)

// Info is the immutable Bluetooth SIG metadata of one characteristic,
// service, descriptor or unit.
type Info struct {
	UUID      UUID      `json:"uuid"`
	Name      string    `json:"name"`
	ID        string    `json:"id,omitempty"`
	Kind      Kind      `json:"kind"`
	Unit      string    `json:"unit,omitempty"`
	ValueType ValueType `json:"value_type,omitempty"`
	Aliases   []string  `json:"aliases,omitempty"`
}

// Label is "Battery Level (2A19)", used in messages and logs.
func (i Info) Label() string {
	if i.Name == "" {
		return i.UUID.ShortString()
	}
	return fmt.Sprintf("%s (%s)", i.Name, i.UUID.ShortString())
}

// UnknownInfo is the placeholder used for UUIDs missing from every registry.
func UnknownInfo(u UUID, kind Kind) Info {
	return Info{UUID: u, Name: "Unknown", Kind: kind}
}
