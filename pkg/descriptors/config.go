package descriptors

import (
	"encoding/binary"
	"fmt"

	"github.com/srg/gattkit/pkg/bits"
	"github.com/srg/gattkit/pkg/gatt"
)

// flagWord decodes a 2-byte configuration word whose low `used` bits are
// assigned. Reserved bits are dropped and reported.
func flagWord(raw []byte, field string, used int) (uint16, []gatt.ParseFieldError) {
	v := binary.LittleEndian.Uint16(raw)
	if reserved := bits.Extract(v, used, 16-used); reserved != 0 {
		return bits.Extract(v, 0, used), []gatt.ParseFieldError{
			gatt.FieldErrorAt(field, raw, 0, 2, fmt.Sprintf("reserved bits set: 0x%04X", v&^bits.Mask[uint16](0, used))),
		}
	}
	return v, nil
}

// ExtendedProperties represents the Characteristic Extended Properties descriptor (0x2900)
type ExtendedProperties struct {
	ReliableWrite       bool `json:"reliable_write"`
	WritableAuxiliaries bool `json:"writable_auxiliaries"`
}

// ExtendedPropertiesCodec is the 2-byte extended properties word:
// bit 0 = Reliable Write, bit 1 = Writable Auxiliaries.
type ExtendedPropertiesCodec struct{}

func (ExtendedPropertiesCodec) Info() gatt.Info                     { return extendedPropertiesInfo }
func (ExtendedPropertiesCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(2) }

func (ExtendedPropertiesCodec) DecodeValue(raw []byte, _ *gatt.Context) (ExtendedProperties, []gatt.ParseFieldError) {
	v, errs := flagWord(raw, "extended_properties", 2)
	return ExtendedProperties{
		ReliableWrite:       bits.Test(v, 0),
		WritableAuxiliaries: bits.Test(v, 1),
	}, errs
}

func (ExtendedPropertiesCodec) EncodeValue(p ExtendedProperties) ([]byte, error) {
	var v uint16
	v = bits.Assign(v, 0, p.ReliableWrite)
	v = bits.Assign(v, 1, p.WritableAuxiliaries)
	return binary.LittleEndian.AppendUint16(nil, v), nil
}

// ClientConfig represents the Client Characteristic Configuration descriptor (0x2902)
type ClientConfig struct {
	Notifications bool `json:"notifications"`
	Indications   bool `json:"indications"`
}

// ClientConfigFor returns the configuration that subscribes to whatever
// props allow, preferring notifications.
func ClientConfigFor(props gatt.Properties) ClientConfig {
	if props.Has(gatt.PropNotify) {
		return ClientConfig{Notifications: true}
	}
	return ClientConfig{Indications: props.Has(gatt.PropIndicate)}
}

// ClientConfigCodec is the CCCD: bit 0 = Notifications, bit 1 = Indications.
type ClientConfigCodec struct{}

func (ClientConfigCodec) Info() gatt.Info                     { return clientConfigInfo }
func (ClientConfigCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(2) }

func (ClientConfigCodec) DecodeValue(raw []byte, _ *gatt.Context) (ClientConfig, []gatt.ParseFieldError) {
	v, errs := flagWord(raw, "client_config", 2)
	return ClientConfig{
		Notifications: bits.Test(v, 0),
		Indications:   bits.Test(v, 1),
	}, errs
}

func (ClientConfigCodec) EncodeValue(c ClientConfig) ([]byte, error) {
	var v uint16
	v = bits.Assign(v, 0, c.Notifications)
	v = bits.Assign(v, 1, c.Indications)
	return binary.LittleEndian.AppendUint16(nil, v), nil
}

// ServerConfig represents the Server Characteristic Configuration descriptor (0x2903)
type ServerConfig struct {
	Broadcasts bool `json:"broadcasts"`
}

// ServerConfigCodec is the SCCD: bit 0 = Broadcasts.
type ServerConfigCodec struct{}

func (ServerConfigCodec) Info() gatt.Info                     { return serverConfigInfo }
func (ServerConfigCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(2) }

func (ServerConfigCodec) DecodeValue(raw []byte, _ *gatt.Context) (ServerConfig, []gatt.ParseFieldError) {
	v, errs := flagWord(raw, "server_config", 1)
	return ServerConfig{Broadcasts: bits.Test(v, 0)}, errs
}

func (ServerConfigCodec) EncodeValue(c ServerConfig) ([]byte, error) {
	var v uint16
	v = bits.Assign(v, 0, c.Broadcasts)
	return binary.LittleEndian.AppendUint16(nil, v), nil
}
