package gatt

import (
	"strings"

	"github.com/go-ble/ble"
)

// FromBLE converts a go-ble UUID (little-endian bytes) into a UUID.
func FromBLE(u ble.UUID) (UUID, error) {
	return ParseUUID(u.String())
}

// BLE converts u into the go-ble representation, using the 16-bit form for
// SIG UUIDs the way go-ble itself does.
func (u UUID) BLE() ble.UUID {
	if short, ok := u.Short(); ok {
		return ble.UUID16(short)
	}
	parsed, err := ble.Parse(strings.ToLower(u.String()))
	if err != nil {
		// 32 hex digits always parse
		panic(err)
	}
	return parsed
}

// PropertiesFromBLE maps go-ble characteristic property flags.
func PropertiesFromBLE(p ble.Property) Properties {
	var props Properties
	if p&ble.CharBroadcast != 0 {
		props |= PropBroadcast
	}
	if p&ble.CharRead != 0 {
		props |= PropRead
	}
	if p&ble.CharWriteNR != 0 {
		props |= PropWriteWithoutResponse
	}
	if p&ble.CharWrite != 0 {
		props |= PropWrite
	}
	if p&ble.CharNotify != 0 {
		props |= PropNotify
	}
	if p&ble.CharIndicate != 0 {
		props |= PropIndicate
	}
	if p&ble.CharSignedWrite != 0 {
		props |= PropAuthenticatedSignedWrites
	}
	if p&ble.CharExtended != 0 {
		props |= PropExtendedProperties
	}
	return props
}
