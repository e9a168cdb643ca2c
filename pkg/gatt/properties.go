package gatt

import "strings"

// Properties is the GATT characteristic properties bit field.
type Properties uint8

const (
	PropBroadcast Properties = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
	PropAuthenticatedSignedWrites
	PropExtendedProperties
)

var propertyNames = []struct {
	prop Properties
	name string
}{
	{PropBroadcast, "Broadcast"},
	{PropRead, "Read"},
	{PropWriteWithoutResponse, "WriteWithoutResponse"},
	{PropWrite, "Write"},
	{PropNotify, "Notify"},
	{PropIndicate, "Indicate"},
	{PropAuthenticatedSignedWrites, "AuthenticatedSignedWrites"},
	{PropExtendedProperties, "ExtendedProperties"},
}

// Has reports whether every bit of p2 is set in p.
func (p Properties) Has(p2 Properties) bool {
	return p&p2 == p2
}

// Names returns the names of the set properties in bit order.
func (p Properties) Names() []string {
	var names []string
	for _, pn := range propertyNames {
		if p&pn.prop != 0 {
			names = append(names, pn.name)
		}
	}
	return names
}

func (p Properties) String() string {
	return strings.Join(p.Names(), "|")
}

// MarshalText renders properties as "Read|Notify".
func (p Properties) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
