// Package descriptors holds the GATT descriptor codecs (0x2900-0x2906) and
// the explicit table that registers them.
//
// Descriptor codecs implement the same gatt.TypedCodec contract as
// characteristics: a length gate, then best-effort decoding with per-field
// errors. Valid Range reads the sibling Presentation Format through
// gatt.Context.Descriptors to type its bounds.
package descriptors

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/internal/bledb"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/registry"
)

// Name is the closed enum of built-in descriptors.
type Name string

const (
	NameExtendedProperties Name = "characteristic_extended_properties"
	NameUserDescription    Name = "characteristic_user_description"
	NameClientConfig       Name = "client_characteristic_configuration"
	NameServerConfig       Name = "server_characteristic_configuration"
	NamePresentationFormat Name = "characteristic_presentation_format"
	NameAggregateFormat    Name = "characteristic_aggregate_format"
	NameValidRange         Name = "valid_range"
)

var (
	extendedPropertiesInfo = info(0x2900)
	userDescriptionInfo    = info(0x2901)
	clientConfigInfo       = info(0x2902)
	serverConfigInfo       = info(0x2903)
	presentationFormatInfo = info(0x2904)
	aggregateFormatInfo    = info(0x2905)
	validRangeInfo         = info(0x2906)
)

// Registration is one row of the descriptor class table.
type Registration = registry.Registration[Name, gatt.Codec]

// Registry is the class registry type for descriptors.
type Registry = registry.ClassRegistry[Name, gatt.Codec]

func entry[T any](name Name, newCodec func() gatt.TypedCodec[T]) Registration {
	return Registration{
		UUID: newCodec().Info().UUID,
		Name: name,
		New:  func() gatt.Codec { return gatt.Erase(newCodec()) },
	}
}

// Registrations returns the built-in descriptor table.
func Registrations() []Registration {
	return []Registration{
		entry(NameExtendedProperties, func() gatt.TypedCodec[ExtendedProperties] { return ExtendedPropertiesCodec{} }),
		entry(NameUserDescription, func() gatt.TypedCodec[string] { return UserDescriptionCodec{} }),
		entry(NameClientConfig, func() gatt.TypedCodec[ClientConfig] { return ClientConfigCodec{} }),
		entry(NameServerConfig, func() gatt.TypedCodec[ServerConfig] { return ServerConfigCodec{} }),
		entry(NamePresentationFormat, func() gatt.TypedCodec[PresentationFormat] { return PresentationFormatCodec{} }),
		entry(NameAggregateFormat, func() gatt.TypedCodec[AggregateFormat] { return AggregateFormatCodec{} }),
		entry(NameValidRange, func() gatt.TypedCodec[ValidRange] { return ValidRangeCodec{} }),
	}
}

// NewRegistry builds a descriptor class registry seeded with Registrations.
func NewRegistry(logger *logrus.Logger) *Registry {
	return registry.NewClassRegistry[Name, gatt.Codec]("descriptor", Registrations, logger)
}

func info(short uint16) gatt.Info {
	return bledb.MustInfo(gatt.KindDescriptor, short)
}
