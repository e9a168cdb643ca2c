// Package catalog bundles the registries a translator resolves against.
//
// A Catalog is built from the explicit registration tables of the
// characteristics, descriptors and services packages. Default returns the
// process-wide instance; New builds an isolated one for tests or for callers
// that want their own custom bindings.
package catalog

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/internal/bledb"
	"github.com/srg/gattkit/pkg/characteristics"
	"github.com/srg/gattkit/pkg/descriptors"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/registry"
	"github.com/srg/gattkit/pkg/services"
)

// Catalog is the set of registries a translator consults. All registries load
// lazily on first lookup.
type Catalog struct {
	UUIDs           *registry.UUIDRegistry
	Characteristics *characteristics.Registry
	Descriptors     *descriptors.Registry
	Services        *services.Registry

	logger *logrus.Logger

	mu sync.Mutex
	// infoPushes counts the UUID registry entries each custom codec
	// registration stacked, so unregistering pops all of them.
	infoPushes map[gatt.UUID]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// New builds a catalog seeded with the built-in tables.
func New(logger *logrus.Logger) *Catalog {
	if logger == nil {
		logger = logrus.New()
	}
	return &Catalog{
		UUIDs:           registry.NewUUIDRegistry(bledb.All, logger),
		Characteristics: characteristics.NewRegistry(logger),
		Descriptors:     descriptors.NewRegistry(logger),
		Services:        services.NewRegistry(logger),
		logger:          logger,
		infoPushes:      make(map[gatt.UUID]int),
	}
}

// Default returns the process-wide catalog, creating it on first call.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New(nil)
	})
	return defaultCatalog
}

// CharacteristicCodec resolves the codec bound to u.
func (c *Catalog) CharacteristicCodec(u gatt.UUID) (gatt.Codec, bool) {
	return c.Characteristics.CreateInstance(u)
}

// DescriptorCodec resolves the codec bound to u.
func (c *Catalog) DescriptorCodec(u gatt.UUID) (gatt.Codec, bool) {
	return c.Descriptors.CreateInstance(u)
}

// Service resolves the definition bound to u.
func (c *Catalog) Service(u gatt.UUID) (gatt.ServiceDefinition, bool) {
	return c.Services.CreateInstance(u)
}

// Info returns the metadata for u, or an unknown placeholder of kind.
func (c *Catalog) Info(u gatt.UUID, kind gatt.Kind) gatt.Info {
	if info, ok := c.UUIDs.InfoOfKind(u, kind); ok {
		return info
	}
	return gatt.UnknownInfo(u, kind)
}

// RegisterCharacteristic binds a custom codec. Its Info is added to the UUID
// registry when the UUID is unknown there, or replaced when override is set.
// Nothing is left registered when the class binding is refused.
func (c *Catalog) RegisterCharacteristic(codec gatt.Codec, override bool) error {
	if codec == nil {
		return fmt.Errorf("catalog: nil codec")
	}
	info := codec.Info()
	if info.UUID.IsZero() {
		return fmt.Errorf("catalog: codec %q has no UUID", info.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	addedInfo := false
	if _, known := c.UUIDs.Info(info.UUID); !known || override {
		if err := c.UUIDs.RegisterRuntimeEntry(info, override); err != nil {
			return fmt.Errorf("failed to register %s info: %w", info.Label(), err)
		}
		addedInfo = true
	}

	factory := func() gatt.Codec { return codec }
	if err := c.Characteristics.RegisterClass(info.UUID, factory, override); err != nil {
		if addedInfo {
			c.UUIDs.RemoveRuntimeOverride(info.UUID)
		}
		return fmt.Errorf("failed to register %s codec: %w", info.Label(), err)
	}
	if addedInfo {
		c.infoPushes[info.UUID]++
	}

	c.logger.WithFields(logrus.Fields{
		"uuid":     info.UUID.ShortString(),
		"name":     info.Name,
		"override": override,
	}).Info("Registered custom characteristic")
	return nil
}

// UnregisterCharacteristic removes a custom codec and every Info registered
// with it, including those of earlier registrations it replaced. Built-in
// codecs are never removed.
func (c *Catalog) UnregisterCharacteristic(u gatt.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Characteristics.UnregisterClass(u) {
		return false
	}
	for n := c.infoPushes[u]; n > 0; n-- {
		c.UUIDs.RemoveRuntimeOverride(u)
	}
	delete(c.infoPushes, u)
	return true
}

// Reset drops every custom binding and the cached baselines. The next lookup
// reloads from the built-in tables.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.infoPushes)
	c.Characteristics.ResetCustom()
	c.Descriptors.ResetCustom()
	c.Services.ResetCustom()
	c.Characteristics.ClearCache()
	c.Descriptors.ClearCache()
	c.Services.ClearCache()
	c.UUIDs.Reset()
}
