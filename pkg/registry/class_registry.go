package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/pkg/gatt"
)

// Factory builds a fresh implementation instance.
type Factory[C any] func() C

// Registration binds a UUID, and optionally an enum name, to a factory.
type Registration[E comparable, C any] struct {
	UUID gatt.UUID
	Name E
	New  Factory[C]
}

// Discover returns the baseline registrations. It is called once per cache
// generation.
type Discover[E comparable, C any] func() []Registration[E, C]

type classIndex[E comparable, C any] struct {
	byUUID map[gatt.UUID]Registration[E, C]
	byName map[E]gatt.UUID
	order  []gatt.UUID
}

// ClassRegistry maps UUIDs and a closed enum of names to implementation
// factories. Custom registrations are consulted before the baseline.
type ClassRegistry[E comparable, C any] struct {
	name     string
	discover Discover[E, C]
	logger   *logrus.Logger

	loaded   atomic.Bool
	mu       sync.Mutex
	baseline atomic.Pointer[classIndex[E, C]]

	custom *hashmap.Map[string, Registration[E, C]]
}

// NewClassRegistry creates a registry; name labels errors and log lines.
func NewClassRegistry[E comparable, C any](name string, discover Discover[E, C], logger *logrus.Logger) *ClassRegistry[E, C] {
	if logger == nil {
		logger = logrus.New()
	}
	return &ClassRegistry[E, C]{
		name:     name,
		discover: discover,
		logger:   logger,
		custom:   hashmap.New[string, Registration[E, C]](),
	}
}

func (r *ClassRegistry[E, C]) index() *classIndex[E, C] {
	if r.loaded.Load() {
		if idx := r.baseline.Load(); idx != nil {
			return idx
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexLocked()
}

func (r *ClassRegistry[E, C]) indexLocked() *classIndex[E, C] {
	if r.loaded.Load() {
		return r.baseline.Load()
	}

	var regs []Registration[E, C]
	if r.discover != nil {
		regs = r.discover()
	}

	var zero E
	idx := &classIndex[E, C]{
		byUUID: make(map[gatt.UUID]Registration[E, C], len(regs)),
		byName: make(map[E]gatt.UUID, len(regs)),
	}
	for _, reg := range regs {
		if reg.New == nil {
			panic(fmt.Sprintf("%s registry: baseline registration %s has no factory", r.name, reg.UUID.ShortString()))
		}
		if _, dup := idx.byUUID[reg.UUID]; dup {
			panic(fmt.Sprintf("%s registry: duplicate baseline registration %s", r.name, reg.UUID.ShortString()))
		}
		idx.byUUID[reg.UUID] = reg
		idx.order = append(idx.order, reg.UUID)
		if reg.Name != zero {
			idx.byName[reg.Name] = reg.UUID
		}
	}

	r.baseline.Store(idx)
	r.loaded.Store(true)
	r.logger.WithFields(logrus.Fields{
		"registry": r.name,
		"classes":  len(idx.order),
	}).Debug("Class registry discovered baseline")
	return idx
}

// ClearCache drops the discovered baseline; the next lookup runs discovery
// again. Custom registrations are kept.
func (r *ClassRegistry[E, C]) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded.Store(false)
	r.baseline.Store(nil)
}

// ResetCustom removes every custom registration.
func (r *ClassRegistry[E, C]) ResetCustom() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	r.custom.Range(func(key string, _ Registration[E, C]) bool {
		keys = append(keys, key)
		return true
	})
	for _, key := range keys {
		r.custom.Del(key)
	}
}

// ClassByUUID returns the factory bound to u.
func (r *ClassRegistry[E, C]) ClassByUUID(u gatt.UUID) (Factory[C], bool) {
	idx := r.index()
	if reg, ok := r.custom.Get(u.String()); ok {
		return reg.New, true
	}
	if reg, ok := idx.byUUID[u]; ok {
		return reg.New, true
	}
	return nil, false
}

// ClassByEnum resolves a baseline enum name to its UUID and then to the
// current binding, so an override of that UUID is honored.
func (r *ClassRegistry[E, C]) ClassByEnum(name E) (Factory[C], bool) {
	u, ok := r.index().byName[name]
	if !ok {
		return nil, false
	}
	return r.ClassByUUID(u)
}

// UUIDByEnum returns the UUID a baseline enum name is bound to.
func (r *ClassRegistry[E, C]) UUIDByEnum(name E) (gatt.UUID, bool) {
	u, ok := r.index().byName[name]
	return u, ok
}

// CreateInstance builds a fresh instance for u.
func (r *ClassRegistry[E, C]) CreateInstance(u gatt.UUID) (C, bool) {
	factory, ok := r.ClassByUUID(u)
	if !ok {
		var zero C
		return zero, false
	}
	return factory(), true
}

// IsBaseline reports whether u has a built-in binding.
func (r *ClassRegistry[E, C]) IsBaseline(u gatt.UUID) bool {
	_, ok := r.index().byUUID[u]
	return ok
}

// RegisterClass binds u to factory. Replacing a baseline binding requires
// override; custom bindings may be replaced freely.
func (r *ClassRegistry[E, C]) RegisterClass(u gatt.UUID, factory Factory[C], override bool) error {
	if factory == nil {
		return fmt.Errorf("%s registry: nil factory for %s", r.name, u.ShortString())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked()

	reg := Registration[E, C]{UUID: u, New: factory}
	if base, ok := idx.byUUID[u]; ok {
		if !override {
			return &RegistryConflictError{Registry: r.name, UUID: u, Existing: fmt.Sprint(base.Name)}
		}
		reg.Name = base.Name
	}
	r.custom.Set(u.String(), reg)

	r.logger.WithFields(logrus.Fields{
		"registry": r.name,
		"uuid":     u.ShortString(),
		"override": override,
	}).Debug("Registered custom class")
	return nil
}

// UnregisterClass removes a custom binding for u, uncovering the baseline one
// if present. Baseline bindings themselves are never removed; the result
// reports whether a custom binding existed.
func (r *ClassRegistry[E, C]) UnregisterClass(u gatt.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.custom.Del(u.String())
	if removed {
		r.logger.WithFields(logrus.Fields{
			"registry": r.name,
			"uuid":     u.ShortString(),
		}).Debug("Unregistered custom class")
	}
	return removed
}

// UUIDs lists every bound UUID: baseline order, then custom-only ones.
func (r *ClassRegistry[E, C]) UUIDs() []gatt.UUID {
	idx := r.index()
	out := append([]gatt.UUID(nil), idx.order...)
	r.custom.Range(func(_ string, reg Registration[E, C]) bool {
		if _, ok := idx.byUUID[reg.UUID]; !ok {
			out = append(out, reg.UUID)
		}
		return true
	})
	return out
}
