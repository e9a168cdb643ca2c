// Package registry holds the process-wide lookup tables: Bluetooth SIG
// metadata keyed by UUID and alias, and implementation factories keyed by
// UUID and enum name.
//
// Both registries load their baseline lazily on first use. Exactly one caller
// pays for the load; every later read is lock-free over an immutable baseline
// snapshot plus a small concurrent overlay of runtime registrations.
// Registration calls take a short exclusive lock and are meant for setup time.
package registry

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/pkg/gatt"
)

// InfoLoader supplies the already-materialized baseline records.
type InfoLoader func() []gatt.Info

// infoIndex is the immutable baseline snapshot.
type infoIndex struct {
	byUUID  map[gatt.UUID]gatt.Info
	aliases map[string]gatt.UUID
	order   []gatt.UUID
}

// overlayState is one entry of a UUID's restore stack. present=false means
// "no runtime entry", i.e. the baseline shows through.
type overlayState struct {
	info    gatt.Info
	present bool
}

// UUIDRegistry maps normalized UUIDs and aliases to Info records.
type UUIDRegistry struct {
	loader InfoLoader
	logger *logrus.Logger

	loaded   atomic.Bool
	mu       sync.Mutex
	baseline *infoIndex

	overlay *hashmap.Map[string, gatt.Info]
	// aliases of runtime entries, consulted before the baseline alias index
	overlayAliases *hashmap.Map[string, gatt.UUID]
	history        map[gatt.UUID][]overlayState
}

// NewUUIDRegistry creates a registry that calls loader on first lookup.
func NewUUIDRegistry(loader InfoLoader, logger *logrus.Logger) *UUIDRegistry {
	if logger == nil {
		logger = logrus.New()
	}
	return &UUIDRegistry{
		loader:         loader,
		logger:         logger,
		overlay:        hashmap.New[string, gatt.Info](),
		overlayAliases: hashmap.New[string, gatt.UUID](),
		history:        make(map[gatt.UUID][]overlayState),
	}
}

// EnsureLoaded loads the baseline if that has not happened yet. Concurrent
// callers block until the single load finishes; none observes a partial table.
func (r *UUIDRegistry) EnsureLoaded() {
	if r.loaded.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
}

func (r *UUIDRegistry) loadLocked() {
	if r.loaded.Load() {
		return
	}

	var records []gatt.Info
	if r.loader != nil {
		records = r.loader()
	}

	idx := &infoIndex{
		byUUID:  make(map[gatt.UUID]gatt.Info, len(records)),
		aliases: make(map[string]gatt.UUID, len(records)*3),
		order:   make([]gatt.UUID, 0, len(records)),
	}
	for _, info := range records {
		if info.UUID.IsZero() {
			r.logger.WithField("name", info.Name).Warn("Skipping baseline record without UUID")
			continue
		}
		if existing, dup := idx.byUUID[info.UUID]; dup {
			// first write wins
			r.logger.WithFields(logrus.Fields{
				"uuid":     info.UUID.ShortString(),
				"keeping":  existing.Name,
				"skipping": info.Name,
			}).Warn("Duplicate UUID in baseline")
			continue
		}
		idx.byUUID[info.UUID] = info
		idx.order = append(idx.order, info.UUID)
		for _, alias := range aliasKeys(info) {
			if _, taken := idx.aliases[alias]; !taken {
				idx.aliases[alias] = info.UUID
			}
		}
	}

	r.baseline = idx
	r.loaded.Store(true)
	r.logger.WithField("entries", len(idx.order)).Debug("UUID registry loaded")
}

// GetInfo resolves a UUID in any accepted string form, a name, an ID or an
// alias. Misses return false, never an error.
func (r *UUIDRegistry) GetInfo(identifier string) (gatt.Info, bool) {
	r.EnsureLoaded()
	if u, err := gatt.ParseUUID(identifier); err == nil {
		if info, ok := r.lookup(u); ok {
			return info, true
		}
	}
	key := foldAlias(identifier)
	if key == "" {
		return gatt.Info{}, false
	}
	if u, ok := r.overlayAliases.Get(key); ok {
		if info, ok := r.lookup(u); ok {
			return info, true
		}
	}
	if u, ok := r.baseline.aliases[key]; ok {
		return r.lookup(u)
	}
	return gatt.Info{}, false
}

// Info resolves a parsed UUID.
func (r *UUIDRegistry) Info(u gatt.UUID) (gatt.Info, bool) {
	r.EnsureLoaded()
	return r.lookup(u)
}

// InfoOfKind is Info restricted to one record kind.
func (r *UUIDRegistry) InfoOfKind(u gatt.UUID, kind gatt.Kind) (gatt.Info, bool) {
	info, ok := r.Info(u)
	if !ok || info.Kind != kind {
		return gatt.Info{}, false
	}
	return info, true
}

func (r *UUIDRegistry) lookup(u gatt.UUID) (gatt.Info, bool) {
	if info, ok := r.overlay.Get(u.String()); ok {
		return info, true
	}
	info, ok := r.baseline.byUUID[u]
	return info, ok
}

// Entries returns the effective records of one kind (KindUnknown for all),
// baseline order first, then runtime-only entries.
func (r *UUIDRegistry) Entries(kind gatt.Kind) []gatt.Info {
	r.EnsureLoaded()
	var out []gatt.Info
	for _, u := range r.baseline.order {
		info, _ := r.lookup(u)
		if kind == gatt.KindUnknown || info.Kind == kind {
			out = append(out, info)
		}
	}
	r.overlay.Range(func(_ string, info gatt.Info) bool {
		if _, inBaseline := r.baseline.byUUID[info.UUID]; inBaseline {
			return true
		}
		if kind == gatt.KindUnknown || info.Kind == kind {
			out = append(out, info)
		}
		return true
	})
	return out
}

// RegisterRuntimeEntry inserts or replaces info.UUID in the overlay. The
// previous value (baseline or an earlier runtime entry) is kept so that
// RemoveRuntimeOverride can restore it.
//
// Replacing a baseline record requires override; a UUID that only has
// runtime entries may be re-registered freely.
func (r *UUIDRegistry) RegisterRuntimeEntry(info gatt.Info, override bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()

	key := info.UUID.String()
	previous, hadOverlay := r.overlay.Get(key)
	if base, inBaseline := r.baseline.byUUID[info.UUID]; inBaseline && !override {
		existing := base.Name
		if hadOverlay {
			existing = previous.Name
		}
		return &RegistryConflictError{Registry: "uuid", UUID: info.UUID, Existing: existing}
	}

	r.history[info.UUID] = append(r.history[info.UUID], overlayState{info: previous, present: hadOverlay})
	if hadOverlay {
		r.dropAliases(previous)
	}
	r.overlay.Set(key, info)
	r.addAliases(info)

	r.logger.WithFields(logrus.Fields{
		"uuid":     info.UUID.ShortString(),
		"name":     info.Name,
		"override": override,
	}).Debug("Registered runtime UUID entry")
	return nil
}

// RemoveRuntimeOverride undoes the most recent RegisterRuntimeEntry for u,
// restoring the value it replaced. It reports false when u has no runtime
// entry.
func (r *UUIDRegistry) RemoveRuntimeOverride(u gatt.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stack := r.history[u]
	if len(stack) == 0 {
		return false
	}
	restore := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(r.history, u)
	} else {
		r.history[u] = stack[:len(stack)-1]
	}

	key := u.String()
	if current, ok := r.overlay.Get(key); ok {
		r.dropAliases(current)
	}
	if restore.present {
		r.overlay.Set(key, restore.info)
		r.addAliases(restore.info)
	} else {
		r.overlay.Del(key)
	}

	r.logger.WithFields(logrus.Fields{
		"uuid":     u.ShortString(),
		"restored": restore.present,
	}).Debug("Removed runtime UUID entry")
	return true
}

// Reset drops every runtime entry and the loaded baseline; the next lookup
// loads again. It is meant for test isolation and must not run concurrently
// with lookups.
func (r *UUIDRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlay = hashmap.New[string, gatt.Info]()
	r.overlayAliases = hashmap.New[string, gatt.UUID]()
	r.history = make(map[gatt.UUID][]overlayState)
	r.loaded.Store(false)
	r.baseline = nil
}

func (r *UUIDRegistry) addAliases(info gatt.Info) {
	for _, alias := range aliasKeys(info) {
		r.overlayAliases.Set(alias, info.UUID)
	}
}

func (r *UUIDRegistry) dropAliases(info gatt.Info) {
	for _, alias := range aliasKeys(info) {
		if target, ok := r.overlayAliases.Get(alias); ok && target == info.UUID {
			r.overlayAliases.Del(alias)
		}
	}
}

// aliasKeys lists the folded lookup keys of info: name, ID, the last ID
// segment and every synonym.
func aliasKeys(info gatt.Info) []string {
	candidates := make([]string, 0, 3+len(info.Aliases))
	candidates = append(candidates, info.Name, info.ID)
	if i := strings.LastIndexByte(info.ID, '.'); i >= 0 {
		candidates = append(candidates, info.ID[i+1:])
	}
	candidates = append(candidates, info.Aliases...)

	keys := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		k := foldAlias(c)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// foldAlias makes "Battery Level", "battery_level" and " BATTERY  level"
// the same key.
func foldAlias(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), " ")
}
