package translator

import (
	"bytes"
	"errors"
	"slices"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/gattkit/pkg/config"
	"github.com/srg/gattkit/pkg/gatt"
)

// GroupKeyFunc assigns a parsed notification to a pairing group.
type GroupKeyFunc[K comparable] func(u gatt.UUID, d *gatt.CharacteristicData) K

// PairFunc receives a completed group, parsed together in one batch.
type PairFunc[K comparable] func(key K, results *Results)

// EvictFunc receives the raw payloads of a group dropped before completion.
type EvictFunc[K comparable] func(key K, reason EvictReason, pending *Batch)

// EvictReason tells why a pending group was dropped.
type EvictReason string

const (
	// EvictCapacity drops the oldest group to make room for a new one.
	EvictCapacity EvictReason = "capacity"
	// EvictExpired drops a group older than the group TTL.
	EvictExpired EvictReason = "expired"
	// EvictFlush drops every pending group on Flush.
	EvictFlush EvictReason = "flush"
)

// PairingOptions bounds the memory a PairingBuffer holds for groups that
// never complete. A zero MaxGroups or GroupTTL disables that bound.
type PairingOptions struct {
	MaxGroups int           `default:"64"`
	GroupTTL  time.Duration `default:"30s"`
	Now       func() time.Time
}

// PairingOption configures a PairingBuffer.
type PairingOption func(*PairingOptions)

// WithMaxGroups bounds the number of pending groups.
func WithMaxGroups(n int) PairingOption {
	return func(o *PairingOptions) { o.MaxGroups = n }
}

// WithGroupTTL bounds how long a group may wait for completion, measured
// from its first notification.
func WithGroupTTL(ttl time.Duration) PairingOption {
	return func(o *PairingOptions) { o.GroupTTL = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PairingOption {
	return func(o *PairingOptions) { o.Now = now }
}

// WithPairingConfig applies the pairing bounds of cfg.
func WithPairingConfig(cfg *config.Config) PairingOption {
	return func(o *PairingOptions) {
		if cfg == nil {
			return
		}
		o.MaxGroups = cfg.PairingMaxGroups
		o.GroupTTL = cfg.PairingGroupTTL
	}
}

type pendingGroup struct {
	first time.Time
	raw   *Batch
}

// PairingBuffer groups notifications whose meaning depends on each other,
// such as a measurement and the feature that qualifies it, and hands each
// group to onPair once every required UUID has arrived.
//
// Each Ingest parses its payload alone to compute the group key. When a
// group holds all required UUIDs its payloads are parsed again in a single
// ParseCharacteristics call so cross references resolve, onPair runs exactly
// once and the group is discarded. Arrival order inside a group does not
// matter; a repeated UUID replaces the earlier payload.
//
// Groups that never complete are evicted: the oldest group when MaxGroups
// would be exceeded, and any group older than GroupTTL. Evicted groups are
// passed to the OnEvict callback when one is set.
//
// PairingBuffer is NOT safe for concurrent use. Calls must be serialized by
// the caller, for example by a single event loop or by Pump.
type PairingBuffer[K comparable] struct {
	translator *Translator
	required   []gatt.UUID
	groupKey   GroupKeyFunc[K]
	onPair     PairFunc[K]
	onEvict    EvictFunc[K]
	opts       PairingOptions
	groups     *orderedmap.OrderedMap[K, *pendingGroup]
	logger     *logrus.Logger
}

// NewPairingBuffer creates a buffer that completes a group once every UUID
// in required has been ingested under the same key.
func NewPairingBuffer[K comparable](t *Translator, required []gatt.UUID, groupKey GroupKeyFunc[K], onPair PairFunc[K], opts ...PairingOption) (*PairingBuffer[K], error) {
	if t == nil {
		return nil, errors.New("translator cannot be nil")
	}
	if len(required) == 0 {
		return nil, errors.New("required UUID set cannot be empty")
	}
	if groupKey == nil {
		return nil, errors.New("group key function cannot be nil")
	}
	if onPair == nil {
		return nil, errors.New("pair callback cannot be nil")
	}

	options := PairingOptions{}
	defaults.SetDefaults(&options)
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxGroups < 0 || options.GroupTTL < 0 {
		return nil, errors.New("pairing bounds must not be negative")
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	req := slices.Clone(required)
	slices.SortFunc(req, func(a, b gatt.UUID) int { return slices.Compare(a[:], b[:]) })
	req = slices.Compact(req)

	return &PairingBuffer[K]{
		translator: t,
		required:   req,
		groupKey:   groupKey,
		onPair:     onPair,
		opts:       options,
		groups:     orderedmap.New[K, *pendingGroup](),
		logger:     t.Logger(),
	}, nil
}

// OnEvict sets the callback for groups dropped before completion.
func (p *PairingBuffer[K]) OnEvict(fn EvictFunc[K]) {
	p.onEvict = fn
}

// Ingest adds one notification. It may complete a group, which runs onPair
// before Ingest returns.
func (p *PairingBuffer[K]) Ingest(u gatt.UUID, raw []byte) {
	now := p.opts.Now()
	p.expire(now)

	d := p.translator.ParseCharacteristic(u, raw, nil)
	key := p.groupKey(u, d)

	g, ok := p.groups.Get(key)
	if !ok {
		if p.opts.MaxGroups > 0 && p.groups.Len() >= p.opts.MaxGroups {
			if oldest := p.groups.Oldest(); oldest != nil {
				p.evict(oldest.Key, EvictCapacity)
			}
		}
		g = &pendingGroup{first: now, raw: NewBatch()}
		p.groups.Set(key, g)
	}
	g.raw.Set(u, bytes.Clone(raw))

	if !p.complete(g) {
		p.logger.WithFields(logrus.Fields{
			"uuid":           u.ShortString(),
			"group_key":      key,
			"received":       g.raw.Len(),
			"pending_groups": p.groups.Len(),
		}).Debug("Buffered notification")
		return
	}

	p.groups.Delete(key)
	results := p.translator.ParseCharacteristics(g.raw, nil)
	p.logger.WithFields(logrus.Fields{
		"group_key":      key,
		"entries":        results.Len(),
		"pending_groups": p.groups.Len(),
	}).Debug("Pairing group complete")
	p.onPair(key, results)
}

func (p *PairingBuffer[K]) complete(g *pendingGroup) bool {
	for _, u := range p.required {
		if _, ok := g.raw.Get(u); !ok {
			return false
		}
	}
	return true
}

// Expire evicts every group older than the group TTL and returns how many
// were dropped. Ingest calls it on its own; callers with long idle periods
// may call it from a timer.
func (p *PairingBuffer[K]) Expire() int {
	return p.expire(p.opts.Now())
}

func (p *PairingBuffer[K]) expire(now time.Time) int {
	if p.opts.GroupTTL <= 0 {
		return 0
	}
	evicted := 0
	// groups are in creation order, so the first live one ends the scan
	for pair := p.groups.Oldest(); pair != nil; {
		if now.Sub(pair.Value.first) < p.opts.GroupTTL {
			break
		}
		next := pair.Next()
		p.evict(pair.Key, EvictExpired)
		evicted++
		pair = next
	}
	return evicted
}

// Flush evicts every pending group and returns how many were dropped.
func (p *PairingBuffer[K]) Flush() int {
	evicted := 0
	for pair := p.groups.Oldest(); pair != nil; {
		next := pair.Next()
		p.evict(pair.Key, EvictFlush)
		evicted++
		pair = next
	}
	return evicted
}

// Pending returns the number of incomplete groups.
func (p *PairingBuffer[K]) Pending() int {
	return p.groups.Len()
}

func (p *PairingBuffer[K]) evict(key K, reason EvictReason) {
	g, ok := p.groups.Delete(key)
	if !ok {
		return
	}

	received := make([]string, 0, g.raw.Len())
	for pair := g.raw.Oldest(); pair != nil; pair = pair.Next() {
		received = append(received, pair.Key.ShortString())
	}
	p.logger.WithFields(logrus.Fields{
		"group_key":      key,
		"reason":         reason,
		"received":       received,
		"pending_groups": p.groups.Len(),
	}).Warn("Evicted incomplete pairing group")

	if p.onEvict != nil {
		p.onEvict(key, reason, g.raw)
	}
}
