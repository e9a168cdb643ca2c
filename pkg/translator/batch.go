package translator

import (
	"slices"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/gattkit/pkg/gatt"
)

// Batch is an insertion-ordered set of raw characteristic payloads.
type Batch = orderedmap.OrderedMap[gatt.UUID, []byte]

// Results is an insertion-ordered set of parse results.
type Results = orderedmap.OrderedMap[gatt.UUID, *gatt.CharacteristicData]

// DescriptorValues maps a characteristic UUID to the raw values of its
// descriptors.
type DescriptorValues map[gatt.UUID]map[gatt.UUID][]byte

// NewBatch builds a Batch that keeps entries in the given order. A repeated
// UUID keeps its first position and its last payload.
func NewBatch(entries ...BatchEntry) *Batch {
	b := orderedmap.New[gatt.UUID, []byte](len(entries))
	for _, e := range entries {
		b.Set(e.UUID, e.Raw)
	}
	return b
}

// BatchEntry is one raw payload of a batch.
type BatchEntry struct {
	UUID gatt.UUID
	Raw  []byte
}

// ParseCharacteristics parses a batch with a fresh context.
func (t *Translator) ParseCharacteristics(batch *Batch, descriptors DescriptorValues) *Results {
	return t.ParseCharacteristicsWith(&gatt.Context{}, batch, descriptors)
}

// ParseCharacteristicsWith parses a batch against ctx. Every characteristic
// a codec depends on is parsed before the codec runs, and each result is
// added to ctx.OtherCharacteristics before the next entry parses. Entries
// without a dependency relation keep their input order. Cycles and missing
// dependencies are not errors; the dependent parses without them.
//
// One entry failing its length gate never stops the batch. The returned map
// lists results in input order.
func (t *Translator) ParseCharacteristicsWith(ctx *gatt.Context, batch *Batch, descriptors DescriptorValues) *Results {
	if ctx == nil {
		ctx = &gatt.Context{}
	}
	if ctx.OtherCharacteristics == nil {
		ctx.OtherCharacteristics = make(map[gatt.UUID]*gatt.CharacteristicData)
	}

	input := make([]gatt.UUID, 0, batch.Len())
	for pair := batch.Oldest(); pair != nil; pair = pair.Next() {
		input = append(input, pair.Key)
	}

	order, skipped := dependencyOrder(input, t.characteristicDependencies)
	t.logger.WithFields(logrus.Fields{
		"entries": len(order),
		"order":   shortStrings(order),
	}).Debug("Parsing characteristic batch")

	parsed := make(map[gatt.UUID]*gatt.CharacteristicData, len(order))
	for _, u := range order {
		raw, _ := batch.Get(u)
		charCtx := ctx.WithDescriptors(t.parseDescriptors(descriptors[u]))

		d := t.ParseCharacteristic(u, raw, charCtx)
		for _, dep := range skipped[u] {
			t.tracef(d, "dependency %s skipped: cycle", dep.ShortString())
		}
		ctx.WithCharacteristic(d)
		parsed[u] = d
	}

	out := orderedmap.New[gatt.UUID, *gatt.CharacteristicData](len(input))
	for _, u := range input {
		out.Set(u, parsed[u])
	}
	return out
}

// parseDescriptors parses the descriptors of one characteristic, dependencies
// first, so Valid Range sees the Presentation Format parsed before it.
func (t *Translator) parseDescriptors(raws map[gatt.UUID][]byte) map[gatt.UUID]*gatt.DescriptorData {
	if len(raws) == 0 {
		return nil
	}
	uuids := make([]gatt.UUID, 0, len(raws))
	for u := range raws {
		uuids = append(uuids, u)
	}
	slices.SortFunc(uuids, func(a, b gatt.UUID) int {
		return slices.Compare(a[:], b[:])
	})

	order, _ := dependencyOrder(uuids, t.descriptorDependencies)
	out := make(map[gatt.UUID]*gatt.DescriptorData, len(order))
	for _, u := range order {
		out[u] = t.ParseDescriptor(u, raws[u], out)
	}
	return out
}

func (t *Translator) characteristicDependencies(u gatt.UUID) []gatt.UUID {
	codec, ok := t.catalog.CharacteristicCodec(u)
	if !ok {
		return nil
	}
	return declaredDependencies(codec)
}

func (t *Translator) descriptorDependencies(u gatt.UUID) []gatt.UUID {
	codec, ok := t.catalog.DescriptorCodec(u)
	if !ok {
		return nil
	}
	return declaredDependencies(codec)
}

func declaredDependencies(codec gatt.Codec) []gatt.UUID {
	dep, ok := codec.(gatt.Dependent)
	if !ok {
		return nil
	}
	return append(dep.RequiredDependencies(), dep.OptionalDependencies()...)
}

// dependencyOrder returns uuids reordered so that each entry follows the
// entries it depends on. Dependencies outside uuids are ignored. The walk is
// a depth-first search in input order, so unrelated entries keep their
// relative order. An edge that would close a cycle is dropped and reported
// in skipped, keyed by the dependent.
func dependencyOrder(uuids []gatt.UUID, deps func(gatt.UUID) []gatt.UUID) ([]gatt.UUID, map[gatt.UUID][]gatt.UUID) {
	const (
		unvisited = iota
		visiting
		done
	)

	present := make(map[gatt.UUID]bool, len(uuids))
	for _, u := range uuids {
		present[u] = true
	}

	state := make(map[gatt.UUID]int, len(uuids))
	order := make([]gatt.UUID, 0, len(uuids))
	skipped := make(map[gatt.UUID][]gatt.UUID)

	var visit func(u gatt.UUID)
	visit = func(u gatt.UUID) {
		state[u] = visiting
		for _, dep := range deps(u) {
			if !present[dep] || dep == u {
				continue
			}
			switch state[dep] {
			case unvisited:
				visit(dep)
			case visiting:
				skipped[u] = append(skipped[u], dep)
			}
		}
		state[u] = done
		order = append(order, u)
	}

	for _, u := range uuids {
		if state[u] == unvisited {
			visit(u)
		}
	}
	return order, skipped
}

func shortStrings(uuids []gatt.UUID) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = u.ShortString()
	}
	return out
}
