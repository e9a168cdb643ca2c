// Package translator turns raw GATT payloads into CharacteristicData.
//
// ParseCharacteristic is the single-value primitive. ParseCharacteristics
// parses a batch read from one peripheral, ordering entries so that every
// characteristic a codec depends on is parsed first and visible through the
// shared gatt.Context. PairingBuffer collects notifications that only make
// sense together and hands complete groups to a callback, and Pump lets
// transport goroutines feed a PairingBuffer safely.
//
// A Translator is safe for concurrent use. It reads the catalog and never
// caches parse results.
package translator

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/pkg/catalog"
	"github.com/srg/gattkit/pkg/config"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/services"
)

// Translator resolves codecs from a catalog and runs them.
type Translator struct {
	catalog *catalog.Catalog
	logger  *logrus.Logger
	trace   bool
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger; nil keeps the default.
func WithLogger(logger *logrus.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithCatalog resolves codecs from c instead of catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(t *Translator) {
		if c != nil {
			t.catalog = c
		}
	}
}

// WithTrace turns parse trace recording on or off.
func WithTrace(enabled bool) Option {
	return func(t *Translator) {
		t.trace = enabled
	}
}

// FromConfig applies the logger and trace settings of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(t *Translator) {
		if cfg == nil {
			return
		}
		t.logger = cfg.NewLogger()
		t.trace = cfg.ParseTrace
	}
}

// New creates a translator over catalog.Default() with tracing enabled.
func New(opts ...Option) *Translator {
	t := &Translator{trace: true}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logrus.New()
	}
	if t.catalog == nil {
		t.catalog = catalog.Default()
	}
	return t
}

// Catalog returns the catalog codecs are resolved from.
func (t *Translator) Catalog() *catalog.Catalog {
	return t.catalog
}

// Logger returns the translator logger.
func (t *Translator) Logger() *logrus.Logger {
	return t.logger
}

func (t *Translator) tracef(d *gatt.CharacteristicData, format string, args ...any) {
	if t.trace {
		d.Tracef(format, args...)
	}
}

// info prefers the registry record so runtime overrides show up, then the
// codec's own record.
func (t *Translator) info(u gatt.UUID, kind gatt.Kind, codec gatt.Codec) gatt.Info {
	info, known := t.catalog.UUIDs.InfoOfKind(u, kind)
	switch {
	case known:
	case codec != nil:
		info = codec.Info()
	default:
		info = gatt.UnknownInfo(u, kind)
	}
	info.UUID = u
	return info
}

// ParseCharacteristic parses one payload. ctx may be nil. The result is
// never nil: a missing codec or a length-gate failure is reported through
// Err with ParseSuccess false.
func (t *Translator) ParseCharacteristic(u gatt.UUID, raw []byte, ctx *gatt.Context) *gatt.CharacteristicData {
	codec, found := t.catalog.CharacteristicCodec(u)

	d := &gatt.CharacteristicData{
		Info:        t.info(u, gatt.KindCharacteristic, codec),
		Raw:         bytes.Clone(raw),
		FieldErrors: []gatt.ParseFieldError{},
	}
	if ctx != nil {
		d.Descriptors = ctx.Descriptors
	}

	logger := t.logger.WithFields(logrus.Fields{
		"uuid":   u.ShortString(),
		"name":   d.Info.Name,
		"length": len(raw),
	})

	if !found {
		t.tracef(d, "no codec registered for %s", u.ShortString())
		d.Fail(fmt.Errorf("%w for %s", gatt.ErrNoCodec, u.ShortString()))
		logger.Debug("No codec for characteristic")
		return d
	}
	t.tracef(d, "codec resolved: %s", d.Info.Label())

	if declarer, ok := codec.(gatt.PropertyDeclarer); ok {
		d.Properties = declarer.DeclaredProperties()
	}
	if dep, ok := codec.(gatt.Dependent); ok {
		t.traceDependencies(d, ctx, "required", dep.RequiredDependencies())
		t.traceDependencies(d, ctx, "optional", dep.OptionalDependencies())
	}

	value, fieldErrs, err := gatt.Decode(codec, raw, ctx)
	if err != nil {
		t.tracef(d, "length gate refused %d bytes: need %s", len(raw), codec.Constraints())
		d.Fail(err)
		logger.WithError(err).Debug("Characteristic rejected by length gate")
		return d
	}
	t.tracef(d, "length gate passed: %d bytes, %s", len(raw), codec.Constraints())

	d.Value = value
	d.FieldErrors = append(d.FieldErrors, fieldErrs...)
	d.ParseSuccess = len(fieldErrs) == 0
	for _, fe := range fieldErrs {
		t.tracef(d, "field error: %s", fe.Error())
	}
	t.tracef(d, "decoded with %d field errors", len(fieldErrs))

	logger.WithField("field_errors", len(fieldErrs)).Debug("Parsed characteristic")
	return d
}

func (t *Translator) traceDependencies(d *gatt.CharacteristicData, ctx *gatt.Context, kind string, deps []gatt.UUID) {
	for _, u := range deps {
		dep, ok := ctx.Characteristic(u)
		switch {
		case !ok:
			t.tracef(d, "%s dependency %s missing, decoding without it", kind, u.ShortString())
		case !dep.ParseSuccess:
			t.tracef(d, "%s dependency %s did not parse cleanly, ignoring it", kind, u.ShortString())
		default:
			t.tracef(d, "%s dependency %s available", kind, u.ShortString())
		}
	}
}

// ParseDescriptor parses one descriptor value. siblings holds descriptors of
// the same characteristic that were already parsed; it may be nil.
func (t *Translator) ParseDescriptor(u gatt.UUID, raw []byte, siblings map[gatt.UUID]*gatt.DescriptorData) *gatt.DescriptorData {
	codec, found := t.catalog.DescriptorCodec(u)

	d := &gatt.DescriptorData{
		Info:        t.info(u, gatt.KindDescriptor, codec),
		Raw:         bytes.Clone(raw),
		FieldErrors: []gatt.ParseFieldError{},
	}
	if !found {
		d.Fail(fmt.Errorf("%w for descriptor %s", gatt.ErrNoCodec, u.ShortString()))
		return d
	}

	value, fieldErrs, err := gatt.Decode(codec, raw, &gatt.Context{Descriptors: siblings})
	if err != nil {
		d.Fail(err)
		return d
	}
	d.Value = value
	d.FieldErrors = append(d.FieldErrors, fieldErrs...)
	d.ParseSuccess = len(fieldErrs) == 0

	t.logger.WithFields(logrus.Fields{
		"uuid":         u.ShortString(),
		"name":         d.Info.Name,
		"field_errors": len(fieldErrs),
	}).Debug("Parsed descriptor")
	return d
}

// EncodeCharacteristic encodes value with the codec bound to u. Values
// outside the codec's domain are refused with a *gatt.EncodeError.
func (t *Translator) EncodeCharacteristic(u gatt.UUID, value any) ([]byte, error) {
	codec, ok := t.catalog.CharacteristicCodec(u)
	if !ok {
		return nil, fmt.Errorf("%w for %s", gatt.ErrNoCodec, u.ShortString())
	}
	return gatt.Encode(codec, value)
}

// EncodeDescriptor encodes value with the descriptor codec bound to u.
func (t *Translator) EncodeDescriptor(u gatt.UUID, value any) ([]byte, error) {
	codec, ok := t.catalog.DescriptorCodec(u)
	if !ok {
		return nil, fmt.Errorf("%w for descriptor %s", gatt.ErrNoCodec, u.ShortString())
	}
	return gatt.Encode(codec, value)
}

// ValidateService checks present against the definition of service u. The
// boolean is false when u has no definition.
func (t *Translator) ValidateService(u gatt.UUID, present []gatt.UUID) (services.Validation, bool) {
	def, ok := t.catalog.Service(u)
	if !ok {
		return services.Validation{}, false
	}
	v := services.Validate(def, present)
	if !v.Complete() {
		t.logger.WithFields(logrus.Fields{
			"service": def.Info().Label(),
			"missing": len(v.Missing),
		}).Debug("Service is missing required characteristics")
	}
	return v, true
}
