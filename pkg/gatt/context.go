package gatt

// DeviceInfo is advertisement-level information about the peer.
type DeviceInfo struct {
	Address          string          `json:"address"`
	Name             string          `json:"name,omitempty"`
	RSSI             int             `json:"rssi,omitempty"`
	Services         []UUID          `json:"services,omitempty"`
	ManufacturerData []byte          `json:"manufacturer_data,omitempty"`
	ServiceData      map[UUID][]byte `json:"service_data,omitempty"`
}

// Context carries what a codec may need beyond its own payload. Every field
// is optional; a nil *Context is valid and behaves as an empty one.
type Context struct {
	DeviceInfo *DeviceInfo
	// OtherCharacteristics holds already-parsed results of the same batch or
	// of earlier reads.
	OtherCharacteristics map[UUID]*CharacteristicData
	// Descriptors holds the parsed descriptors of the characteristic being
	// decoded.
	Descriptors map[UUID]*DescriptorData
	RawService  []byte
}

// Characteristic looks up a previously parsed characteristic.
func (c *Context) Characteristic(u UUID) (*CharacteristicData, bool) {
	if c == nil || c.OtherCharacteristics == nil {
		return nil, false
	}
	d, ok := c.OtherCharacteristics[u]
	return d, ok && d != nil
}

// Descriptor looks up a parsed descriptor of the current characteristic.
func (c *Context) Descriptor(u UUID) (*DescriptorData, bool) {
	if c == nil || c.Descriptors == nil {
		return nil, false
	}
	d, ok := c.Descriptors[u]
	return d, ok && d != nil
}

// WithDescriptors returns a shallow copy of c with Descriptors replaced.
func (c *Context) WithDescriptors(descs map[UUID]*DescriptorData) *Context {
	var out Context
	if c != nil {
		out = *c
	}
	out.Descriptors = descs
	return &out
}

// WithCharacteristic records d in c, allocating the map on first use.
func (c *Context) WithCharacteristic(d *CharacteristicData) {
	if c.OtherCharacteristics == nil {
		c.OtherCharacteristics = make(map[UUID]*CharacteristicData)
	}
	c.OtherCharacteristics[d.Info.UUID] = d
}

// DependencyValue returns the decoded value of a dependency that parsed
// successfully.
func DependencyValue[T any](ctx *Context, u UUID) (T, bool) {
	var zero T
	d, ok := ctx.Characteristic(u)
	if !ok || !d.ParseSuccess {
		return zero, false
	}
	return ValueAs[T](d)
}
