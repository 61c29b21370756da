package entity

// Component is one catalog item (a specific CPU, motherboard, ...) parsed
// from the raw catalog dump. Specs is an open map because every category
// ships a different column set.
type Component struct {
	Id       string
	Category string
	Name     string
	Price    *int // nil = unknown; never negative
	Specs    map[string]string
	KeySpecs []string // curated subset for display
	ImageURL string
}

// PriceOrZero treats an unknown price as zero for budget math.
func (c *Component) PriceOrZero() int {
	if c.Price == nil {
		return 0
	}
	return *c.Price
}

// Spec returns the value for a spec field, with ok=false when the field
// is absent. Lookup is exact; callers normalize keys at ingestion time.
func (c *Component) Spec(key string) (string, bool) {
	v, ok := c.Specs[key]
	return v, ok
}

// Clone returns a deep copy sharing no memory with the receiver.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	out := *c
	if c.Price != nil {
		p := *c.Price
		out.Price = &p
	}
	if c.Specs != nil {
		out.Specs = make(map[string]string, len(c.Specs))
		for k, v := range c.Specs {
			out.Specs[k] = v
		}
	}
	if c.KeySpecs != nil {
		out.KeySpecs = append([]string(nil), c.KeySpecs...)
	}
	return &out
}
