package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Descriptor is one plugin record as it appears in subscription feeds and the
// origins file. Only "url" and "name" carry meaning for the pipeline; every
// other field is opaque and must survive a mirror run unmodified, which is why
// this is a map rather than a struct.
type Descriptor map[string]any

// URL returns the payload source URL, or "" when absent.
func (d Descriptor) URL() string {
	s, _ := d["url"].(string)
	return s
}

// Name returns the display name. Only a descriptor with no name key falls
// back to its URL; an explicit empty name is kept as-is (the filename
// sanitizer's sentinel covers it downstream).
func (d Descriptor) Name() string {
	if s, ok := d["name"].(string); ok {
		return s
	}
	return d.URL()
}

// Clone returns a shallow copy. Opaque field values are shared, which is fine:
// the pipeline only ever rewrites the top-level "name" and "url" keys.
func (d Descriptor) Clone() Descriptor {
	c := make(Descriptor, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// WithName returns a clone whose "name" is set to name.
func (d Descriptor) WithName(name string) Descriptor {
	c := d.Clone()
	c["name"] = name
	return c
}

// WithURL returns a clone whose "url" is set to url.
func (d Descriptor) WithURL(url string) Descriptor {
	c := d.Clone()
	c["url"] = url
	return c
}

// DecodeList decodes a JSON array of descriptors. Numbers decode as
// json.Number so opaque numeric fields re-serialize exactly as they arrived.
func DecodeList(data []byte) ([]Descriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var list []Descriptor
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding descriptor list: %w", err)
	}
	return list, nil
}
