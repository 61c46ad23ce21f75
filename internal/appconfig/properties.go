package appconfig

import (
	"bytes"
	"fmt"

	"github.com/magiconair/properties"
)

// sharedHeader is written as a comment at the top of every snapshot.
const sharedHeader = "# shared application properties"

// Encode serializes the configuration in .properties format.
// Property expansion is disabled: values are stored verbatim.
func Encode(c *Configuration) ([]byte, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range c.keys {
		if _, _, err := p.Set(k, c.values[k]); err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(sharedHeader)
	buf.WriteByte('\n')
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a .properties document.
func Decode(b []byte) (*Configuration, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes(b)
	if err != nil {
		return nil, err
	}
	return fromProperties(p), nil
}

// LoadFile reads a .properties file from disk.
func LoadFile(path string) (*Configuration, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return fromProperties(p), nil
}

func fromProperties(p *properties.Properties) *Configuration {
	c := New()
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		c.Set(k, v)
	}
	return c
}
