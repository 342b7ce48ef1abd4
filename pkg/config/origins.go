package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/feedmirror/feedmirror/pkg/plugin"
	"sigs.k8s.io/yaml"
)

// SourceConfig is the origins file: subscription feed URLs plus standalone
// inline descriptors. It is read once at the start of a sync run.
type SourceConfig struct {
	Sources []string            `json:"sources"`
	Singles []plugin.Descriptor `json:"singles"`
}

// Empty reports whether the config names nothing to mirror.
func (c *SourceConfig) Empty() bool {
	return len(c.Sources) == 0 && len(c.Singles) == 0
}

// LoadOrigins reads the origins file at path. The file is JSON, or YAML
// (a superset here) which is converted before decoding. Descriptor numbers
// decode as json.Number so opaque fields re-serialize unchanged.
func LoadOrigins(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()

	cfg := &SourceConfig{}
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return cfg, nil
}
