package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// SettingsFile is the optional per-directory settings filename.
const SettingsFile = "feedmirror.toml"

// Settings holds run configuration that is NOT part of the origins file.
// It is resolved with Viper precedence:
// CLI flags > environment > feedmirror.toml > defaults.
//
// CDNBase keeps its historical bare CDN_URL environment variable; everything
// else uses the FMIR_ prefix.
type Settings struct {
	CDNBase     string        `toml:"cdn" mapstructure:"cdn"`
	DataFile    string        `toml:"data" mapstructure:"data"`
	DistDir     string        `toml:"dist" mapstructure:"dist"`
	Attempts    int           `toml:"attempts" mapstructure:"attempts"`
	Delay       time.Duration `toml:"delay" mapstructure:"delay"`
	Timeout     time.Duration `toml:"timeout" mapstructure:"timeout"`
	Concurrency int           `toml:"concurrency" mapstructure:"concurrency"`
}

// UseCDN reports whether mirrored URLs should be rewritten against a CDN
// base instead of a relative js/ path.
func (s *Settings) UseCDN() bool {
	return s.CDNBase != ""
}

// Flags carries settings overrides bound to CLI flags; zero values mean
// "not set" and defer to the lower-precedence layers.
type Flags struct {
	CDNBase     string
	DataFile    string
	DistDir     string
	Concurrency int
}

// LoadSettings resolves settings from the working directory's settings file,
// the environment, and flag overrides.
func LoadSettings(flags Flags) (*Settings, error) {
	return loadSettings(flags, SettingsFile)
}

// loadSettings is the internal implementation that accepts an explicit
// settings path, making it testable without chdir.
func loadSettings(flags Flags, settingsPath string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("cdn", "")
	v.SetDefault("data", "data/origins.json")
	v.SetDefault("dist", "dist")
	v.SetDefault("attempts", 3)
	v.SetDefault("delay", time.Second)
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("concurrency", 0)

	// Lowest priority above defaults: the settings file, if present.
	if _, err := os.Stat(settingsPath); err == nil {
		v.SetConfigFile(settingsPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", settingsPath, err)
		}
	}

	// Environment: FMIR_DATA, FMIR_DIST, ... plus the bare CDN_URL.
	v.SetEnvPrefix("FMIR")
	for _, key := range []string{"data", "dist", "attempts", "delay", "timeout", "concurrency"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	if err := v.BindEnv("cdn", "CDN_URL"); err != nil {
		return nil, fmt.Errorf("binding env for cdn: %w", err)
	}

	// Highest priority: CLI flags.
	if flags.CDNBase != "" {
		v.Set("cdn", flags.CDNBase)
	}
	if flags.DataFile != "" {
		v.Set("data", flags.DataFile)
	}
	if flags.DistDir != "" {
		v.Set("dist", flags.DistDir)
	}
	if flags.Concurrency > 0 {
		v.Set("concurrency", flags.Concurrency)
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return s, nil
}

// WriteSettings persists settings to the settings file in dir.
func WriteSettings(dir string, s *Settings) (string, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling settings: %w", err)
	}

	path := filepath.Join(dir, SettingsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
