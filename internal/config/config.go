// Package config loads the obfuscation pipeline configuration.
//
// The contract seen by the rest of the system is a flat string→string
// mapping keyed "<passName>.<option>", with "<passName>.enabled" gating
// each pass. The YAML file is just a convenient spelling of that map:
//
//	seed: 99
//	passes:
//	  flattening:
//	    enabled: "true"
//	  bogus-control-flow:
//	    enabled: "true"
//	    probability: "0.5"
//
// Unrecognized option keys are ignored; missing keys fall back to the
// per-pass defaults. A missing or unreadable file yields an all-disabled
// configuration plus an error the caller reports, never a crash.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PassConfig holds one pass's options as strings.
type PassConfig map[string]string

// String returns the option value, or def when absent.
func (pc PassConfig) String(key, def string) string {
	if v, ok := pc[key]; ok {
		return v
	}
	return def
}

// Bool returns the option parsed as a bool, or def when absent or
// unparseable (Validate reports the latter).
func (pc PassConfig) Bool(key string, def bool) bool {
	v, ok := pc[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Float returns the option parsed as a float64, or def when absent or
// unparseable (Validate reports the latter).
func (pc PassConfig) Float(key string, def float64) float64 {
	v, ok := pc[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Config is the loaded pipeline configuration. It is read once before
// pipeline construction and never mutated by passes.
type Config struct {
	// Seed drives every randomized pass decision. The same seed on the
	// same input reproduces the same output.
	Seed int64 `yaml:"seed"`

	Passes map[string]PassConfig `yaml:"passes"`
}

// Default returns the fallback configuration: seed 0, every pass disabled.
func Default() *Config {
	return &Config{Passes: make(map[string]PassConfig)}
}

// Load reads a YAML configuration file. On a missing or unreadable file
// it returns Default() together with the error so the caller can report
// the failure and continue with all passes disabled.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Passes == nil {
		c.Passes = make(map[string]PassConfig)
	}
	return c, nil
}

// Pass returns the named pass's options (possibly empty, never nil).
func (c *Config) Pass(name string) PassConfig {
	if pc, ok := c.Passes[name]; ok {
		return pc
	}
	return PassConfig{}
}

// Enabled reports whether the named pass is switched on.
func (c *Config) Enabled(name string) bool {
	return c.Pass(name).Bool("enabled", false)
}

// Value looks up a flat "<passName>.<option>" key.
func (c *Config) Value(flatKey string) (string, bool) {
	pass, option, found := strings.Cut(flatKey, ".")
	if !found {
		return "", false
	}
	v, ok := c.Pass(pass)[option]
	return v, ok
}
