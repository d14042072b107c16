// Package config loads the optional preflight configuration file. Every
// field has a default; an absent file means "all defaults".
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SeanYHan888/SimPO/internal/envprobe"
)

const defaultTimeoutMs = 15000

type Config struct {
	Preflight PreflightConfig `yaml:"preflight"`
}

type PreflightConfig struct {
	// Python is the interpreter of the training environment.
	Python string `yaml:"python"`

	// ExtensionModule is the native module imported to trigger the ABI
	// check.
	ExtensionModule string `yaml:"extension_module"`

	// TimeoutMs bounds the whole diagnostic pass.
	TimeoutMs int `yaml:"timeout_ms"`

	// ReleaseTag pins the flash-attn release for wheel resolution; empty
	// means resolve the latest.
	ReleaseTag string `yaml:"release_tag"`
}

// Default returns a config with every field at its default.
func Default() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Load reads and normalizes a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Normalize()
	return &c, nil
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	p := &c.Preflight
	if p.Python == "" {
		p.Python = envprobe.DefaultPython
	}
	if p.ExtensionModule == "" {
		p.ExtensionModule = envprobe.DefaultExtensionModule
	}
	if p.TimeoutMs <= 0 {
		p.TimeoutMs = defaultTimeoutMs
	}
}

// Timeout returns the probe timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Preflight.TimeoutMs) * time.Millisecond
}
