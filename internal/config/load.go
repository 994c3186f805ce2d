package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.baseDir = filepath.Dir(absPath)
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills the optional settings left empty in the file.
func (c *Config) ApplyDefaults() {
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Extractor.Placement == "" {
		c.Extractor.Placement = PlacementDispatcher
	}
	if c.Extractor.ExcludedPaths == nil {
		c.Extractor.ExcludedPaths = []string{"/web", "/rest"}
	}
	if c.Extractor.Watch.Debounce <= 0 {
		c.Extractor.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = FormatText
	}
}

func (c *Config) resolvePath(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	base := c.baseDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, p)
}
