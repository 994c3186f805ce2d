package config

import "time"

type Config struct {
	ConfigVersion int             `yaml:"configVersion"`
	Server        ServerConfig    `yaml:"server"`
	DataDir       string          `yaml:"dataDir"`
	Upstreams     []Upstream      `yaml:"upstreams"`
	Routes        []Route         `yaml:"routes"`
	Extractor     ExtractorConfig `yaml:"extractor"`
	Logging       LoggingConfig   `yaml:"logging"`
	Metrics       MetricsConfig   `yaml:"metrics"`

	baseDir string `yaml:"-"`
}

type ServerConfig struct {
	Listen  string        `yaml:"listen"`
	TLS     TLSConfig     `yaml:"tls"`
	Timeout time.Duration `yaml:"timeout"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

type Upstream struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Route struct {
	Match    RouteMatch `yaml:"match"`
	Upstream string     `yaml:"upstream"`
}

type RouteMatch struct {
	Host       string `yaml:"host"`
	PathPrefix string `yaml:"pathPrefix"`
}

type ExtractorConfig struct {
	Enabled bool `yaml:"enabled"`
	// Placement selects where the extractor runs: in front of every
	// request or only in front of the OWS dispatcher.
	Placement           string      `yaml:"placement"`
	ExcludedPaths       []string    `yaml:"excludedPaths"`
	RewriteCapabilities bool        `yaml:"rewriteCapabilities"`
	Watch               WatchConfig `yaml:"watch"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

type LoggingConfig struct {
	Level      string         `yaml:"level"`
	Format     string         `yaml:"format"`
	File       string         `yaml:"file"`
	Rotation   RotationConfig `yaml:"rotation"`
	RewriteLog string         `yaml:"rewriteLog"`
}

type RotationConfig struct {
	MaxSizeMB  int  `yaml:"maxSizeMB"`
	MaxBackups int  `yaml:"maxBackups"`
	MaxAgeDays int  `yaml:"maxAgeDays"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

const (
	PlacementOuter      = "outer"
	PlacementDispatcher = "dispatcher"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}

// DataPath is the absolute data directory holding the params-extractor files.
func (c *Config) DataPath() string {
	return c.resolvePath(c.DataDir)
}
