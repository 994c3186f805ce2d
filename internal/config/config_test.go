package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `configVersion: 1
server:
  listen: "127.0.0.1:8080"
dataDir: data
upstreams:
  - name: geoserver
    url: http://127.0.0.1:9090
routes:
  - match:
      pathPrefix: /geoserver
    upstream: geoserver
extractor:
  enabled: true
  watch:
    enabled: true
    debounce: 2s
logging:
  level: debug
  format: json
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "paramx.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v (%v)", err, err.(*ValidationError).Problems)
	}

	if cfg.Extractor.Placement != PlacementDispatcher {
		t.Fatalf("expected default placement, got %q", cfg.Extractor.Placement)
	}
	if len(cfg.Extractor.ExcludedPaths) != 2 || cfg.Extractor.ExcludedPaths[0] != "/web" || cfg.Extractor.ExcludedPaths[1] != "/rest" {
		t.Fatalf("expected default excluded paths, got %v", cfg.Extractor.ExcludedPaths)
	}
	if cfg.Extractor.Watch.Debounce != 2*time.Second {
		t.Fatalf("expected 2s debounce, got %v", cfg.Extractor.Watch.Debounce)
	}
	if cfg.DataPath() != filepath.Join(filepath.Dir(path), "data") {
		t.Fatalf("unexpected data path %q", cfg.DataPath())
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := &Config{
		ConfigVersion: 2,
		Server:        ServerConfig{Listen: ""},
		Upstreams:     []Upstream{{Name: "a", URL: "not-a-url"}, {Name: "a", URL: "http://x"}},
		Routes:        []Route{{Match: RouteMatch{PathPrefix: "ows"}, Upstream: "missing"}},
		Extractor:     ExtractorConfig{Placement: "both", ExcludedPaths: []string{"web"}},
		Logging:       LoggingConfig{Level: "loud", Format: "xml"},
	}

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	want := []string{
		"configVersion must be 1",
		"dataDir is required",
		"extractor.excludedPaths[0] must start with /",
		"extractor.placement must be outer|dispatcher",
		"logging.format must be text|json",
		"logging.level invalid",
		"routes[0].match.pathPrefix must start with /",
		"routes[0].upstream \"missing\" does not exist",
		"server.listen invalid",
		"upstreams[0].url invalid",
		"upstreams[1].name \"a\" is duplicated",
	}
	joined := strings.Join(verr.Problems, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Fatalf("expected problem %q in:\n%s", w, joined)
		}
	}
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{baseDir: "/etc/paramx"}
	if got := cfg.ResolvePath("logs/a.log"); got != "/etc/paramx/logs/a.log" {
		t.Fatalf("unexpected relative resolution %q", got)
	}
	if got := cfg.ResolvePath("/var/a.log"); got != "/var/a.log" {
		t.Fatalf("unexpected absolute resolution %q", got)
	}
	if got := cfg.ResolvePath(""); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}
