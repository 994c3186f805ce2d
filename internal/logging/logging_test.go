package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paramx/paramx/internal/config"
	"github.com/sirupsen/logrus"
)

func TestRecordLoggerWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRecordLogger(&buf)

	record := Record{
		Timestamp:    time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		RequestID:    "req-1",
		OriginalURI:  "/geoserver/tiger/wms/H11",
		RewrittenURI: "/geoserver/tiger/wms",
		Rewritten:    true,
		FiredRules:   []string{"0"},
	}

	if err := logger.Write(record); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var parsed Record
	if err := json.Unmarshal([]byte(lines[0]), &parsed); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !parsed.Rewritten || len(parsed.FiredRules) != 1 {
		t.Fatalf("unexpected record %+v", parsed)
	}
}

func TestRecordLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRecordLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = logger.Write(Record{RequestID: "r"})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paramx.log")
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: config.FormatJSON}, path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}

	logger.WithField("rule", "0").Info("hello")
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"rule":"0"`) {
		t.Fatalf("expected json field in %q", string(data))
	}
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "loud"}, ""); err == nil {
		t.Fatal("expected level error")
	}
}
