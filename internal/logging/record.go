package logging

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/paramx/paramx/internal/config"
)

// Record is written as a single JSON object per request.
type Record struct {
	Timestamp      time.Time `json:"ts"`
	RequestID      string    `json:"request_id"`
	ClientIP       string    `json:"client_ip"`
	Host           string    `json:"host"`
	Method         string    `json:"method"`
	OriginalURI    string    `json:"original_uri"`
	OriginalQuery  string    `json:"original_query"`
	RewrittenURI   string    `json:"rewritten_uri,omitempty"`
	RewrittenQuery string    `json:"rewritten_query,omitempty"`
	Rewritten      bool      `json:"rewritten"`
	FiredRules     []string  `json:"fired_rules,omitempty"`
	RouteID        string    `json:"route_id"`
	Upstream       string    `json:"upstream"`
	Error          string    `json:"error,omitempty"`
	StatusCode     int       `json:"status_code"`
	DurationMS     int64     `json:"duration_ms"`
	UpstreamMS     int64     `json:"upstream_ms"`
}

type RecordLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewRecordLogger(w io.Writer) *RecordLogger {
	return &RecordLogger{w: w}
}

// OpenRecordLog appends records to a rotated JSONL file.
func OpenRecordLog(path string, rotation config.RotationConfig) (*RecordLogger, func() error) {
	rotated := Rotated(path, rotation)
	return NewRecordLogger(rotated), rotated.Close
}

func (l *RecordLogger) Write(record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}
