package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paramx/paramx/internal/logging"
)

type Summary struct {
	Total       int            `json:"total"`
	Rewritten   int            `json:"rewritten"`
	Unchanged   int            `json:"unchanged"`
	Errors      int            `json:"errors"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	TopRules    []CountItem    `json:"top_rules"`
	TopPaths    []CountItem    `json:"top_paths"`
	TopErrors   []CountItem    `json:"top_errors"`
	StatusCodes []CountItem    `json:"status_codes"`
	Latency     LatencySummary `json:"latency"`
}

type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type LatencySummary struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Reader loads rewrite records from a JSONL file.
type Reader struct {
	Since time.Time
}

func (r *Reader) Read(path string) ([]logging.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []logging.Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec logging.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if !r.Since.IsZero() && rec.Timestamp.Before(r.Since) {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func Summarize(records []logging.Record) Summary {
	var summary Summary
	if len(records) == 0 {
		return summary
	}

	summary.Start = records[0].Timestamp
	summary.End = records[0].Timestamp

	ruleCounts := map[string]int{}
	pathCounts := map[string]int{}
	errorCounts := map[string]int{}
	statusCounts := map[string]int{}
	latencies := make([]int64, 0, len(records))

	for _, rec := range records {
		summary.Total++
		if rec.Timestamp.Before(summary.Start) {
			summary.Start = rec.Timestamp
		}
		if rec.Timestamp.After(summary.End) {
			summary.End = rec.Timestamp
		}

		switch {
		case rec.Error != "":
			summary.Errors++
			errorCounts[rec.Error]++
		case rec.Rewritten:
			summary.Rewritten++
			pathCounts[rec.OriginalURI]++
		default:
			summary.Unchanged++
		}

		for _, id := range rec.FiredRules {
			ruleCounts[id]++
		}
		statusCounts[strconv.Itoa(rec.StatusCode)]++
		latencies = append(latencies, rec.DurationMS)
	}

	summary.TopRules = topCounts(ruleCounts, 5)
	summary.TopPaths = topCounts(pathCounts, 5)
	summary.TopErrors = topCounts(errorCounts, 5)
	summary.StatusCodes = topCounts(statusCounts, 10)
	summary.Latency = latencySummary(latencies)

	return summary
}

func topCounts(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
		items = append(items, CountItem{Key: key, Count: count})
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

func latencySummary(values []int64) LatencySummary {
	if len(values) == 0 {
		return LatencySummary{}
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySummary{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}
}

func percentile(values []int64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(float64(len(values)-1) * p)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return float64(values[idx])
}

func RenderText(summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %d\n", summary.Total)
	fmt.Fprintf(&b, "Rewritten: %d\n", summary.Rewritten)
	fmt.Fprintf(&b, "Unchanged: %d\n", summary.Unchanged)
	fmt.Fprintf(&b, "Errors: %d\n", summary.Errors)
	fmt.Fprintf(&b, "Latency p50/p95/p99 (ms): %.0f/%.0f/%.0f\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCounts(&b, "Top fired rules", summary.TopRules)
	writeCounts(&b, "Top rewritten paths", summary.TopPaths)
	writeCounts(&b, "Top errors", summary.TopErrors)
	writeCounts(&b, "Status codes", summary.StatusCodes)

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# Parameter Extraction Report\n\n")
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", summary.Total)
	fmt.Fprintf(&b, "- Rewritten: %d\n", summary.Rewritten)
	fmt.Fprintf(&b, "- Unchanged: %d\n", summary.Unchanged)
	fmt.Fprintf(&b, "- Errors: %d\n", summary.Errors)
	fmt.Fprintf(&b, "- Latency p50/p95/p99 (ms): %.0f/%.0f/%.0f\n\n", summary.Latency.P50, summary.Latency.P95, summary.Latency.P99)

	writeCountsMarkdown(&b, "Top fired rules", summary.TopRules)
	writeCountsMarkdown(&b, "Top rewritten paths", summary.TopPaths)
	writeCountsMarkdown(&b, "Top errors", summary.TopErrors)
	writeCountsMarkdown(&b, "Status codes", summary.StatusCodes)

	return b.String()
}

func RenderJSON(summary Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

func writeCounts(b *strings.Builder, title string, items []CountItem) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
}

func writeCountsMarkdown(b *strings.Builder, title string, items []CountItem) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
	b.WriteString("\n")
}

func WriteOutput(path string, content []byte) error {
	if path == "" {
		_, err := io.Copy(os.Stdout, bytes.NewReader(content))
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
