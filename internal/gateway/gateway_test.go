package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paramx/paramx/internal/config"
	"github.com/paramx/paramx/internal/logging"
	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
)

// echoBackend answers with the path and query it received.
func echoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Request-Id", r.Header.Get(RequestIDHeader))
		_, _ = w.Write([]byte(r.URL.EscapedPath() + "?" + r.URL.RawQuery))
	}))
	t.Cleanup(backend.Close)
	return backend
}

func sampleConfig(upstreamURL, placement string) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Timeout: 2 * time.Second},
		Upstreams: []config.Upstream{{Name: "geoserver", URL: upstreamURL}},
		Routes: []config.Route{
			{Match: config.RouteMatch{PathPrefix: "/geoserver"}, Upstream: "geoserver"},
		},
		Extractor: config.ExtractorConfig{
			Enabled:       true,
			Placement:     placement,
			ExcludedPaths: []string{"/web"},
		},
	}
}

func ruleSet(t *testing.T, builders ...*rules.Builder) Sets {
	t.Helper()
	built := make([]*rules.Rule, 0, len(builders))
	for _, b := range builders {
		rule, err := b.Build()
		if err != nil {
			t.Fatalf("build rule: %v", err)
		}
		built = append(built, rule)
	}
	return Sets{Rules: store.Static("rules", built)}
}

func layerRule() *rules.Builder {
	return rules.NewBuilder().
		WithID("layer").
		WithMatch(`^/geoserver/tiger/wms(/([^/]+))$`).
		WithParameter("CQL_FILTER").
		WithTransform("CFCC='$2'")
}

func serve(gw *Gateway, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	return rec
}

func TestGatewayProxiesRewrittenRequest(t *testing.T) {
	backend := echoBackend(t)

	for _, placement := range []string{config.PlacementDispatcher, config.PlacementOuter} {
		gw, err := New(sampleConfig(backend.URL, placement), ruleSet(t, layerRule()), nil)
		if err != nil {
			t.Fatalf("New error: %v", err)
		}

		rec := serve(gw, "http://example.com/geoserver/tiger/wms/H11?SERVICE=WMS")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", placement, rec.Code)
		}
		body, _ := io.ReadAll(rec.Body)
		want := "/geoserver/tiger/wms?SERVICE=WMS&CQL_FILTER=CFCC%3D%27H11%27"
		if string(body) != want {
			t.Fatalf("%s: expected upstream to see %q, got %q", placement, want, string(body))
		}
	}
}

func TestGatewayOuterPlacementRoutesOnRewrittenPath(t *testing.T) {
	backend := echoBackend(t)

	cfg := sampleConfig(backend.URL, config.PlacementOuter)
	cfg.Routes = []config.Route{{Match: config.RouteMatch{PathPrefix: "/ows"}, Upstream: "geoserver"}}
	sets := ruleSet(t, rules.NewBuilder().
		WithID("virtual").
		WithMatch(`^(/virtual/([^/]+))/ows$`).
		WithParameter("LAYERS").
		WithTransform("$2"))

	gw, err := New(cfg, sets, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	rec := serve(gw, "http://example.com/virtual/roads/ows")
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || string(body) != "/ows?LAYERS=roads" {
		t.Fatalf("expected outer rewrite before routing, got %d %q", rec.Code, string(body))
	}

	cfg.Extractor.Placement = config.PlacementDispatcher
	gw, err = New(cfg, sets, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if rec := serve(gw, "http://example.com/virtual/roads/ows"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when routing sees the virtual path, got %d", rec.Code)
	}
}

func TestGatewayDisabledExtractor(t *testing.T) {
	backend := echoBackend(t)

	cfg := sampleConfig(backend.URL, config.PlacementDispatcher)
	cfg.Extractor.Enabled = false
	gw, err := New(cfg, ruleSet(t, layerRule()), nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	body, _ := io.ReadAll(serve(gw, "http://example.com/geoserver/tiger/wms/H11").Body)
	if string(body) != "/geoserver/tiger/wms/H11?" {
		t.Fatalf("expected untouched request, got %q", string(body))
	}
}

func TestGatewayWritesRecords(t *testing.T) {
	backend := echoBackend(t)

	gw, err := New(sampleConfig(backend.URL, config.PlacementDispatcher), ruleSet(t, layerRule()), nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	var buf bytes.Buffer
	gw.SetRecordLogger(logging.NewRecordLogger(&buf))

	rec := serve(gw, "http://example.com/geoserver/tiger/wms/H11?SERVICE=WMS")
	requestID := rec.Header().Get(RequestIDHeader)
	if requestID == "" || rec.Header().Get("X-Seen-Request-Id") != requestID {
		t.Fatalf("expected request id to reach upstream, got %q", requestID)
	}

	var record logging.Record
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if !record.Rewritten || record.RouteID != "route-0" || record.Upstream != "geoserver" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.OriginalURI != "/geoserver/tiger/wms/H11" || record.RewrittenURI != "/geoserver/tiger/wms" {
		t.Fatalf("unexpected uris %q -> %q", record.OriginalURI, record.RewrittenURI)
	}
	if len(record.FiredRules) != 1 || record.FiredRules[0] != "layer" {
		t.Fatalf("unexpected fired rules %v", record.FiredRules)
	}
	if record.RequestID != requestID || record.StatusCode != http.StatusOK {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestGatewayRuleFailure(t *testing.T) {
	backend := echoBackend(t)

	broken := rules.NewBuilder().WithID("broken").WithMatch(`^/geoserver/ows$`).WithParameter("P").WithTransform("$4")
	gw, err := New(sampleConfig(backend.URL, config.PlacementDispatcher), ruleSet(t, broken), nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	var buf bytes.Buffer
	gw.SetRecordLogger(logging.NewRecordLogger(&buf))

	rec := serve(gw, "http://example.com/geoserver/ows")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"error":"rule broken`) {
		t.Fatalf("expected error in record, got %s", buf.String())
	}
}

func TestGatewayNotFound(t *testing.T) {
	backend := echoBackend(t)

	gw, err := New(sampleConfig(backend.URL, config.PlacementDispatcher), Sets{}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if rec := serve(gw, "http://example.com/other"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGatewayUpstreamDown(t *testing.T) {
	backend := echoBackend(t)
	url := backend.URL
	backend.Close()

	gw, err := New(sampleConfig(url, config.PlacementDispatcher), Sets{}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if rec := serve(gw, "http://example.com/geoserver/ows"); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestGatewayRewritesCapabilities(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") == "gzip, br" {
			t.Errorf("client encoding leaked upstream")
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<WMS_Capabilities xmlns:xlink="http://www.w3.org/1999/xlink"><OnlineResource xlink:href="http://` + r.Host + `/geoserver/tiger/wms?SERVICE=WMS"/></WMS_Capabilities>`))
	}))
	defer backend.Close()

	cfg := sampleConfig(backend.URL, config.PlacementDispatcher)
	cfg.Extractor.RewriteCapabilities = true
	sets := ruleSet(t, layerRule())
	sets.Echo = store.Static("echo", []rules.EchoParameter{{ID: "0", Parameter: "ENV", Activated: true}})

	gw, err := New(cfg, sets, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "http://public.example/geoserver/tiger/wms/H11?REQUEST=GetCapabilities&ENV=color:red", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	want := `xlink:href="http://public.example/geoserver/tiger/wms/H11?SERVICE=WMS&amp;ENV=color%3Ared"`
	if !strings.Contains(string(body), want) {
		t.Fatalf("expected %s in %s", want, string(body))
	}
}
