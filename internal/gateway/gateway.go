package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/paramx/paramx/internal/capabilities"
	"github.com/paramx/paramx/internal/config"
	"github.com/paramx/paramx/internal/extractor"
	"github.com/paramx/paramx/internal/logging"
	"github.com/paramx/paramx/internal/observability"
	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-Id"

// Sets are the reloadable configuration sets the gateway reads per request.
type Sets struct {
	Rules *store.Live[[]*rules.Rule]
	Echo  *store.Live[[]rules.EchoParameter]
}

// Gateway proxies OWS traffic to the upstreams. The extractor runs either
// in front of routing (outer) or in front of each upstream (dispatcher).
type Gateway struct {
	router    *Router
	upstreams map[string]http.Handler
	handler   http.Handler
	timeout   time.Duration

	filters   []*extractor.Filter
	rewriters []*capabilities.Rewriter
	recordLog *logging.RecordLogger
	metrics   *observability.Metrics
	log       logrus.FieldLogger
}

func New(cfg *config.Config, sets Sets, log logrus.FieldLogger) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if sets.Rules == nil {
		sets.Rules = store.Static[[]*rules.Rule]("rules", nil)
	}
	if sets.Echo == nil {
		sets.Echo = store.Static[[]rules.EchoParameter]("echo", nil)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Server.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	g := &Gateway{
		router:    router,
		upstreams: make(map[string]http.Handler, len(cfg.Upstreams)),
		timeout:   timeout,
		log:       log,
	}

	active := extractor.Placement(cfg.Extractor.Placement)
	newFilter := func(placement extractor.Placement) *extractor.Filter {
		filter := extractor.NewFilter(extractor.Options{
			Enabled:       cfg.Extractor.Enabled,
			Placement:     placement,
			Active:        active,
			ExcludedPaths: cfg.Extractor.ExcludedPaths,
		}, sets.Rules, log)
		g.filters = append(g.filters, filter)
		return filter
	}
	dispatcher := newFilter(extractor.PlacementDispatcher)
	mangler := extractor.NewMangler(sets.Echo)
	transport := newTransport(timeout)

	for _, upstream := range cfg.Upstreams {
		target, err := url.Parse(upstream.URL)
		if err != nil {
			return nil, fmt.Errorf("parse upstream %s: %w", upstream.Name, err)
		}

		var rewriter *capabilities.Rewriter
		if cfg.Extractor.RewriteCapabilities {
			rewriter = capabilities.NewRewriter(mangler, target, log)
			g.rewriters = append(g.rewriters, rewriter)
		}
		g.upstreams[upstream.Name] = dispatcher.Wrap(g.newProxy(upstream.Name, target, transport, rewriter))
	}

	g.handler = newFilter(extractor.PlacementOuter).Wrap(http.HandlerFunc(g.route))
	return g, nil
}

func (g *Gateway) newProxy(name string, target *url.URL, transport http.RoundTripper, rewriter *capabilities.Rewriter) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = transport

	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		if rewriter != nil {
			rewriter.PrepareRequest(r)
		}
	}
	if rewriter != nil {
		proxy.ModifyResponse = rewriter.ModifyResponse
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.log.WithError(err).WithFields(logrus.Fields{
			"upstream":   name,
			"request_id": r.Header.Get(RequestIDHeader),
		}).Warn("upstream request failed")
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
		default:
			http.Error(w, "upstream error", http.StatusBadGateway)
		}
	}
	return proxy
}

func (g *Gateway) SetRecordLogger(logger *logging.RecordLogger) {
	g.recordLog = logger
}

func (g *Gateway) SetMetrics(metrics *observability.Metrics) {
	g.metrics = metrics
	for _, filter := range g.filters {
		filter.SetMetrics(metrics)
	}
	for _, rewriter := range g.rewriters {
		rewriter.SetMetrics(metrics)
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		r.Header.Set(RequestIDHeader, requestID)
	}
	w.Header().Set(RequestIDHeader, requestID)

	record := logging.Record{
		Timestamp:     start.UTC(),
		RequestID:     requestID,
		ClientIP:      clientIP(r),
		Host:          r.Host,
		Method:        r.Method,
		OriginalURI:   r.URL.EscapedPath(),
		OriginalQuery: r.URL.RawQuery,
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()
	ctx, trace := extractor.WithTrace(ctx)
	ex := &exchange{}
	ctx = context.WithValue(ctx, exchangeKey{}, ex)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	g.handler.ServeHTTP(rec, r.WithContext(ctx))

	record.StatusCode = rec.status
	record.RouteID = ex.route.ID
	record.Upstream = ex.route.Upstream
	if !ex.upstreamStart.IsZero() {
		record.UpstreamMS = time.Since(ex.upstreamStart).Milliseconds()
	}
	record.FiredRules = trace.FiredRules
	if trace.Rewritten {
		record.Rewritten = true
		record.RewrittenURI = trace.RequestURI
		record.RewrittenQuery = trace.Query
	}
	if trace.Err != nil {
		record.Error = trace.Err.Error()
	}
	g.writeRecord(record, start)
}

func (g *Gateway) route(w http.ResponseWriter, r *http.Request) {
	route, handler, ok := g.resolveRoute(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if ex, ok := r.Context().Value(exchangeKey{}).(*exchange); ok {
		ex.route = route
		ex.upstreamStart = time.Now()
	}
	handler.ServeHTTP(w, r)
}

func (g *Gateway) resolveRoute(r *http.Request) (Route, http.Handler, bool) {
	route, ok := g.router.Match(r)
	if !ok {
		return Route{}, nil, false
	}
	handler, ok := g.upstreams[route.Upstream]
	if !ok {
		return Route{}, nil, false
	}
	return route, handler, true
}

func (g *Gateway) writeRecord(record logging.Record, start time.Time) {
	record.DurationMS = time.Since(start).Milliseconds()
	if g.recordLog != nil {
		if err := g.recordLog.Write(record); err != nil {
			g.log.WithError(err).Warn("write rewrite log")
		}
	}
	if g.metrics != nil {
		g.metrics.Observe(record)
	}
}

// exchange carries routing results back out of the handler chain.
type exchange struct {
	route         Route
	upstreamStart time.Time
}

type exchangeKey struct{}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func newTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}
