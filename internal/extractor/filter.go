package extractor

import (
	"net/http"
	"strings"

	"github.com/paramx/paramx/internal/normalize"
	"github.com/paramx/paramx/internal/observability"
	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/paramx/paramx/internal/transform"
	"github.com/sirupsen/logrus"
)

type Placement string

const (
	PlacementOuter      Placement = "outer"
	PlacementDispatcher Placement = "dispatcher"
)

type Options struct {
	Enabled bool
	// Placement is where this filter instance sits in the handler chain.
	Placement Placement
	// Active is the placement chosen in the configuration. Only the
	// instance whose placement matches runs, so a request is never
	// rewritten twice.
	Active        Placement
	ExcludedPaths []string
}

// Filter rewrites matching requests before handing them on.
type Filter struct {
	opts    Options
	rules   *store.Live[[]*rules.Rule]
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

func NewFilter(opts Options, ruleSet *store.Live[[]*rules.Rule], log logrus.FieldLogger) *Filter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Filter{
		opts:  opts,
		rules: ruleSet,
		log:   log.WithField("placement", string(opts.Placement)),
	}
}

func (f *Filter) SetMetrics(metrics *observability.Metrics) {
	f.metrics = metrics
}

func (f *Filter) Enabled() bool {
	return f != nil && f.opts.Enabled && f.opts.Placement == f.opts.Active
}

// Wrap returns a handler that rewrites requests and forwards them to next.
func (f *Filter) Wrap(next http.Handler) http.Handler {
	if !f.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, err := f.Rewrite(r)
		if err != nil {
			f.log.WithError(err).WithField("uri", r.URL.RequestURI()).Error("parameter extraction failed")
			http.Error(w, "parameter extraction failed", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, out)
	})
}

// Rewrite applies every rule to r. The returned request is r itself when no
// rule fired.
func (f *Filter) Rewrite(r *http.Request) (*http.Request, error) {
	if !f.Enabled() || f.excluded(r.URL.EscapedPath()) {
		return r, nil
	}
	if _, done := OriginalFrom(r.Context()); done {
		return r, nil
	}

	trace := traceFrom(r.Context())
	t := transform.FromRequest(r)
	fired, err := rules.NewEngine(f.rules.Get()).Apply(t)

	if trace != nil {
		trace.Applied = true
		trace.FiredRules = fired
		trace.OriginalURI = t.OriginalRequestURI()
		trace.Err = err
	}
	if f.metrics != nil {
		f.metrics.ObserveRules(fired, err)
	}
	if err != nil {
		return nil, err
	}
	if !t.HaveChanged() {
		return r, nil
	}

	out := wrapRequest(r, t)
	if trace != nil {
		trace.Rewritten = true
		trace.RequestURI = t.RequestURI()
		trace.Query = t.QueryString()
	}
	f.log.WithFields(logrus.Fields{
		"original":  t.OriginalRequestURI(),
		"rewritten": t.String(),
		"rules":     fired,
	}).Debug("request rewritten")
	return out, nil
}

var pathNormalization = normalize.Options{MaxDecodeDepth: 2, Lowercase: true, NormalizePath: true}

// excluded reports whether path starts with one of the excluded paths,
// either at the root or right after the context path segment, so that
// "/web" covers both "/web/..." and "/geoserver/web/...". Comparison happens
// on the decoded, cleaned and lower-cased path.
func (f *Filter) excluded(escapedPath string) bool {
	clean := normalize.Apply(escapedPath, pathNormalization).Normalized
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	candidates := []string{clean}
	if i := strings.IndexByte(clean[1:], '/'); i >= 0 {
		candidates = append(candidates, clean[i+1:])
	}
	for _, prefix := range f.opts.ExcludedPaths {
		want := strings.ToLower(strings.TrimSuffix(prefix, "/")) + "/"
		for _, c := range candidates {
			if strings.HasPrefix(c, want) {
				return true
			}
		}
	}
	return false
}
