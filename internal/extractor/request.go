package extractor

import (
	"context"
	"net/http"
	"net/url"

	"github.com/paramx/paramx/internal/transform"
)

// Original describes a request as it arrived, before any rule rewrote it.
type Original struct {
	URI           string
	Query         string
	Params        *transform.Params
	RewrittenPath string
}

type originalKey struct{}

// OriginalFrom returns the pre-rewrite view of a wrapped request.
func OriginalFrom(ctx context.Context) (*Original, bool) {
	orig, ok := ctx.Value(originalKey{}).(*Original)
	return orig, ok
}

// wrapRequest returns a copy of r whose URL reflects t. The original URI and
// parameters stay reachable through the request context.
func wrapRequest(r *http.Request, t *transform.Transform) *http.Request {
	orig := &Original{
		URI:    t.OriginalRequestURI(),
		Query:  r.URL.RawQuery,
		Params: transform.ParseQuery(r.URL.RawQuery),
	}

	out := r.Clone(context.WithValue(r.Context(), originalKey{}, orig))
	setEscapedPath(out.URL, t.RequestURI())
	out.URL.RawQuery = t.QueryString()
	out.RequestURI = out.URL.RequestURI()
	orig.RewrittenPath = out.URL.Path
	return out
}

func setEscapedPath(u *url.URL, escaped string) {
	path, err := url.PathUnescape(escaped)
	if err != nil {
		u.Path = escaped
		u.RawPath = ""
		return
	}
	u.Path = path
	u.RawPath = ""
	if u.EscapedPath() != escaped {
		u.RawPath = escaped
	}
}

// Trace collects what the filter did to a request.
type Trace struct {
	Applied     bool
	Rewritten   bool
	FiredRules  []string
	OriginalURI string
	RequestURI  string
	Query       string
	Err         error
}

type traceKey struct{}

// WithTrace attaches an empty trace to ctx for the filter to fill.
func WithTrace(ctx context.Context) (context.Context, *Trace) {
	trace := &Trace{}
	return context.WithValue(ctx, traceKey{}, trace), trace
}

func traceFrom(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceKey{}).(*Trace)
	return trace
}
