package extractor

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/paramx/paramx/internal/rules"
	"github.com/paramx/paramx/internal/store"
	"github.com/paramx/paramx/internal/transform"
)

const getCapabilities = "GetCapabilities"

// Mangler carries echo parameters from the original request into URLs
// generated for a GetCapabilities response, so clients following those
// links keep the virtual service they started from.
type Mangler struct {
	echo *store.Live[[]rules.EchoParameter]
}

func NewMangler(echo *store.Live[[]rules.EchoParameter]) *Mangler {
	return &Mangler{echo: echo}
}

// Applies reports whether r is a capabilities request the mangler acts on.
func (m *Mangler) Applies(r *http.Request) bool {
	if m == nil || r == nil {
		return false
	}
	value, ok := transform.ParseQuery(r.URL.RawQuery).Get("REQUEST")
	return ok && strings.EqualFold(value, getCapabilities)
}

// MangleURL updates path and kvp for a URL built while answering r. Echo
// parameters present in the original request but missing from kvp are
// copied over, and a path equal to the rewritten one goes back to the path
// the client asked for. It reports whether anything changed.
func (m *Mangler) MangleURL(r *http.Request, path *string, kvp *transform.Params) bool {
	if !m.Applies(r) {
		return false
	}

	original := transform.ParseQuery(r.URL.RawQuery)
	orig, rewritten := OriginalFrom(r.Context())
	if rewritten {
		original = orig.Params
	}

	changed := false
	for _, echo := range m.echo.Get() {
		if !echo.Activated || kvp.Has(echo.Parameter) {
			continue
		}
		if values := original.Values(echo.Parameter); len(values) > 0 {
			kvp.Set(echo.Parameter, values...)
			changed = true
		}
	}

	if rewritten && path != nil && *path == orig.RewrittenPath {
		originalPath, _, _ := strings.Cut(orig.URI, "?")
		if unescaped, err := url.PathUnescape(originalPath); err == nil {
			originalPath = unescaped
		}
		if originalPath != *path {
			*path = originalPath
			changed = true
		}
	}
	return changed
}

// Mangle rewrites a single absolute or relative URL string.
func (m *Mangler) Mangle(r *http.Request, raw string) string {
	if !m.Applies(r) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	kvp := transform.ParseQuery(u.RawQuery)
	existing := kvp.Clone()
	path := u.Path
	if !m.MangleURL(r, &path, kvp) {
		return raw
	}
	u.Path = path
	u.RawPath = ""

	// Parameters already in the link are left as written; only the echoed
	// ones are appended.
	added := transform.NewParams()
	for _, name := range kvp.Names() {
		if !existing.Has(name) {
			added.Set(name, kvp.Values(name)...)
		}
	}
	if extra := added.EncodeAll(); extra != "" {
		if u.RawQuery != "" && !strings.HasSuffix(u.RawQuery, "&") {
			u.RawQuery += "&"
		}
		u.RawQuery += extra
	}
	return u.String()
}
