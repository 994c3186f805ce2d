package transform

import (
	"net/http"
	"strings"
)

// Transform accumulates path removals and parameter overrides for a single
// request without touching the request itself.
type Transform struct {
	originalURI string
	params      *Params
	removals    []string
}

func New(requestURI string, params *Params) *Transform {
	if params == nil {
		params = NewParams()
	}
	return &Transform{originalURI: requestURI, params: params}
}

// FromRequest captures the escaped request path and the query parameters of r.
func FromRequest(r *http.Request) *Transform {
	return New(r.URL.EscapedPath(), ParseQuery(r.URL.RawQuery))
}

func (t *Transform) OriginalRequestURI() string {
	return t.originalURI
}

// RemoveMatch marks text for removal from the rewritten request URI.
func (t *Transform) RemoveMatch(text string) {
	t.removals = append(t.removals, text)
}

func (t *Transform) HaveChanged() bool {
	return len(t.removals) > 0
}

// RequestURI returns the original URI with every marked text removed, in the
// order the removals were recorded.
func (t *Transform) RequestURI() string {
	uri := t.originalURI
	for _, text := range t.removals {
		if text == "" {
			continue
		}
		uri = strings.ReplaceAll(uri, text, "")
	}
	return uri
}

func (t *Transform) QueryString() string {
	return t.params.Encode()
}

// Parameters returns a copy of the current parameter set.
func (t *Transform) Parameters() *Params {
	return t.params.Clone()
}

func (t *Transform) Parameter(name string) (string, bool) {
	return t.params.Get(name)
}

func (t *Transform) SetParameter(name, value string) {
	t.params.Set(name, value)
}

func (t *Transform) String() string {
	query := t.QueryString()
	if query == "" {
		return t.RequestURI()
	}
	return t.RequestURI() + "?" + query
}
