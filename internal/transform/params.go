package transform

import (
	"net/url"
	"strings"
)

// Params is an ordered KVP parameter set with case-insensitive names.
// Names keep the spelling they were first added with.
type Params struct {
	order  []string
	names  map[string]string
	values map[string][]string
}

func NewParams() *Params {
	return &Params{
		names:  map[string]string{},
		values: map[string][]string{},
	}
}

// ParseQuery decodes a raw query string keeping parameter order. Values that
// are not valid escapes are kept verbatim.
func ParseQuery(raw string) *Params {
	p := NewParams()
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		p.Add(unescape(name), unescape(value))
	}
	return p
}

func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func key(name string) string {
	return strings.ToLower(name)
}

func (p *Params) Len() int {
	return len(p.order)
}

func (p *Params) Has(name string) bool {
	_, ok := p.values[key(name)]
	return ok
}

// Get returns the first value of name.
func (p *Params) Get(name string) (string, bool) {
	values, ok := p.values[key(name)]
	if !ok || len(values) == 0 {
		return "", ok
	}
	return values[0], true
}

func (p *Params) Values(name string) []string {
	return append([]string(nil), p.values[key(name)]...)
}

// Set replaces all values of name. An existing name keeps its position and
// original spelling.
func (p *Params) Set(name string, values ...string) {
	k := key(name)
	if _, ok := p.values[k]; !ok {
		p.order = append(p.order, k)
		p.names[k] = name
	}
	p.values[k] = append([]string(nil), values...)
}

func (p *Params) Add(name, value string) {
	k := key(name)
	if _, ok := p.values[k]; !ok {
		p.order = append(p.order, k)
		p.names[k] = name
	}
	p.values[k] = append(p.values[k], value)
}

func (p *Params) Del(name string) {
	k := key(name)
	if _, ok := p.values[k]; !ok {
		return
	}
	delete(p.values, k)
	delete(p.names, k)
	for i, existing := range p.order {
		if existing == k {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Names returns parameter names in insertion order, with their original case.
func (p *Params) Names() []string {
	out := make([]string, len(p.order))
	for i, k := range p.order {
		out[i] = p.names[k]
	}
	return out
}

func (p *Params) Clone() *Params {
	c := NewParams()
	for _, k := range p.order {
		c.Set(p.names[k], p.values[k]...)
	}
	return c
}

func (p *Params) URLValues() url.Values {
	out := make(url.Values, len(p.order))
	for _, k := range p.order {
		out[p.names[k]] = append([]string(nil), p.values[k]...)
	}
	return out
}

// Encode renders the first value of every parameter as name=value pairs.
func (p *Params) Encode() string {
	return p.encode(false)
}

// EncodeAll renders every value, repeating the name for each one.
func (p *Params) EncodeAll() string {
	return p.encode(true)
}

func (p *Params) encode(all bool) string {
	var b strings.Builder
	for _, k := range p.order {
		values := p.values[k]
		if len(values) == 0 {
			continue
		}
		if !all {
			values = values[:1]
		}
		for _, value := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(p.names[k])
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}
