package rules

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/paramx/paramx/internal/transform"
)

// RuleError reports a rule that matched but could not be applied.
type RuleError struct {
	ID  string
	Err error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.ID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Engine applies rules in their declared order.
type Engine struct {
	Rules []*Rule
}

func NewEngine(rules []*Rule) *Engine {
	return &Engine{Rules: rules}
}

// Apply runs every rule against t. Each rule sees the parameters produced by
// the rules before it. The ids of the rules that fired are returned.
func (e *Engine) Apply(t *transform.Transform) ([]string, error) {
	if e == nil {
		return nil, nil
	}

	var fired []string
	for _, rule := range e.Rules {
		matched, err := rule.apply(t)
		if err != nil {
			return fired, err
		}
		if matched {
			fired = append(fired, rule.ID)
		}
	}
	return fired, nil
}

// Apply runs the rule against t and returns it.
func (r *Rule) Apply(t *transform.Transform) (*transform.Transform, error) {
	_, err := r.apply(t)
	return t, err
}

func (r *Rule) apply(t *transform.Transform) (bool, error) {
	if !r.Activated {
		return false, nil
	}

	uri := t.OriginalRequestURI()
	if r.activation != nil && !r.activation.MatchString(uri) {
		return false, nil
	}

	loc := r.match.FindStringSubmatchIndex(uri)
	if loc == nil {
		return false, nil
	}
	if r.templateErr != nil {
		return false, &RuleError{ID: r.ID, Err: r.templateErr}
	}
	if r.Remove > r.match.NumSubexp() {
		return false, &RuleError{ID: r.ID, Err: fmt.Errorf("no group %d in %q", r.Remove, r.match.String())}
	}

	if start, end := loc[2*r.Remove], loc[2*r.Remove+1]; start >= 0 {
		t.RemoveMatch(uri[start:end])
	}

	expanded := string(r.match.ExpandString(nil, r.template, uri, loc))
	value, err := url.QueryUnescape(expanded)
	if err != nil {
		return false, &RuleError{ID: r.ID, Err: fmt.Errorf("decode %q: %w", expanded, err)}
	}

	r.addParameter(t, value)
	return true, nil
}

func (r *Rule) addParameter(t *transform.Transform, value string) {
	existing, exists := t.Parameter(r.Parameter)
	if r.Combine == "" || (!exists && !r.Repeat) {
		t.SetParameter(r.Parameter, value)
		return
	}

	times := 1
	if r.Repeat {
		if layers, ok := t.Parameter(layersParameter); ok {
			times = len(strings.Split(layers, ","))
		}
	}

	// A missing parameter starts from the value itself; an empty one is folded.
	combined, have := existing, exists
	for i := 0; i < times; i++ {
		if !have {
			combined, have = value, true
			continue
		}
		combined = combine(r.Combine, combined, value)
	}
	t.SetParameter(r.Parameter, combined)
}
