package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every problem found in a rule definition.
type ValidationError struct {
	ID       string
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	if len(v.Problems) == 1 {
		return fmt.Sprintf("rule %s: %s", v.ID, v.Problems[0])
	}
	return fmt.Sprintf("rule %s: %d validation error(s)", v.ID, len(v.Problems))
}

// Builder assembles a Rule field by field.
type Builder struct {
	raw RawRule
}

func NewBuilder() *Builder {
	return &Builder{}
}

// From starts the builder from an existing definition.
func (b *Builder) From(raw RawRule) *Builder {
	b.raw = raw
	return b
}

func (b *Builder) WithID(id string) *Builder {
	b.raw.ID = id
	return b
}

func (b *Builder) WithActivated(activated bool) *Builder {
	b.raw.Activated = &activated
	return b
}

func (b *Builder) WithPosition(position int) *Builder {
	b.raw.Position = &position
	return b
}

func (b *Builder) WithMatch(match string) *Builder {
	b.raw.Match = match
	return b
}

func (b *Builder) WithActivation(activation string) *Builder {
	b.raw.Activation = activation
	return b
}

func (b *Builder) WithParameter(parameter string) *Builder {
	b.raw.Parameter = parameter
	return b
}

func (b *Builder) WithTransform(transform string) *Builder {
	b.raw.Transform = transform
	return b
}

func (b *Builder) WithRemove(remove int) *Builder {
	b.raw.Remove = &remove
	return b
}

func (b *Builder) WithCombine(combine string) *Builder {
	b.raw.Combine = combine
	return b
}

func (b *Builder) WithRepeat(repeat bool) *Builder {
	b.raw.Repeat = &repeat
	return b
}

func (b *Builder) Build() (*Rule, error) {
	raw := b.raw
	v := &ValidationError{ID: raw.ID}

	if err := checkStruct(v, raw); err != nil {
		return nil, err
	}

	switch {
	case raw.Position == nil && raw.Match == "":
		v.Add("position or match is required")
	case raw.Position != nil && raw.Match != "":
		v.Add("position and match are mutually exclusive")
	}

	var match, activation *regexp.Regexp
	var err error
	if raw.Position != nil && *raw.Position >= 1 {
		match = regexp.MustCompile(positionPattern(*raw.Position))
	}
	if raw.Match != "" {
		if match, err = compileFull(raw.Match); err != nil {
			v.Add("match invalid: %v", err)
		}
	}
	if raw.Activation != "" {
		if activation, err = compileFull(raw.Activation); err != nil {
			v.Add("activation invalid: %v", err)
		}
	}

	if len(v.Problems) > 0 {
		sort.Strings(v.Problems)
		return nil, v
	}

	rule := &Rule{
		ID:         raw.ID,
		Activated:  boolOr(raw.Activated, true),
		Parameter:  raw.Parameter,
		Combine:    raw.Combine,
		Repeat:     boolOr(raw.Repeat, false),
		Remove:     intOr(raw.Remove, defaultRemoveGroup),
		raw:        raw,
		match:      match,
		activation: activation,
	}
	rule.template, rule.templateErr = convertTemplate(raw.Transform, match.SubexpNames())
	return rule, nil
}

// Compile builds a rule from its persisted definition.
func Compile(raw RawRule) (*Rule, error) {
	return NewBuilder().From(raw).Build()
}

// positionPattern selects the path segment at the 1-based position. Group 1
// holds the segment with its leading slash and group 2 the bare segment.
func positionPattern(position int) string {
	return fmt.Sprintf(`^(?:/[^/]*){%d}(/([^/]+)).*$`, position-1)
}

func compileFull(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

func checkStruct(v *ValidationError, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			v.Add("%s is required", fieldName(fe.Field()))
		case "min":
			v.Add("%s must be >= %s", fieldName(fe.Field()), fe.Param())
		default:
			v.Add("%s is invalid", fieldName(fe.Field()))
		}
	}
	return nil
}

func fieldName(field string) string {
	switch field {
	case "ID":
		return "id"
	default:
		return lowerFirst(field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]+('a'-'A')) + s[1:]
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
