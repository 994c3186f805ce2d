package rules

import (
	"encoding/xml"
	"regexp"
)

// RawRule is the persisted form of an extraction rule.
type RawRule struct {
	XMLName    xml.Name `xml:"Rule" json:"-" yaml:"-"`
	ID         string   `xml:"id,attr" json:"id" yaml:"id" validate:"required"`
	Activated  *bool    `xml:"activated,attr" json:"activated,omitempty" yaml:"activated,omitempty"`
	Position   *int     `xml:"position,attr" json:"position,omitempty" yaml:"position,omitempty" validate:"omitempty,min=1"`
	Match      string   `xml:"match,attr,omitempty" json:"match,omitempty" yaml:"match,omitempty"`
	Activation string   `xml:"activation,attr,omitempty" json:"activation,omitempty" yaml:"activation,omitempty"`
	Parameter  string   `xml:"parameter,attr" json:"parameter" yaml:"parameter" validate:"required"`
	Transform  string   `xml:"transform,attr" json:"transform" yaml:"transform" validate:"required"`
	Remove     *int     `xml:"remove,attr" json:"remove,omitempty" yaml:"remove,omitempty" validate:"omitempty,min=1"`
	Combine    string   `xml:"combine,attr,omitempty" json:"combine,omitempty" yaml:"combine,omitempty"`
	Repeat     *bool    `xml:"repeat,attr" json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

// Rule is a compiled extraction rule. Rules are immutable once built.
type Rule struct {
	ID        string
	Activated bool
	Parameter string
	Combine   string
	Repeat    bool
	Remove    int

	raw         RawRule
	match       *regexp.Regexp
	activation  *regexp.Regexp
	template    string
	templateErr error
}

// Raw returns the definition the rule was built from.
func (r *Rule) Raw() RawRule {
	return r.raw
}

// TemplateError reports a transform template that will fail when the rule
// matches, or nil.
func (r *Rule) TemplateError() error {
	return r.templateErr
}

const (
	defaultRemoveGroup = 1
	layersParameter    = "LAYERS"
)
