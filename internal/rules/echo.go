package rules

import "encoding/xml"

// RawEchoParameter is the persisted form of an echo parameter.
type RawEchoParameter struct {
	XMLName   xml.Name `xml:"EchoParameter" json:"-" yaml:"-"`
	ID        string   `xml:"id,attr" json:"id" yaml:"id" validate:"required"`
	Parameter string   `xml:"parameter,attr" json:"parameter" yaml:"parameter" validate:"required"`
	Activated *bool    `xml:"activated,attr" json:"activated,omitempty" yaml:"activated,omitempty"`
}

// EchoParameter names a request parameter that is forwarded into the URLs
// of generated capabilities documents.
type EchoParameter struct {
	ID        string
	Parameter string
	Activated bool
}

func BuildEchoParameter(raw RawEchoParameter) (EchoParameter, error) {
	v := &ValidationError{ID: raw.ID}
	if err := checkStruct(v, raw); err != nil {
		return EchoParameter{}, err
	}
	if len(v.Problems) > 0 {
		return EchoParameter{}, v
	}
	return EchoParameter{
		ID:        raw.ID,
		Parameter: raw.Parameter,
		Activated: boolOr(raw.Activated, true),
	}, nil
}
