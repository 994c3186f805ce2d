package capabilities

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// urlAttributes are the attributes OGC capabilities documents use for
// service endpoints, by local name.
var urlAttributes = map[string]bool{
	"href":           true,
	"onlineresource": true,
}

// Rewrite copies an XML document from src to dst, passing every URL-valued
// attribute and every OnlineResource text through fn. Namespace prefixes are
// written back exactly as read.
func Rewrite(dst io.Writer, src io.Reader, fn func(string) string) error {
	dec := xml.NewDecoder(src)
	dec.Strict = false
	enc := xml.NewEncoder(dst)

	inOnlineResource := 0
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "OnlineResource") {
				inOnlineResource++
			}
			t.Name = flatten(t.Name)
			attrs := make([]xml.Attr, len(t.Attr))
			for i, attr := range t.Attr {
				if urlAttributes[strings.ToLower(attr.Name.Local)] {
					attr.Value = fn(attr.Value)
				}
				attr.Name = flatten(attr.Name)
				attrs[i] = attr
			}
			t.Attr = attrs
			tok = t
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, "OnlineResource") && inOnlineResource > 0 {
				inOnlineResource--
			}
			t.Name = flatten(t.Name)
			tok = t
		case xml.CharData:
			if inOnlineResource > 0 {
				if text := strings.TrimSpace(string(t)); isURL(text) {
					tok = xml.CharData(strings.Replace(string(t), text, fn(text), 1))
				}
			}
		}

		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return err
		}
	}
	return enc.Close()
}

// flatten folds a raw prefix into the local name so the encoder does not
// invent namespace declarations of its own.
func flatten(name xml.Name) xml.Name {
	if name.Space == "" {
		return name
	}
	return xml.Name{Local: name.Space + ":" + name.Local}
}

func isURL(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
