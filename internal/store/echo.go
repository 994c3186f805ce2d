package store

import (
	"encoding/xml"
	"sync"

	"github.com/paramx/paramx/internal/rules"
)

type echoDocument struct {
	XMLName    xml.Name                 `xml:"EchoParameters"`
	Parameters []rules.RawEchoParameter `xml:"EchoParameter"`
}

// EchoDAO reads and writes the echo parameters file.
type EchoDAO struct {
	path string
	mu   sync.Mutex
}

func NewEchoDAO(dataDir string) *EchoDAO {
	return &EchoDAO{path: EchoPath(dataDir)}
}

func (d *EchoDAO) Path() string {
	return d.path
}

func (d *EchoDAO) Raw() ([]rules.RawEchoParameter, error) {
	var doc echoDocument
	if _, err := readXML(d.path, &doc); err != nil {
		return nil, newError(err, "error parsing echo parameters file %s", d.path)
	}
	return doc.Parameters, nil
}

func (d *EchoDAO) Parameters() ([]rules.EchoParameter, error) {
	raws, err := d.Raw()
	if err != nil {
		return nil, err
	}
	out := make([]rules.EchoParameter, 0, len(raws))
	for _, raw := range raws {
		p, err := rules.BuildEchoParameter(raw)
		if err != nil {
			return nil, newError(err, "error building echo parameter %s", raw.ID)
		}
		out = append(out, p)
	}
	return out, nil
}

// SaveOrUpdate replaces the echo parameter with the same id or appends it.
func (d *EchoDAO) SaveOrUpdate(raw rules.RawEchoParameter) error {
	if _, err := rules.BuildEchoParameter(raw); err != nil {
		return newError(err, "invalid echo parameter %s", raw.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	raws, err := d.Raw()
	if err != nil {
		return err
	}
	replaced := false
	for i := range raws {
		if raws[i].ID == raw.ID {
			raws[i] = raw
			replaced = true
			break
		}
	}
	if !replaced {
		raws = append(raws, raw)
	}
	return d.write(raws)
}

func (d *EchoDAO) Delete(ids ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raws, err := d.Raw()
	if err != nil {
		return err
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := raws[:0]
	for _, raw := range raws {
		if _, ok := drop[raw.ID]; !ok {
			kept = append(kept, raw)
		}
	}
	return d.write(kept)
}

func (d *EchoDAO) write(raws []rules.RawEchoParameter) error {
	if err := writeXML(d.path, echoDocument{Parameters: raws}); err != nil {
		return newError(err, "error writing echo parameters file %s", d.path)
	}
	return nil
}
