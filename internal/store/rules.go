package store

import (
	"encoding/xml"
	"sync"

	"github.com/paramx/paramx/internal/rules"
)

type rulesDocument struct {
	XMLName xml.Name        `xml:"Rules"`
	Rules   []rules.RawRule `xml:"Rule"`
}

// RulesDAO reads and writes the extraction rules file.
type RulesDAO struct {
	path string
	mu   sync.Mutex
}

func NewRulesDAO(dataDir string) *RulesDAO {
	return &RulesDAO{path: RulesPath(dataDir)}
}

func (d *RulesDAO) Path() string {
	return d.path
}

// Raw returns the stored definitions in file order.
func (d *RulesDAO) Raw() ([]rules.RawRule, error) {
	var doc rulesDocument
	if _, err := readXML(d.path, &doc); err != nil {
		return nil, newError(err, "error parsing rules file %s", d.path)
	}
	return doc.Rules, nil
}

// Rules returns the compiled rule set. Any invalid rule rejects the set.
func (d *RulesDAO) Rules() ([]*rules.Rule, error) {
	raws, err := d.Raw()
	if err != nil {
		return nil, err
	}
	return compileRules(raws)
}

// SaveOrUpdate replaces the rule with the same id or appends it.
func (d *RulesDAO) SaveOrUpdate(raw rules.RawRule) error {
	if _, err := rules.Compile(raw); err != nil {
		return newError(err, "invalid rule %s", raw.ID)
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

// Delete removes the rules with the given ids and keeps the order of the rest.
func (d *RulesDAO) Delete(ids ...string) error {
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
		if _, ok := drop[raw.ID]; ok {
			continue
		}
		kept = append(kept, raw)
	}
	return d.write(kept)
}

func (d *RulesDAO) write(raws []rules.RawRule) error {
	if err := writeXML(d.path, rulesDocument{Rules: raws}); err != nil {
		return newError(err, "error writing rules file %s", d.path)
	}
	return nil
}

func compileRules(raws []rules.RawRule) ([]*rules.Rule, error) {
	out := make([]*rules.Rule, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		if _, dup := seen[raw.ID]; dup {
			return nil, newError(nil, "duplicated rule id %q", raw.ID)
		}
		seen[raw.ID] = struct{}{}

		rule, err := rules.Compile(raw)
		if err != nil {
			return nil, newError(err, "error building rule %s", raw.ID)
		}
		out = append(out, rule)
	}
	return out, nil
}
