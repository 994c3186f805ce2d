package store

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	Dir       = "params-extractor"
	RulesFile = "extraction-rules.xml"
	EchoFile  = "echo-parameters.xml"
)

func RulesPath(dataDir string) string {
	return filepath.Join(dataDir, Dir, RulesFile)
}

func EchoPath(dataDir string) string {
	return filepath.Join(dataDir, Dir, EchoFile)
}

// readXML decodes path into v. A missing file leaves v untouched and
// reports false.
func readXML(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	return true, xml.Unmarshal(data, v)
}

// writeXML encodes v next to path and renames it into place, so readers
// never observe a partially written file.
func writeXML(path string, v any) error {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append([]byte(xml.Header), append(data, '\n')...)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return err
	}
	return os.Rename(name, path)
}
