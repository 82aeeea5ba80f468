package proposal

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeForm parses a YAML (or JSON, which is valid YAML) form document.
// Unknown keys are rejected so that typos do not silently drop input.
func DecodeForm(r io.Reader) (Form, error) {
	var f Form
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Form{}, nil
		}
		return Form{}, fmt.Errorf("decode form: %w", err)
	}
	return f, nil
}

// LoadForm reads a form file from disk.
func LoadForm(path string) (Form, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Form{}, fmt.Errorf("read form %s: %w", path, err)
	}
	return DecodeForm(bytes.NewReader(raw))
}
