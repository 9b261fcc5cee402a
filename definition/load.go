package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a JSON report definition and normalizes it.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("definition: parsing report: %w", err)
	}
	r.normalize()
	return &r, nil
}

// ParseYAML decodes a YAML report definition using the JSON key names.
func ParseYAML(data []byte) (*Report, error) {
	raw, err := yamlToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("definition: parsing yaml report: %w", err)
	}
	return Parse(raw)
}

// Load reads a definition file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: %w", err)
	}
	if isYAML(path) {
		return ParseYAML(data)
	}
	return Parse(data)
}

// ParseData decodes a data payload. Numbers are kept as json.Number so the
// binder can convert them to decimals without a float round trip.
func ParseData(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("definition: parsing data: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// LoadData reads a JSON or YAML data payload from path.
func LoadData(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: %w", err)
	}
	if isYAML(path) {
		if data, err = yamlToJSON(data); err != nil {
			return nil, fmt.Errorf("definition: parsing yaml data: %w", err)
		}
	}
	return ParseData(data)
}

// Normalized returns a copy of r with legacy fields converted. The receiver
// is left untouched.
func (r *Report) Normalized() *Report {
	cp := *r
	cp.DocElements = make([]Element, len(r.DocElements))
	copy(cp.DocElements, r.DocElements)
	cp.normalize()
	return &cp
}

// normalize converts version 1 tables, which carried a single contentData
// row, into the contentDataRows list.
func (r *Report) normalize() {
	if r.Version == 0 || r.Version >= 2 {
		return
	}
	for i := range r.DocElements {
		el := &r.DocElements[i]
		if el.ElementType != "table" || el.ContentData == nil {
			continue
		}
		el.ContentDataRows = []TableRow{*el.ContentData}
		el.ContentData = nil
	}
	r.Version = 2
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
