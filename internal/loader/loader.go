// Package loader reads grid rows from local files so a resource can be
// browsed offline in client mode.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// Format names an input encoding.
type Format string

const (
	FormatAuto   Format = ""
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatAuto
}

// LoadFile reads rows from path.
func LoadFile(path string) ([]grid.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := LoadRows(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// LoadRows decodes data into rows. Accepted shapes: an array of objects, a
// list envelope ({"data": [...]} or {"data": {"data": [...]}}), one object per
// line, multi-document YAML, or a TOML file whose first array of tables holds
// the rows.
func LoadRows(data []byte, format Format) ([]grid.Row, error) {
	input := strings.TrimSpace(string(data))
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}
	if format == FormatAuto {
		format = detect(input)
	}
	var docs []any
	var err error
	switch format {
	case FormatJSON:
		docs, err = loadJSON(input)
	case FormatNDJSON:
		docs, err = loadNDJSON(input)
	case FormatYAML:
		docs, err = loadYAML(input)
	case FormatTOML:
		docs, err = loadTOML(input)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return toRows(docs)
}

func detect(input string) Format {
	if strings.HasPrefix(input, "---") || strings.Contains(input, "\n---") {
		return FormatYAML
	}
	lines := strings.Split(input, "\n")
	if isLikelyNDJSON(lines) {
		return FormatNDJSON
	}
	if isLikelyTOML(lines) {
		return FormatTOML
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return FormatJSON
	}
	return FormatYAML
}

func loadJSON(input string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return []any{data}, nil
}

// loadNDJSON decodes one JSON value per line; blank lines are skipped.
func loadNDJSON(input string) ([]any, error) {
	var out []any
	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var obj any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

func loadYAML(input string) ([]any, error) {
	var out []any
	dec := yaml.NewDecoder(strings.NewReader(input))
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if doc != nil {
			out = append(out, doc)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no documents found in YAML")
	}
	return out, nil
}

func loadTOML(input string) ([]any, error) {
	var data map[string]any
	if err := toml.NewDecoder(bytes.NewReader([]byte(input))).Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if tables, ok := data[k].([]any); ok {
			return []any{tables}, nil
		}
	}
	return []any{data}, nil
}

// toRows flattens decoded documents into rows. A single document may be a
// list or an envelope; several documents are one row each unless they are
// lists themselves.
func toRows(docs []any) ([]grid.Row, error) {
	var rows []grid.Row
	for _, doc := range docs {
		doc = unwrapEnvelope(doc)
		switch v := doc.(type) {
		case []any:
			for i, e := range v {
				r, ok := asRow(e)
				if !ok {
					return nil, fmt.Errorf("element %d is %T, want an object", i, e)
				}
				rows = append(rows, r)
			}
		default:
			r, ok := asRow(v)
			if !ok {
				return nil, fmt.Errorf("document is %T, want an object or a list of objects", v)
			}
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func unwrapEnvelope(doc any) any {
	for range 2 {
		m, ok := doc.(map[string]any)
		if !ok {
			return doc
		}
		inner, ok := m["data"]
		if !ok {
			return doc
		}
		doc = inner
	}
	return doc
}

func asRow(v any) (grid.Row, bool) {
	switch m := v.(type) {
	case map[string]any:
		return grid.Row(m), true
	case grid.Row:
		return m, true
	}
	return nil, false
}

// isLikelyNDJSON requires several lines, most of them starting like a JSON object.
func isLikelyNDJSON(lines []string) bool {
	objects, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			objects++
		}
	}
	return nonEmpty > 1 && objects > nonEmpty/2
}

var (
	tomlSection  = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+")(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"))*\]{1,2}\s*$`)
	tomlKeyValue = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+")(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"))*\s*=\s*.+$`)
)

// isLikelyTOML looks for table headers, or mostly key = value lines.
func isLikelyTOML(lines []string) bool {
	sections, pairs, nonEmpty := 0, 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			sections++
		}
		if tomlKeyValue.MatchString(line) {
			pairs++
		}
	}
	return sections > 0 || (nonEmpty > 0 && pairs > nonEmpty/2)
}
