package formatter

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// FormatYAML renders rows as a YAML list restricted to fields, in field
// order. Multi-line strings become literal blocks.
func FormatYAML(rows []grid.Row, fields []string, indent int) (string, error) {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range fields {
			var v yaml.Node
			if err := v.Encode(yamlValue(r[f])); err != nil {
				return "", err
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f}, &v)
		}
		list.Content = append(list.Content, m)
	}
	applyLiteralStyle(list)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if indent <= 0 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(list); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// yamlValue turns json.Number back into a number so it is not quoted.
func yamlValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func applyLiteralStyle(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	for _, c := range n.Content {
		applyLiteralStyle(c)
	}
}
