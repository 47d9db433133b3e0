package ldforge

import (
	"bytes"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"sourcery.dny.nu/ldforge/internal/json"
)

// YAMLPreview renders a JSON document as YAML for display purposes. Key
// order of the input is kept.
//
// Strings are only quoted when they'd otherwise be read back as something
// else, like a number, a boolean or a YAML indicator.
func YAMLPreview(document json.RawMessage) (string, error) {
	decoded, err := json.Decode(document)
	if err != nil {
		return "", invalidDocument("document is not valid JSON: %s", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlNode(decoded)); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func yamlNode(v any) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case bool:
		val := "false"
		if t {
			val = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: val}
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(string(t), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(t)}
	case string:
		return yamlString(t)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(t) == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, e := range t {
			n.Content = append(n.Content, yamlNode(e))
		}
		return n
	case *json.Object:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if t.Len() == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, k := range t.Keys() {
			e, _ := t.Get(k)
			n.Content = append(n.Content, yamlString(k), yamlNode(e))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func yamlString(s string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if needsQuotes(s) {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

// yamlWords are plain scalars a YAML 1.1 reader would not treat as strings.
var yamlWords = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "on": {}, "off": {},
	"y": {}, "n": {}, "null": {}, "~": {},
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}

	if _, ok := yamlWords[strings.ToLower(s)]; ok {
		return true
	}

	first := rune(s[0])
	if unicode.IsDigit(first) || strings.ContainsRune("-?:,[]{}#&*!|>'\"%@`.+", first) {
		return true
	}

	if unicode.IsSpace(rune(s[len(s)-1])) || unicode.IsSpace(first) {
		return true
	}

	return strings.Contains(s, ": ") ||
		strings.Contains(s, " #") ||
		strings.ContainsAny(s, "\n\r\t")
}
