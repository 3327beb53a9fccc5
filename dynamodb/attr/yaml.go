package attr

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"gopkg.in/yaml.v3"
)

// FromYAML infers a Value from a yaml node using its resolved tag:
//
//	!!str        S
//	!!int !!float N
//	!!bool       BOOL
//	!!binary     B
//	!!null       NULL
//	!!timestamp  S, normalised to RFC3339 with milliseconds
//	sequence     L
//	mapping      M
//
// Quote a scalar to force it to be a string.
func FromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) != 1 {
			return Value{}, fmt.Errorf("line %d: empty yaml document", node.Line)
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.SequenceNode:
		l := make([]Value, len(node.Content))
		for i, child := range node.Content {
			v, err := FromYAML(child)
			if err != nil {
				return Value{}, err
			}
			l[i] = v
		}
		return Value{kind: KindList, l: l}, nil
	case yaml.MappingNode:
		m, err := ItemFromYAML(node)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: m}, nil
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	default:
		return Value{}, fmt.Errorf("line %d: unsupported yaml node kind %v", node.Line, node.Kind)
	}
}

// ItemFromYAML converts a yaml mapping into an item.
func ItemFromYAML(node *yaml.Node) (Item, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, got %s", node.Line, node.ShortTag())
	}
	it := make(Item, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: attribute names must be scalars", keyNode.Line)
		}
		name := keyNode.Value
		if name == "" {
			return nil, fmt.Errorf("line %d: empty attribute name", keyNode.Line)
		}
		if _, dup := it[name]; dup {
			return nil, fmt.Errorf("line %d: attribute %q defined twice", keyNode.Line, name)
		}
		v, err := FromYAML(valNode)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		it[name] = v
	}
	return it, nil
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch tag := node.ShortTag(); tag {
	case "!!str":
		return String(node.Value), nil
	case "!!int":
		cleaned := strings.ReplaceAll(node.Value, "_", "")
		if n, err := strconv.ParseInt(cleaned, 0, 64); err == nil {
			return Int(n), nil
		}
		v, err := Number(cleaned)
		if err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	case "!!float":
		v, err := Number(node.Value)
		if err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	case "!!bool":
		b, err := strconv.ParseBool(strings.ToLower(node.Value))
		if err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Bool(b), nil
	case "!!null":
		return Null(), nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(node.Value), ""))
		if err != nil {
			return Value{}, fmt.Errorf("line %d: invalid binary: %w", node.Line, err)
		}
		return Binary(b), nil
	case "!!timestamp":
		dt, err := strfmt.ParseDateTime(node.Value)
		if err != nil {
			return String(node.Value), nil
		}
		return String(dt.String()), nil
	default:
		return Value{}, fmt.Errorf("line %d: unsupported yaml tag %s", node.Line, tag)
	}
}

// UnmarshalYAML lets a Value be decoded directly from a yaml document.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := FromYAML(node)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
