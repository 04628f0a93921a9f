package schema

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// LoadYAML parses an attribute table written as an ordered YAML mapping:
//
//	title: VARCHAR(255) / mandatory
//	document_type_id: INTEGER
//	organization_codes: [VARCHAR(64)]
//	signers:
//	  - type: "[organisation, employee] / mandatory"
//	generate_pdf_sign_field:
//	  page: INTEGER
//
// A scalar is a rule, a mapping is a nested schema and a one-element
// sequence is an array of that element. Field order follows the document.
func LoadYAML(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing schema: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("error parsing schema: empty document")
	}

	return fromNode(doc.Content[0], "")
}

func fromNode(n *yaml.Node, path string) (*Schema, error) {
	n = resolveAlias(n)
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: expected a mapping (line %d)", displayPath(path), n.Line)
	}

	var result *multierror.Error
	fields := make([]Field, 0, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		val := resolveAlias(n.Content[i+1])
		fieldPath := joinPath(path, name)

		switch val.Kind {
		case yaml.ScalarNode:
			fields = append(fields, RuleField(name, val.Value))

		case yaml.MappingNode:
			sub, err := fromNode(val, fieldPath)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			fields = append(fields, ObjectField(name, sub))

		case yaml.SequenceNode:
			if len(val.Content) != 1 {
				result = multierror.Append(result, fmt.Errorf(
					"%s: array fields take exactly one element, got %d (line %d)",
					fieldPath, len(val.Content), val.Line))
				continue
			}
			elem := resolveAlias(val.Content[0])
			switch elem.Kind {
			case yaml.ScalarNode:
				fields = append(fields, ArrayOfRule(name, elem.Value))
			case yaml.MappingNode:
				sub, err := fromNode(elem, fieldPath)
				if err != nil {
					result = multierror.Append(result, err)
					continue
				}
				fields = append(fields, ArrayField(name, sub))
			default:
				result = multierror.Append(result, fmt.Errorf(
					"%s: unsupported array element (line %d)", fieldPath, elem.Line))
			}

		default:
			result = multierror.Append(result, fmt.Errorf(
				"%s: unsupported value (line %d)", fieldPath, val.Line))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return New(fields...), nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "schema"
	}
	return path
}
