package tree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Reserved node identifiers.
const (
	// StartNodeID designates the entry node of every tree.
	StartNodeID = "__start__"
	// FinishNodeID designates the terminal node of every tree.
	FinishNodeID = "__finish__"

	dataKey = "__data__"
	postKey = "__post__"
)

// Validator kinds accepted in the "validate" field.
const (
	ValidateInteger = "integer"
	ValidateDate    = "date"
)

// DataSource configures the pre-start fetch: a remote endpoint queried
// with the subscriber address before the first question is rendered.
// An empty URL means the tree starts from an empty dataset.
type DataSource struct {
	URL    string   `yaml:"url"`
	Params []string `yaml:"params"`
}

// PostTarget configures the post-completion submission of the collected
// answers. An empty URL disables the hook.
type PostTarget struct {
	URL    string   `yaml:"url"`
	Params []string `yaml:"params"`
}

// Option is one entry of a numbered menu. Default is the answer value
// recorded when the option is chosen; it falls back to the display
// label.
type Option struct {
	Display string `yaml:"display"`
	Default string `yaml:"default"`
	Next    string `yaml:"next"`
}

// Node is one step of the tree. Exactly one of Display and Question is
// set. A question node carries either a static option list, the name of
// a seed-data list to build options from, or a free-text validator with
// an unconditional next reference.
type Node struct {
	ID       string
	Display  string
	Question string

	// Options is the static numbered menu, rendered 1..N in
	// declaration order.
	Options []Option

	// OptionsFrom names a list in the pre-fetched seed data whose
	// entries become the menu labels. The chosen label is recorded as
	// the answer and traversal follows Next.
	OptionsFrom string

	Validate string
	Next     string
}

// Spec is a validated decision tree: an ordered mapping of node id to
// node plus the optional external data bindings.
type Spec struct {
	Name  string
	Data  *DataSource
	Post  *PostTarget
	Nodes map[string]*Node
}

// nodeDoc is the raw YAML shape of a node; options is polymorphic
// (scalar field name or sequence of entries).
type nodeDoc struct {
	Display  string    `yaml:"display"`
	Question string    `yaml:"question"`
	Options  yaml.Node `yaml:"options"`
	Validate string    `yaml:"validate"`
	Next     string    `yaml:"next"`
}

// Parse decodes and validates a specification document. The returned
// spec is safe to share across sessions; the engine never mutates it.
func Parse(name string, data []byte) (*Spec, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed tree document: %w", err)
	}

	spec := &Spec{
		Name:  name,
		Nodes: make(map[string]*Node, len(doc)),
	}

	for id, raw := range doc {
		switch id {
		case dataKey:
			var src DataSource
			if err := raw.Decode(&src); err != nil {
				return nil, fmt.Errorf("malformed %s section: %w", dataKey, err)
			}
			spec.Data = &src
		case postKey:
			var dst PostTarget
			if err := raw.Decode(&dst); err != nil {
				return nil, fmt.Errorf("malformed %s section: %w", postKey, err)
			}
			spec.Post = &dst
		default:
			node, err := decodeNode(id, raw)
			if err != nil {
				return nil, err
			}
			spec.Nodes[id] = node
		}
	}

	if err := validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func decodeNode(id string, raw yaml.Node) (*Node, error) {
	var doc nodeDoc
	if err := raw.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed node %q: %w", id, err)
	}

	node := &Node{
		ID:       id,
		Display:  doc.Display,
		Question: doc.Question,
		Validate: doc.Validate,
		Next:     doc.Next,
	}

	switch doc.Options.Kind {
	case 0:
		// No options field.
	case yaml.ScalarNode:
		node.OptionsFrom = doc.Options.Value
	case yaml.SequenceNode:
		if err := doc.Options.Decode(&node.Options); err != nil {
			return nil, fmt.Errorf("malformed options of node %q: %w", id, err)
		}
	default:
		return nil, fmt.Errorf("node %q: options must be a field name or a list", id)
	}

	return node, nil
}
