package pipeline

import "fmt"

// Node is a named, typed unit of a Pipeline.
type Node struct {
	name     string
	typeName string
	typ      *NodeType
	pipeline *Pipeline
	attrs    map[string]*Attribute
	order    []string

	// raw keeps template values a compatibility node could not interpret,
	// so saving does not lose them.
	raw    map[string]any
	issues []string
}

func (n *Node) Name() string { return n.name }

// Type returns the node type name, also for unknown types.
func (n *Node) Type() string { return n.typeName }

// NodeType returns the type description, nil for unknown types.
func (n *Node) NodeType() *NodeType { return n.typ }

// Attribute returns the attribute with the given name.
func (n *Node) Attribute(name string) (*Attribute, error) {
	a, ok := n.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttributeNotFound, n.name, name)
	}
	return a, nil
}

// Attributes returns the attributes in declaration order.
func (n *Node) Attributes() []*Attribute {
	out := make([]*Attribute, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.attrs[name])
	}
	return out
}

// CompatibilityIssues lists reasons the node cannot be computed.
func (n *Node) CompatibilityIssues() []string { return n.issues }

// CanCompute reports whether the node itself has no compatibility issues.
func (n *Node) CanCompute() bool { return n.typ != nil && len(n.issues) == 0 }

func (n *Node) addIssue(format string, args ...any) {
	n.issues = append(n.issues, fmt.Sprintf(format, args...))
}

// inputLinks returns the upstream references of all attributes.
func (n *Node) inputLinks() []Link {
	var out []Link
	for _, name := range n.order {
		out = append(out, n.attrs[name].links()...)
	}
	return out
}
