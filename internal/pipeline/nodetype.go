package pipeline

import "sort"

// NodeType describes a kind of node: its attributes and how it runs.
type NodeType struct {
	Name        string
	Description string
	Attributes  []AttrDesc
	// Executable is the program run for the node. Arguments are derived from
	// the attributes as --<flag> <value...>.
	Executable string
	// Prepare runs before the command, with the node's cache folder created.
	Prepare func(n *Node, dir string) error
	// Process replaces the executable for nodes computed in-process.
	Process func(n *Node, dir string) error
	// BuildIntrinsics resolves views and intrinsics for raw image paths.
	// Only source node types provide it.
	BuildIntrinsics func(n *Node, images []string) (views, intrinsics []any, err error)
}

// Attribute returns the descriptor with the given name.
func (t *NodeType) Attribute(name string) (*AttrDesc, bool) {
	for i := range t.Attributes {
		if t.Attributes[i].Name == name {
			return &t.Attributes[i], true
		}
	}
	return nil, false
}

// Registry maps node type names to their descriptions.
type Registry struct {
	types map[string]*NodeType
}

// NewRegistry returns a registry holding the given types.
func NewRegistry(types ...*NodeType) *Registry {
	r := &Registry{types: make(map[string]*NodeType, len(types))}
	for _, t := range types {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a node type.
func (r *Registry) Register(t *NodeType) { r.types[t.Name] = t }

// Lookup returns the node type with the given name.
func (r *Registry) Lookup(name string) (*NodeType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
