// Package pipeline is the in-memory graph engine: typed nodes and attributes,
// {Node.attr} links, template loading and saving, dependency queries and
// content-addressed cache folders.
package pipeline

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"text/template"
)

// DefaultName names pipelines built without a template.
const DefaultName = "default"

// Pipeline is a directed acyclic graph of Nodes.
type Pipeline struct {
	name     string
	registry *Registry
	nodes    []*Node
	index    map[string]*Node
	cacheDir string
}

// New returns an empty pipeline whose node types resolve through reg.
func New(name string, reg *Registry) *Pipeline {
	if name == "" {
		name = DefaultName
	}
	return &Pipeline{name: name, registry: reg, index: make(map[string]*Node)}
}

func (p *Pipeline) Name() string        { return p.name }
func (p *Pipeline) Registry() *Registry { return p.registry }
func (p *Pipeline) Nodes() []*Node      { return p.nodes }
func (p *Pipeline) CacheDir() string    { return p.cacheDir }

// SetCacheDir sets the root folder for node outputs.
func (p *Pipeline) SetCacheDir(dir string) { p.cacheDir = dir }

// AddNode creates a node of the given type. An empty name is replaced by
// <Type>_<n>. Unknown types produce a node with a compatibility issue.
func (p *Pipeline) AddNode(typeName, name string) (*Node, error) {
	if name == "" {
		name = p.uniqueName(typeName)
	}
	if !isIdent(name) {
		return nil, fmt.Errorf("%w: invalid node name %q", ErrInvalidTemplate, name)
	}
	if _, exists := p.index[name]; exists {
		return nil, fmt.Errorf("%w: duplicate node name %q", ErrInvalidTemplate, name)
	}
	n := &Node{name: name, typeName: typeName, pipeline: p, attrs: make(map[string]*Attribute)}
	if t, ok := p.registry.Lookup(typeName); ok {
		n.typ = t
		for i := range t.Attributes {
			d := &t.Attributes[i]
			n.attrs[d.Name] = newAttribute(n, d)
			n.order = append(n.order, d.Name)
		}
	} else {
		n.addIssue("unknown node type %q", typeName)
	}
	p.nodes = append(p.nodes, n)
	p.index[name] = n
	return n, nil
}

func (p *Pipeline) uniqueName(typeName string) string {
	for i := 1; ; i++ {
		name := typeName + "_" + strconv.Itoa(i)
		if _, exists := p.index[name]; !exists {
			return name
		}
	}
}

// Connect links dst.dstAttr to src.srcAttr.
func (p *Pipeline) Connect(src *Node, srcAttr string, dst *Node, dstAttr string) error {
	if _, err := src.Attribute(srcAttr); err != nil {
		return err
	}
	in, err := dst.Attribute(dstAttr)
	if err != nil {
		return err
	}
	if src == dst || p.dependsOn(src, dst) {
		return fmt.Errorf("%w: %s.%s -> %s.%s", ErrCycle, src.name, srcAttr, dst.name, dstAttr)
	}
	l := Link{Node: src.name, Attr: srcAttr}
	if in.desc.Kind == KindList {
		return in.Extend(l)
	}
	in.link = &l
	return nil
}

// NodesByType returns every node of the given type, in insertion order.
func (p *Pipeline) NodesByType(typeName string) []*Node {
	var out []*Node
	for _, n := range p.nodes {
		if n.typeName == typeName {
			out = append(out, n)
		}
	}
	return out
}

// FindNode returns the node with the given name.
func (p *Pipeline) FindNode(name string) (*Node, error) {
	n, ok := p.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return n, nil
}

// FindNodes resolves every name, failing on the first missing one.
func (p *Pipeline) FindNodes(names []string) ([]*Node, error) {
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		n, err := p.FindNode(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Dependencies returns the distinct existing nodes n links to.
func (p *Pipeline) Dependencies(n *Node) []*Node {
	seen := make(map[*Node]bool)
	var out []*Node
	for _, l := range n.inputLinks() {
		up, ok := p.index[l.Node]
		if !ok || seen[up] {
			continue
		}
		seen[up] = true
		out = append(out, up)
	}
	return out
}

func (p *Pipeline) dependsOn(n, ancestor *Node) bool {
	seen := make(map[*Node]bool)
	var visit func(*Node) bool
	visit = func(cur *Node) bool {
		for _, up := range p.Dependencies(cur) {
			if up == ancestor {
				return true
			}
			if !seen[up] {
				seen[up] = true
				if visit(up) {
					return true
				}
			}
		}
		return false
	}
	return visit(n)
}

// Leaves returns nodes no other node depends on.
func (p *Pipeline) Leaves() []*Node {
	used := make(map[*Node]bool)
	for _, n := range p.nodes {
		for _, up := range p.Dependencies(n) {
			used[up] = true
		}
	}
	var out []*Node
	for _, n := range p.nodes {
		if !used[n] {
			out = append(out, n)
		}
	}
	return out
}

// CanComputeLeaves reports whether every leaf and all of its upstream nodes
// are computable: known types, known attributes and resolvable links.
func (p *Pipeline) CanComputeLeaves() bool {
	closure, err := p.DependencyClosure(p.Leaves())
	if err != nil {
		return false
	}
	for _, n := range closure {
		if !n.CanCompute() {
			return false
		}
		for _, l := range n.inputLinks() {
			if _, err := p.lookupLink(l); err != nil {
				return false
			}
		}
	}
	return true
}

// TopologicalOrder returns all nodes with dependencies first. Ties keep
// insertion order.
func (p *Pipeline) TopologicalOrder() ([]*Node, error) {
	indeg := make(map[*Node]int, len(p.nodes))
	downstream := make(map[*Node][]*Node)
	for _, n := range p.nodes {
		deps := p.Dependencies(n)
		indeg[n] = len(deps)
		for _, up := range deps {
			downstream[up] = append(downstream[up], n)
		}
	}
	var ready, out []*Node
	for _, n := range p.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)
		for _, down := range downstream[n] {
			indeg[down]--
			if indeg[down] == 0 {
				ready = append(ready, down)
			}
		}
	}
	if len(out) != len(p.nodes) {
		return nil, fmt.Errorf("%w in pipeline %q", ErrCycle, p.name)
	}
	return out, nil
}

// DependencyClosure returns targets plus everything they depend on, in
// topological order. Nil targets mean the whole pipeline.
func (p *Pipeline) DependencyClosure(targets []*Node) ([]*Node, error) {
	order, err := p.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	if targets == nil {
		return order, nil
	}
	keep := make(map[*Node]bool)
	var visit func(*Node)
	visit = func(n *Node) {
		if keep[n] {
			return
		}
		keep[n] = true
		for _, up := range p.Dependencies(n) {
			visit(up)
		}
	}
	for _, t := range targets {
		visit(t)
	}
	out := make([]*Node, 0, len(keep))
	for _, n := range order {
		if keep[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (p *Pipeline) lookupLink(l Link) (*Attribute, error) {
	n, err := p.FindNode(l.Node)
	if err != nil {
		return nil, err
	}
	return n.Attribute(l.Attr)
}

func (p *Pipeline) resolveLink(l Link) (any, error) {
	a, err := p.lookupLink(l)
	if err != nil {
		return nil, err
	}
	return a.Value()
}

// UID returns the content hash of a node: its type, its input values and the
// UIDs of the nodes it links to.
func (p *Pipeline) UID(n *Node) (string, error) {
	return p.uid(n, make(map[*Node]bool))
}

func (p *Pipeline) uid(n *Node, visiting map[*Node]bool) (string, error) {
	if visiting[n] {
		return "", fmt.Errorf("%w at node %q", ErrCycle, n.name)
	}
	visiting[n] = true
	defer delete(visiting, n)

	h := sha1.New()
	fmt.Fprintf(h, "type=%s\n", n.typeName)
	for _, a := range n.Attributes() {
		if a.desc.Output {
			continue
		}
		canon, err := p.canonical(a.Raw(), visiting)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s=%s\n", a.desc.Name, canon)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (p *Pipeline) canonical(v any, visiting map[*Node]bool) (string, error) {
	switch x := v.(type) {
	case Link:
		up, err := p.FindNode(x.Node)
		if err != nil {
			return "", err
		}
		id, err := p.uid(up, visiting)
		if err != nil {
			return "", err
		}
		return "link:" + id + "." + x.Attr, nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, it := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			s, err := p.canonical(it, visiting)
			if err != nil {
				return "", err
			}
			buf.WriteString(s)
		}
		buf.WriteByte(']')
		return buf.String(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash value: %w", err)
	}
	return string(data), nil
}

// NodeCacheDir returns <cache>/<Type>/<uid> for n.
func (p *Pipeline) NodeCacheDir(n *Node) (string, error) {
	id, err := p.UID(n)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.cacheDir, n.typeName, id), nil
}

// OutputContext is the data output attribute templates are rendered with.
type OutputContext struct {
	CacheDir     string
	NodeCacheDir string
	NodeType     string
	NodeName     string
	UID          string
}

func (p *Pipeline) renderOutput(a *Attribute) (any, error) {
	tmplStr, ok := a.desc.Default.(string)
	if !ok {
		return a.desc.Default, nil
	}
	id, err := p.UID(a.node)
	if err != nil {
		return nil, err
	}
	ctx := OutputContext{
		CacheDir:     p.cacheDir,
		NodeCacheDir: filepath.Join(p.cacheDir, a.node.typeName, id),
		NodeType:     a.node.typeName,
		NodeName:     a.node.name,
		UID:          id,
	}
	tmpl, err := template.New(a.path()).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parse output template %s: %w", a.path(), err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("render output %s: %w", a.path(), err)
	}
	return filepath.Clean(buf.String()), nil
}
