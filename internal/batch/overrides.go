package batch

import (
	"errors"
	"fmt"
	"io"
	"unicode"

	"gopkg.in/yaml.v3"

	"meshbatch/internal/nodes"
	"meshbatch/internal/pipeline"
)

// ApplyFileOverrides reads a JSON object mapping node names to objects of
// attribute values and sets them in the file's key order.
func ApplyFileOverrides(p *pipeline.Pipeline, r io.Reader) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse overrides: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return errors.New("parse overrides: expected an object keyed by node name")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		nodeName, attrs := root.Content[i].Value, root.Content[i+1]
		n, err := p.FindNode(nodeName)
		if err != nil {
			return err
		}
		if attrs.Kind != yaml.MappingNode {
			return fmt.Errorf("parse overrides: %s: expected an object keyed by attribute name", nodeName)
		}
		for j := 0; j+1 < len(attrs.Content); j += 2 {
			var v any
			if err := attrs.Content[j+1].Decode(&v); err != nil {
				return fmt.Errorf("parse overrides: %s.%s: %w", nodeName, attrs.Content[j].Value, err)
			}
			if err := setAttr(n, attrs.Content[j].Value, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// OverrideKind tells a type-wide override from an instance override.
type OverrideKind int

const (
	// TypeOverride, written Type:attr=value, targets every node of a type.
	TypeOverride OverrideKind = iota
	// InstanceOverride, written Node.attr=value, targets one node.
	InstanceOverride
)

// ParamOverride is one parsed command-line override.
type ParamOverride struct {
	Kind   OverrideKind
	Target string // node type or node name
	Attr   string
	Value  string
}

// ParseParamOverride parses ident (':' | '.') ident '=' value, where ident
// is one or more letters, digits or underscores and value is the rest of s.
func ParseParamOverride(s string) (ParamOverride, error) {
	bad := fmt.Errorf("%w: %q", ErrGrammar, s)

	target, rest := ident(s)
	if target == "" || rest == "" {
		return ParamOverride{}, bad
	}
	var kind OverrideKind
	switch rest[0] {
	case ':':
		kind = TypeOverride
	case '.':
		kind = InstanceOverride
	default:
		return ParamOverride{}, bad
	}
	attr, rest := ident(rest[1:])
	if attr == "" || rest == "" || rest[0] != '=' {
		return ParamOverride{}, bad
	}
	return ParamOverride{Kind: kind, Target: target, Attr: attr, Value: rest[1:]}, nil
}

// ident splits the leading identifier off s.
func ident(s string) (string, string) {
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// ApplyParamOverrides parses and applies overrides in order, stopping at the
// first failure. Every applied value is reported to w between two blank lines.
func ApplyParamOverrides(p *pipeline.Pipeline, overrides []string, w io.Writer) error {
	if len(overrides) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, s := range overrides {
		o, err := ParseParamOverride(s)
		if err != nil {
			return err
		}
		var targets []*pipeline.Node
		if o.Kind == TypeOverride {
			targets = p.NodesByType(o.Target)
			if len(targets) == 0 {
				return fmt.Errorf("%w: no node with the type %q in the pipeline", ErrResolution, o.Target)
			}
		} else {
			n, err := p.FindNode(o.Target)
			if err != nil {
				return err
			}
			targets = []*pipeline.Node{n}
		}
		for _, n := range targets {
			if err := setAttr(n, o.Attr, o.Value); err != nil {
				return err
			}
			fmt.Fprintf(w, "Overrides %s.%s=%s\n", n.Name(), o.Attr, o.Value)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// ApplyScale sets the downscale factor of every depth map node. Scales
// below 1 leave the pipeline untouched.
func ApplyScale(p *pipeline.Pipeline, scale int) error {
	if scale <= 0 {
		return nil
	}
	for _, n := range p.NodesByType(nodes.TypeDepthMap) {
		if err := setAttr(n, "downscale", scale); err != nil {
			return err
		}
	}
	return nil
}
