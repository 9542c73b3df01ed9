package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectCacheDirName is the cache folder placed next to a saved project file.
const ProjectCacheDirName = "MeshbatchCache"

// PipelineDef is the on-disk form of a pipeline template or project.
// JSON files are read through the same decoder since JSON is valid YAML.
type PipelineDef struct {
	Pipeline    string    `yaml:"pipeline" json:"pipeline"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	CacheDir    string    `yaml:"cacheDir,omitempty" json:"cacheDir,omitempty"`
	Nodes       []NodeDef `yaml:"nodes" json:"nodes"`
}

// NodeDef declares one node and its non-default attribute values.
// String values of the form {Node.attr} are links, also inside lists.
type NodeDef struct {
	Name       string         `yaml:"name" json:"name"`
	Type       string         `yaml:"type" json:"type"`
	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// ParseDef decodes a template without building it.
func ParseDef(data []byte) (*PipelineDef, error) {
	var def PipelineDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidTemplate, err)
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("%w: at least one node is required", ErrInvalidTemplate)
	}
	for _, nd := range def.Nodes {
		if nd.Type == "" {
			return nil, fmt.Errorf("%w: node %q has no type", ErrInvalidTemplate, nd.Name)
		}
	}
	return &def, nil
}

// Load parses a template and builds a Pipeline from it.
func Load(data []byte, reg *Registry) (*Pipeline, error) {
	def, err := ParseDef(data)
	if err != nil {
		return nil, err
	}
	return def.Build(reg)
}

// LoadFile reads and builds the project or template at path. The pipeline is
// named after the file's pipeline field, or the file name without extension.
// A file that records no cache folder is a project: its cache is the
// ProjectCacheDirName folder next to it.
func LoadFile(path string, reg *Registry) (*Pipeline, error) {
	p, err := LoadTemplateFile(path, reg)
	if err != nil {
		return nil, err
	}
	if p.cacheDir == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", path, err)
		}
		p.cacheDir = filepath.Join(filepath.Dir(abs), ProjectCacheDirName)
	}
	return p, nil
}

// LoadTemplateFile is LoadFile for named templates: the cache folder stays
// unset unless the file records one.
func LoadTemplateFile(path string, reg *Registry) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	p, err := Load(data, reg)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", path, err)
	}
	if p.name == DefaultName {
		p.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Build instantiates the definition. Values that do not fit their attribute,
// unknown attributes, unknown types and dangling links become compatibility
// issues on the node; duplicate names and cycles are errors.
func (def *PipelineDef) Build(reg *Registry) (*Pipeline, error) {
	p := New(def.Pipeline, reg)
	p.cacheDir = def.CacheDir

	type pending struct {
		node *Node
		attr string
		link Link
	}
	var links []pending

	for _, nd := range def.Nodes {
		n, err := p.AddNode(nd.Type, nd.Name)
		if err != nil {
			return nil, err
		}
		for _, name := range sortedKeys(nd.Attributes) {
			v := nd.Attributes[name]
			if n.typ == nil {
				n.storeRaw(name, v)
				continue
			}
			a, ok := n.attrs[name]
			if !ok {
				n.addIssue("unknown attribute %q", name)
				n.storeRaw(name, v)
				continue
			}
			if a.desc.Output {
				continue
			}
			if s, ok := v.(string); ok {
				if l, ok := ParseLink(s); ok {
					links = append(links, pending{node: n, attr: name, link: l})
					continue
				}
			}
			if items, ok := v.([]any); ok {
				v = parseListLinks(items)
			}
			if err := a.Set(v); err != nil {
				n.addIssue("attribute %q: %v", name, err)
			}
		}
	}

	for _, pl := range links {
		src, err := p.FindNode(pl.link.Node)
		if err == nil {
			err = p.Connect(src, pl.link.Attr, pl.node, pl.attr)
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrCycle):
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		default:
			pl.node.addIssue("link %s: %v", pl.link, err)
		}
	}

	if _, err := p.TopologicalOrder(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	for _, n := range p.nodes {
		for _, l := range n.inputLinks() {
			if _, err := p.lookupLink(l); err != nil {
				n.addIssue("link %s: %v", l, err)
			}
		}
	}
	return p, nil
}

func parseListLinks(items []any) []any {
	out := make([]any, len(items))
	for i, it := range items {
		if s, ok := it.(string); ok {
			if l, ok := ParseLink(s); ok {
				out[i] = l
				continue
			}
		}
		out[i] = it
	}
	return out
}

func (n *Node) storeRaw(name string, v any) {
	if n.raw == nil {
		n.raw = make(map[string]any)
	}
	n.raw[name] = v
}

// Def converts the pipeline back to its on-disk form. Output attributes and
// values equal to the type default are omitted.
func (p *Pipeline) Def() *PipelineDef {
	def := &PipelineDef{Pipeline: p.name, CacheDir: p.cacheDir}
	for _, n := range p.nodes {
		nd := NodeDef{Name: n.name, Type: n.typeName}
		attrs := make(map[string]any)
		for k, v := range n.raw {
			attrs[k] = v
		}
		for _, a := range n.Attributes() {
			if a.desc.Output {
				continue
			}
			raw := a.Raw()
			if a.link == nil && isDefault(a, raw) {
				continue
			}
			attrs[a.desc.Name] = encodeLinks(raw)
		}
		if len(attrs) > 0 {
			nd.Attributes = attrs
		}
		def.Nodes = append(def.Nodes, nd)
	}
	return def
}

func isDefault(a *Attribute, raw any) bool {
	if items, ok := raw.([]any); ok {
		return len(items) == 0 && a.desc.Default == nil
	}
	return reflect.DeepEqual(raw, a.desc.Default)
}

func encodeLinks(v any) any {
	switch x := v.(type) {
	case Link:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = encodeLinks(it)
		}
		return out
	}
	return v
}

// Save writes the pipeline to path, as JSON for .json files and YAML
// otherwise. With setupProjectFile the cache folder moves next to the file
// and is not recorded in it.
func (p *Pipeline) Save(path string, setupProjectFile bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if setupProjectFile {
		p.cacheDir = filepath.Join(filepath.Dir(abs), ProjectCacheDirName)
	}
	def := p.Def()
	if setupProjectFile {
		def.CacheDir = ""
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(def, "", "  ")
	} else {
		data, err = yaml.Marshal(def)
	}
	if err != nil {
		return fmt.Errorf("encode pipeline: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("write pipeline: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
