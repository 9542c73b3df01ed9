package pipeline

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the value type of an attribute.
type Kind int

const (
	KindString Kind = iota
	KindFile
	KindInt
	KindFloat
	KindBool
	KindList
	KindGroup
)

var kindNames = map[Kind]string{
	KindString: "string",
	KindFile:   "file",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindList:   "list",
	KindGroup:  "group",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AttrDesc describes one attribute of a node type.
type AttrDesc struct {
	Name string
	Kind Kind
	// Elem is the element kind of a list attribute.
	Elem Kind
	// Default is the initial value. Output attributes use a text/template
	// string rendered against the node's cache folder.
	Default any
	// Values restricts the attribute to an allowed set when non-empty.
	Values []any
	// Output marks values computed by the node rather than set by the user.
	Output bool
	// Flag overrides the command-line flag name, which defaults to Name.
	Flag string
	// NoArg keeps the attribute off the command line.
	NoArg       bool
	Description string
}

// FlagName returns the command-line flag for the attribute.
func (d *AttrDesc) FlagName() string {
	if d.Flag != "" {
		return d.Flag
	}
	return d.Name
}

// Link references an attribute on another node, written {Node.attr} in templates.
type Link struct {
	Node string
	Attr string
}

func (l Link) String() string { return "{" + l.Node + "." + l.Attr + "}" }

// ParseLink recognizes the {Node.attr} form.
func ParseLink(s string) (Link, bool) {
	if len(s) < 5 || s[0] != '{' || s[len(s)-1] != '}' {
		return Link{}, false
	}
	node, attr, ok := strings.Cut(s[1:len(s)-1], ".")
	if !ok || !isIdent(node) || !isIdent(attr) {
		return Link{}, false
	}
	return Link{Node: node, Attr: attr}, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// Attribute is a typed, mutable value slot on a Node.
type Attribute struct {
	desc  *AttrDesc
	node  *Node
	value any
	link  *Link
}

func newAttribute(n *Node, d *AttrDesc) *Attribute {
	a := &Attribute{desc: d, node: n}
	a.value = a.defaultValue()
	return a
}

func (a *Attribute) defaultValue() any {
	if a.desc.Kind == KindList {
		if items, ok := a.desc.Default.([]any); ok {
			return append([]any(nil), items...)
		}
		return []any{}
	}
	return a.desc.Default
}

func (a *Attribute) Name() string    { return a.desc.Name }
func (a *Attribute) Desc() *AttrDesc { return a.desc }
func (a *Attribute) Node() *Node     { return a.node }

// Link returns the upstream reference when the attribute is connected.
func (a *Attribute) Link() (Link, bool) {
	if a.link == nil {
		return Link{}, false
	}
	return *a.link, true
}

// Raw returns the stored value. Links, including list items, are returned as Link values.
func (a *Attribute) Raw() any {
	if a.link != nil {
		return *a.link
	}
	if a.desc.Kind == KindList {
		return append([]any(nil), a.value.([]any)...)
	}
	return a.value
}

// Value returns the effective value with links resolved and outputs rendered.
func (a *Attribute) Value() (any, error) {
	if a.desc.Output {
		return a.node.pipeline.renderOutput(a)
	}
	if a.link != nil {
		return a.node.pipeline.resolveLink(*a.link)
	}
	if a.desc.Kind != KindList {
		return a.value, nil
	}
	items := a.value.([]any)
	out := make([]any, len(items))
	for i, it := range items {
		if l, ok := it.(Link); ok {
			v, err := a.node.pipeline.resolveLink(l)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		out[i] = it
	}
	return out, nil
}

// Set assigns v, replacing any link. List attributes accept slices or a
// YAML flow sequence such as "[a, b]".
func (a *Attribute) Set(v any) error {
	if a.desc.Output {
		return fmt.Errorf("%w: %s", ErrReadOnly, a.path())
	}
	cv, err := coerce(a.desc, a.desc.Kind, v)
	if err != nil {
		return fmt.Errorf("%s: %w", a.path(), err)
	}
	a.link = nil
	a.value = cv
	return nil
}

// Reset empties a list attribute.
func (a *Attribute) Reset() error {
	if a.desc.Kind != KindList {
		return fmt.Errorf("%w: reset on %s attribute %s", ErrUnsupported, a.desc.Kind, a.path())
	}
	a.link = nil
	a.value = []any{}
	return nil
}

// Extend appends items to a list attribute.
func (a *Attribute) Extend(items ...any) error {
	if a.desc.Kind != KindList {
		return fmt.Errorf("%w: extend on %s attribute %s", ErrUnsupported, a.desc.Kind, a.path())
	}
	list := a.value.([]any)
	for _, it := range items {
		cv, err := coerceElem(a.desc, it)
		if err != nil {
			return fmt.Errorf("%s: %w", a.path(), err)
		}
		list = append(list, cv)
	}
	a.link = nil
	a.value = list
	return nil
}

// Len reports the number of items of a list attribute, 0 for scalars.
func (a *Attribute) Len() int {
	if items, ok := a.value.([]any); ok && a.link == nil {
		return len(items)
	}
	return 0
}

func (a *Attribute) path() string { return a.node.name + "." + a.desc.Name }

// links returns every upstream reference held by this attribute.
func (a *Attribute) links() []Link {
	if a.link != nil {
		return []Link{*a.link}
	}
	var out []Link
	if items, ok := a.value.([]any); ok {
		for _, it := range items {
			if l, ok := it.(Link); ok {
				out = append(out, l)
			}
		}
	}
	return out
}

func coerceElem(d *AttrDesc, v any) (any, error) {
	if l, ok := v.(Link); ok {
		return l, nil
	}
	return coerce(d, d.Elem, v)
}

func coerce(d *AttrDesc, k Kind, v any) (any, error) {
	var (
		out any
		err error
	)
	switch k {
	case KindString, KindFile:
		out, err = toString(v)
	case KindInt:
		out, err = toInt(v)
	case KindFloat:
		out, err = toFloat(v)
	case KindBool:
		out, err = toBool(v)
	case KindGroup:
		out, err = toGroup(v)
	case KindList:
		return toList(d, v)
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidValue, k)
	}
	if err != nil {
		return nil, err
	}
	if k != d.Kind || len(d.Values) == 0 {
		return out, nil
	}
	for _, allowed := range d.Values {
		if reflect.DeepEqual(allowed, out) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %v not in %v", ErrInvalidValue, out, d.Values)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int, int64, float64, bool:
		return fmt.Sprint(x), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%w: %T is not a string", ErrInvalidValue, v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err == nil {
			return b, nil
		}
	}
	return false, fmt.Errorf("%w: %v is not a boolean", ErrInvalidValue, v)
}

func toGroup(v any) (map[string]any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = val
		}
		return out, nil
	case string:
		var m map[string]any
		if err := yaml.Unmarshal([]byte(x), &m); err == nil && m != nil {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %T is not a group", ErrInvalidValue, v)
}

func toList(d *AttrDesc, v any) ([]any, error) {
	var items []any
	switch x := v.(type) {
	case nil:
	case []any:
		items = x
	case []string:
		for _, s := range x {
			items = append(items, s)
		}
	case []map[string]any:
		for _, m := range x {
			items = append(items, m)
		}
	case string:
		if strings.TrimSpace(x) == "" {
			break
		}
		if err := yaml.Unmarshal([]byte(x), &items); err != nil {
			return nil, fmt.Errorf("%w: %q is not a list: %v", ErrInvalidValue, x, err)
		}
	default:
		return nil, fmt.Errorf("%w: %T is not a list", ErrInvalidValue, v)
	}
	out := make([]any, 0, len(items))
	for _, it := range items {
		cv, err := coerceElem(d, it)
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, nil
}
