package pipeline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testRegistry() *Registry {
	return NewRegistry(
		&NodeType{
			Name: "Source",
			Attributes: []AttrDesc{
				{Name: "items", Kind: KindList, Elem: KindGroup},
				{Name: "fov", Kind: KindFloat, Default: 45.0},
				{Name: "output", Kind: KindFile, Output: true, Default: "{{.NodeCacheDir}}/source.sfm"},
			},
		},
		&NodeType{
			Name: "Step",
			Attributes: []AttrDesc{
				{Name: "input", Kind: KindFile, Default: ""},
				{Name: "downscale", Kind: KindInt, Default: 2, Values: []any{1, 2, 4, 8, 16}},
				{Name: "enabled", Kind: KindBool, Default: true},
				{Name: "output", Kind: KindFile, Output: true, Default: "{{.NodeCacheDir}}"},
			},
		},
		&NodeType{
			Name: "Sink",
			Attributes: []AttrDesc{
				{Name: "inputFiles", Kind: KindList, Elem: KindFile},
				{Name: "output", Kind: KindFile, Default: ""},
			},
		},
	)
}

// chain builds Source_1 -> Step_1 -> Step_2 -> Sink_1.
func chain(t *testing.T) *Pipeline {
	t.Helper()
	p := New("chain", testRegistry())
	src := mustAdd(t, p, "Source", "")
	s1 := mustAdd(t, p, "Step", "")
	s2 := mustAdd(t, p, "Step", "")
	sink := mustAdd(t, p, "Sink", "")
	mustConnect(t, p, src, "output", s1, "input")
	mustConnect(t, p, s1, "output", s2, "input")
	mustConnect(t, p, s2, "output", sink, "inputFiles")
	return p
}

func mustAdd(t *testing.T, p *Pipeline, typ, name string) *Node {
	t.Helper()
	n, err := p.AddNode(typ, name)
	if err != nil {
		t.Fatalf("AddNode(%q, %q): %v", typ, name, err)
	}
	return n
}

func mustConnect(t *testing.T, p *Pipeline, src *Node, srcAttr string, dst *Node, dstAttr string) {
	t.Helper()
	if err := p.Connect(src, srcAttr, dst, dstAttr); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}

func TestAddNode_AutoNames(t *testing.T) {
	p := chain(t)
	want := []string{"Source_1", "Step_1", "Step_2", "Sink_1"}
	if diff := cmp.Diff(want, names(p.Nodes())); diff != "" {
		t.Errorf("node names mismatch (-want +got):\n%s", diff)
	}
	if _, err := p.AddNode("Step", "Step_1"); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("duplicate name: got %v, want ErrInvalidTemplate", err)
	}
}

func TestFindNode(t *testing.T) {
	p := chain(t)
	n, err := p.FindNode("Step_2")
	if err != nil {
		t.Fatalf("FindNode: %v", err)
	}
	if n.Type() != "Step" {
		t.Errorf("Type = %q, want Step", n.Type())
	}
	if _, err := p.FindNode("Nope"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("FindNode(Nope) = %v, want ErrNodeNotFound", err)
	}
	if _, err := p.FindNodes([]string{"Step_1", "Nope"}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("FindNodes with missing name = %v, want ErrNodeNotFound", err)
	}
}

func TestNodesByType(t *testing.T) {
	p := chain(t)
	if diff := cmp.Diff([]string{"Step_1", "Step_2"}, names(p.NodesByType("Step"))); diff != "" {
		t.Errorf("NodesByType mismatch (-want +got):\n%s", diff)
	}
	if got := p.NodesByType("Missing"); len(got) != 0 {
		t.Errorf("NodesByType(Missing) = %v, want empty", names(got))
	}
}

func TestConnect_RejectsCycle(t *testing.T) {
	p := chain(t)
	s1, _ := p.FindNode("Step_1")
	s2, _ := p.FindNode("Step_2")
	if err := p.Connect(s2, "output", s1, "input"); !errors.Is(err, ErrCycle) {
		t.Errorf("Connect cycle = %v, want ErrCycle", err)
	}
}

func TestDependencyClosure(t *testing.T) {
	p := chain(t)
	s1, _ := p.FindNode("Step_1")
	got, err := p.DependencyClosure([]*Node{s1})
	if err != nil {
		t.Fatalf("DependencyClosure: %v", err)
	}
	if diff := cmp.Diff([]string{"Source_1", "Step_1"}, names(got)); diff != "" {
		t.Errorf("closure mismatch (-want +got):\n%s", diff)
	}
	all, err := p.DependencyClosure(nil)
	if err != nil {
		t.Fatalf("DependencyClosure(nil): %v", err)
	}
	if len(all) != 4 {
		t.Errorf("closure of nil = %v, want all 4 nodes", names(all))
	}
}

func TestLeavesAndCanCompute(t *testing.T) {
	p := chain(t)
	if diff := cmp.Diff([]string{"Sink_1"}, names(p.Leaves())); diff != "" {
		t.Errorf("Leaves mismatch (-want +got):\n%s", diff)
	}
	if !p.CanComputeLeaves() {
		t.Error("chain should be computable")
	}
	mustAdd(t, p, "Unknown", "Legacy_1")
	if p.CanComputeLeaves() {
		t.Error("pipeline with an unknown node type must not be computable")
	}
}

func TestAttribute_SetCoercion(t *testing.T) {
	p := chain(t)
	n, _ := p.FindNode("Step_1")
	ds, _ := n.Attribute("downscale")
	if err := ds.Set("4"); err != nil {
		t.Fatalf("Set(\"4\"): %v", err)
	}
	if got, _ := ds.Value(); got != 4 {
		t.Errorf("downscale = %v, want 4", got)
	}
	if err := ds.Set(float64(8)); err != nil {
		t.Fatalf("Set(8.0): %v", err)
	}
	if err := ds.Set("3"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Set(\"3\") = %v, want ErrInvalidValue", err)
	}
	en, _ := n.Attribute("enabled")
	if err := en.Set("False"); err != nil {
		t.Fatalf("Set(False): %v", err)
	}
	if got, _ := en.Value(); got != false {
		t.Errorf("enabled = %v, want false", got)
	}
	if _, err := n.Attribute("nope"); !errors.Is(err, ErrAttributeNotFound) {
		t.Errorf("Attribute(nope) = %v, want ErrAttributeNotFound", err)
	}
}

func TestAttribute_Capabilities(t *testing.T) {
	p := chain(t)
	src, _ := p.FindNode("Source_1")
	items, _ := src.Attribute("items")
	if err := items.Extend(map[string]any{"id": "1"}, map[string]any{"id": "2"}); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if items.Len() != 2 {
		t.Errorf("Len = %d, want 2", items.Len())
	}
	if err := items.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if items.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", items.Len())
	}
	if err := items.Set("[{id: '3'}]"); err != nil {
		t.Fatalf("Set flow list: %v", err)
	}
	if items.Len() != 1 {
		t.Errorf("Len after Set = %d, want 1", items.Len())
	}

	fov, _ := src.Attribute("fov")
	if err := fov.Reset(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Reset scalar = %v, want ErrUnsupported", err)
	}
	if err := fov.Extend(1.0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Extend scalar = %v, want ErrUnsupported", err)
	}
	out, _ := src.Attribute("output")
	if err := out.Set("/tmp/x"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set output = %v, want ErrReadOnly", err)
	}
}

func TestOutputAndLinkResolution(t *testing.T) {
	p := chain(t)
	p.SetCacheDir("/cache")
	src, _ := p.FindNode("Source_1")
	s1, _ := p.FindNode("Step_1")

	uid, err := p.UID(src)
	if err != nil {
		t.Fatalf("UID: %v", err)
	}
	in, _ := s1.Attribute("input")
	got, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	want := filepath.Join("/cache", "Source", uid, "source.sfm")
	if got != want {
		t.Errorf("linked input = %v, want %v", got, want)
	}
}

func TestUID_FollowsUpstreamChanges(t *testing.T) {
	p := chain(t)
	src, _ := p.FindNode("Source_1")
	s2, _ := p.FindNode("Step_2")
	before, err := p.UID(s2)
	if err != nil {
		t.Fatalf("UID: %v", err)
	}
	fov, _ := src.Attribute("fov")
	if err := fov.Set(60.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	after, err := p.UID(s2)
	if err != nil {
		t.Fatalf("UID: %v", err)
	}
	if before == after {
		t.Error("downstream UID must change when an upstream input changes")
	}
	again, _ := p.UID(s2)
	if again != after {
		t.Error("UID must be stable")
	}
}
