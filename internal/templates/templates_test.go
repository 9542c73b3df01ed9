package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meshbatch/internal/nodes"
	"meshbatch/internal/pipeline"
)

func newSource(dirs ...string) *Source {
	return &Source{Registry: nodes.Registry(), SearchPath: dirs}
}

func typeCount(p *pipeline.Pipeline, typ string) int {
	return len(p.NodesByType(typ))
}

func TestPhotogrammetry(t *testing.T) {
	views := []any{map[string]any{"viewId": 1, "path": "/data/a.jpg"}}
	p, err := newSource().Default(views, nil, "")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if got := len(p.Nodes()); got != 11 {
		t.Errorf("got %d nodes, want 11", got)
	}
	if got := typeCount(p, nodes.TypePublish); got != 0 {
		t.Errorf("got %d Publish nodes without output, want 0", got)
	}
	if !p.CanComputeLeaves() {
		t.Error("CanComputeLeaves = false")
	}
	order, err := p.TopologicalOrder()
	if err != nil {
		t.Fatal(err)
	}
	if order[0].Type() != nodes.TypeCameraInit {
		t.Errorf("first node is %s, want CameraInit", order[0].Type())
	}
	ci := p.NodesByType(nodes.TypeCameraInit)[0]
	vp, _ := ci.Attribute("viewpoints")
	if vp.Len() != 1 {
		t.Errorf("viewpoints has %d items, want 1", vp.Len())
	}
}

func TestPhotogrammetry_WithOutput(t *testing.T) {
	p, err := newSource().Default(nil, nil, "/out")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	publish := p.NodesByType(nodes.TypePublish)
	if len(publish) != 1 {
		t.Fatalf("got %d Publish nodes, want 1", len(publish))
	}
	out, _ := publish[0].Attribute("output")
	if v, _ := out.Value(); v != "/out" {
		t.Errorf("Publish output = %v, want /out", v)
	}
	texturing := p.NodesByType("Texturing")[0]
	closure, err := p.DependencyClosure([]*pipeline.Node{texturing})
	if err != nil {
		t.Fatal(err)
	}
	if len(closure) != 11 {
		t.Errorf("Texturing closure has %d nodes, want 11", len(closure))
	}
}

func TestLoad_Embedded(t *testing.T) {
	src := newSource()
	for _, name := range []string{"photogrammetryDraft", "sfm", "SFM"} {
		t.Run(name, func(t *testing.T) {
			p, err := src.Load(name)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			for _, n := range p.Nodes() {
				if issues := n.CompatibilityIssues(); len(issues) > 0 {
					t.Errorf("%s: %v", n.Name(), issues)
				}
			}
			if got := typeCount(p, nodes.TypeCameraInit); got != 1 {
				t.Errorf("got %d CameraInit nodes, want 1", got)
			}
			if got := typeCount(p, nodes.TypePublish); got != 1 {
				t.Errorf("got %d Publish nodes, want 1", got)
			}
			if typeCount(p, nodes.TypeDepthMap) != 0 {
				t.Error("template has DepthMap nodes")
			}
			if !p.CanComputeLeaves() {
				t.Error("CanComputeLeaves = false")
			}
		})
	}
}

const customTemplate = `pipeline: custom
nodes:
  - name: CameraInit_1
    type: CameraInit
  - name: DepthMap_1
    type: DepthMap
    attributes:
      input: "{CameraInit_1.output}"
      downscale: 4
`

func TestLoad_FileAndSearchPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Custom.yml")
	if err := os.WriteFile(path, []byte(customTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	byPath, err := newSource().Load(path)
	if err != nil {
		t.Fatalf("Load(path): %v", err)
	}
	byName, err := newSource(filepath.Join(dir, "missing"), dir).Load("custom")
	if err != nil {
		t.Fatalf("Load(name): %v", err)
	}
	for _, p := range []*pipeline.Pipeline{byPath, byName} {
		if p.Name() != "custom" {
			t.Errorf("Name = %q, want custom", p.Name())
		}
		dm, err := p.FindNode("DepthMap_1")
		if err != nil {
			t.Fatal(err)
		}
		a, _ := dm.Attribute("downscale")
		if v, _ := a.Value(); v != 4 {
			t.Errorf("downscale = %v, want 4", v)
		}
	}
	if want := filepath.Join(dir, pipeline.ProjectCacheDirName); byPath.CacheDir() != want {
		t.Errorf("file CacheDir = %q, want %q", byPath.CacheDir(), want)
	}
	if byName.CacheDir() != "" {
		t.Errorf("named template CacheDir = %q, want empty", byName.CacheDir())
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := newSource(t.TempDir()).Load("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestNames(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"custom.yaml", "sfm.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(customTemplate), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"photogrammetry", "custom", "photogrammetryDraft", "sfm"}
	if diff := cmp.Diff(want, newSource(dir).Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestIsDefault(t *testing.T) {
	for id, want := range map[string]bool{"": true, "photogrammetry": true, "Photogrammetry": true, "sfm": false} {
		if got := IsDefault(id); got != want {
			t.Errorf("IsDefault(%q) = %v, want %v", id, got, want)
		}
	}
}
