package batch

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"meshbatch/internal/execute"
	"meshbatch/internal/nodes"
	"meshbatch/internal/pipeline"
	"meshbatch/internal/sfm"
	"meshbatch/internal/templates"
)

type fakeScenes struct {
	views      []sfm.View
	intrinsics []sfm.Intrinsic
	err        error
	calls      []string
}

func (f *fakeScenes) Decode(path string) ([]sfm.View, []sfm.Intrinsic, error) {
	f.calls = append(f.calls, path)
	return f.views, f.intrinsics, f.err
}

type findCall struct {
	paths     []string
	recursive bool
}

type fakeImages struct {
	byMode map[bool][]string
	calls  []findCall
}

func (f *fakeImages) Find(paths []string, recursive bool) []string {
	f.calls = append(f.calls, findCall{paths: paths, recursive: recursive})
	return f.byMode[recursive]
}

// fakeTemplates loads every non-default identifier from one YAML document.
type fakeTemplates struct {
	yaml   string
	loaded *pipeline.Pipeline
	ids    []string
}

func (f *fakeTemplates) Load(id string) (*pipeline.Pipeline, error) {
	f.ids = append(f.ids, id)
	p, err := pipeline.Load([]byte(f.yaml), nodes.Registry())
	f.loaded = p
	return p, err
}

func (f *fakeTemplates) Default(views, intrinsics []any, output string) (*pipeline.Pipeline, error) {
	return templates.Photogrammetry(nodes.Registry(), views, intrinsics, output)
}

type fakeEngine struct {
	calls   int
	p       *pipeline.Pipeline
	targets []*pipeline.Node
	opts    execute.Options
}

func (f *fakeEngine) Execute(_ context.Context, p *pipeline.Pipeline, targets []*pipeline.Node, opts execute.Options) error {
	f.calls++
	f.p, f.targets, f.opts = p, targets, opts
	return nil
}

// depthTemplate has one CameraInit, three DepthMap nodes and a Publish.
const depthTemplate = `pipeline: depth
nodes:
  - name: CameraInit_1
    type: CameraInit
  - name: DepthMap_1
    type: DepthMap
    attributes:
      input: "{CameraInit_1.output}"
  - name: DepthMap_2
    type: DepthMap
    attributes:
      input: "{CameraInit_1.output}"
  - name: DepthMap_3
    type: DepthMap
    attributes:
      input: "{CameraInit_1.output}"
  - name: Publish_1
    type: Publish
    attributes:
      inputFiles: ["{DepthMap_1.output}", "{DepthMap_2.output}", "{DepthMap_3.output}"]
`

func loadDepth(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.Load([]byte(depthTemplate), nodes.Registry())
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	return p
}

func attrValue(t *testing.T, p *pipeline.Pipeline, node, attr string) any {
	t.Helper()
	n, err := p.FindNode(node)
	if err != nil {
		t.Fatal(err)
	}
	a, err := n.Attribute(attr)
	if err != nil {
		t.Fatal(err)
	}
	v, err := a.Value()
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func listLen(t *testing.T, p *pipeline.Pipeline, node, attr string) int {
	t.Helper()
	items, ok := attrValue(t, p, node, attr).([]any)
	if !ok {
		t.Fatalf("%s.%s is not a list", node, attr)
	}
	return len(items)
}

func writePNGs(t *testing.T, dir string, n int) []string {
	t.Helper()
	var paths []string
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "img"+string(rune('a'+i))+".png")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 16, 12))); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, path)
	}
	return paths
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
