package nodes

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meshbatch/internal/pipeline"
	"meshbatch/internal/sfm"
)

func TestRegistry_Names(t *testing.T) {
	want := []string{
		"CameraInit", "DepthMap", "DepthMapFilter", "FeatureExtraction", "FeatureMatching",
		"ImageMatching", "MeshFiltering", "Meshing", "PrepareDenseScene", "Publish",
		"StructureFromMotion", "Texturing",
	}
	if diff := cmp.Diff(want, Registry().Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Executables(t *testing.T) {
	reg := Registry()
	for _, name := range reg.Names() {
		typ, _ := reg.Lookup(name)
		if (typ.Executable == "") == (typ.Process == nil) {
			t.Errorf("%s: want exactly one of Executable and Process", name)
		}
	}
}

func TestDepthMap_Downscale(t *testing.T) {
	p := pipeline.New("t", Registry())
	n, err := p.AddNode(TypeDepthMap, "")
	if err != nil {
		t.Fatal(err)
	}
	a, err := n.Attribute("downscale")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := a.Value(); v != 2 {
		t.Errorf("default downscale = %v, want 2", v)
	}
	if err := a.Set(3); err == nil {
		t.Error("Set(3) succeeded, want error")
	}
	if err := a.Set("8"); err != nil {
		t.Errorf("Set(\"8\"): %v", err)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestCameraInit_BuildAndPrepare(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 40, 30)
	writePNG(t, b, 40, 30)

	p := pipeline.New("t", Registry())
	p.SetCacheDir(filepath.Join(dir, "cache"))
	n, err := p.AddNode(TypeCameraInit, "")
	if err != nil {
		t.Fatal(err)
	}

	views, intrinsics, err := n.NodeType().BuildIntrinsics(n, []string{a, b})
	if err != nil {
		t.Fatalf("BuildIntrinsics: %v", err)
	}
	if len(views) != 2 || len(intrinsics) != 1 {
		t.Fatalf("got %d views and %d intrinsics, want 2 and 1", len(views), len(intrinsics))
	}
	for name, items := range map[string][]any{"viewpoints": views, "intrinsics": intrinsics} {
		attr, err := n.Attribute(name)
		if err != nil {
			t.Fatal(err)
		}
		if err := attr.Set(items); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	nodeDir, err := p.NodeCacheDir(n)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(nodeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := n.NodeType().Prepare(n, nodeDir); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	s, err := sfm.DecodeFile(filepath.Join(nodeDir, "viewpoints.sfm"))
	if err != nil {
		t.Fatalf("decode viewpoints: %v", err)
	}
	var paths []string
	for _, v := range s.Views {
		paths = append(paths, v.Path)
	}
	if diff := cmp.Diff([]string{a, b}, paths); diff != "" {
		t.Errorf("view paths mismatch (-want +got):\n%s", diff)
	}
	if len(s.Intrinsics) != 1 || s.Intrinsics[0].Width != 40 {
		t.Errorf("intrinsics = %+v, want one 40px wide", s.Intrinsics)
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	mesh := filepath.Join(dir, "mesh.obj")
	if err := os.WriteFile(mesh, []byte("o mesh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tex := filepath.Join(dir, "textures")
	if err := os.MkdirAll(filepath.Join(tex, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tex, "sub", "t.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := pipeline.New("t", Registry())
	n, err := p.AddNode(TypePublish, "")
	if err != nil {
		t.Fatal(err)
	}
	in, _ := n.Attribute("inputFiles")
	if err := in.Extend(mesh, tex); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out")
	if err := n.NodeType().Process(n, ""); err != nil {
		t.Fatalf("Process without output: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output folder created without an output set: %v", err)
	}

	outAttr, _ := n.Attribute("output")
	if err := outAttr.Set(out); err != nil {
		t.Fatal(err)
	}
	if err := n.NodeType().Process(n, ""); err != nil {
		t.Fatalf("Process: %v", err)
	}
	checks := []struct{ path, want string }{
		{filepath.Join(out, "mesh.obj"), "o mesh\n"},
		{filepath.Join(out, "textures", "sub", "t.png"), "png"},
	}
	for _, c := range checks {
		path, want := c.path, c.want
		got, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("read %s: %v", path, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}
