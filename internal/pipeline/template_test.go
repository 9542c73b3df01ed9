package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const chainTemplate = `
pipeline: chain
nodes:
  - name: Source_1
    type: Source
  - name: Step_1
    type: Step
    attributes:
      input: "{Source_1.output}"
      downscale: 4
  - name: Sink_1
    type: Sink
    attributes:
      inputFiles: ["{Step_1.output}"]
      output: /out
`

func TestLoad_Template(t *testing.T) {
	p, err := Load([]byte(chainTemplate), testRegistry())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name() != "chain" {
		t.Errorf("Name = %q, want chain", p.Name())
	}
	if !p.CanComputeLeaves() {
		t.Errorf("template should be computable")
	}
	step, _ := p.FindNode("Step_1")
	ds, _ := step.Attribute("downscale")
	if got, _ := ds.Value(); got != 4 {
		t.Errorf("downscale = %v, want 4", got)
	}
	sink, _ := p.FindNode("Sink_1")
	if diff := cmp.Diff([]string{"Step_1"}, names(p.Dependencies(sink))); diff != "" {
		t.Errorf("sink dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_CompatibilityIssues(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{"unknown type", "nodes:\n  - {name: A_1, type: Mystery}\n"},
		{"unknown attribute", "nodes:\n  - {name: S_1, type: Step, attributes: {bogus: 1}}\n"},
		{"dangling link", "nodes:\n  - {name: S_1, type: Step, attributes: {input: '{Gone_1.output}'}}\n"},
		{"bad value", "nodes:\n  - {name: S_1, type: Step, attributes: {downscale: 3}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load([]byte(tt.tmpl), testRegistry())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if p.CanComputeLeaves() {
				t.Error("expected CanComputeLeaves to be false")
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{"empty", "pipeline: x\n"},
		{"not yaml", "nodes: [\n"},
		{"missing type", "nodes:\n  - {name: A_1}\n"},
		{"duplicate", "nodes:\n  - {name: A_1, type: Step}\n  - {name: A_1, type: Step}\n"},
		{"cycle", "nodes:\n  - {name: A_1, type: Step, attributes: {input: '{B_1.output}'}}\n  - {name: B_1, type: Step, attributes: {input: '{A_1.output}'}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load([]byte(tt.tmpl), testRegistry()); !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Load = %v, want ErrInvalidTemplate", err)
			}
		})
	}
}

func TestSave_ReloadKeepsLinksAndValues(t *testing.T) {
	p, err := Load([]byte(chainTemplate), testRegistry())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	if err := p.Save(path, true); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := filepath.Join(dir, ProjectCacheDirName); p.CacheDir() != want {
		t.Errorf("CacheDir = %q, want %q", p.CacheDir(), want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "cacheDir") {
		t.Errorf("project file should not record the cache dir:\n%s", data)
	}

	reloaded, err := LoadFile(path, testRegistry())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if diff := cmp.Diff(p.Def().Nodes, reloaded.Def().Nodes); diff != "" {
		t.Errorf("round trip mismatch (-saved +reloaded):\n%s", diff)
	}
	if reloaded.CacheDir() != p.CacheDir() {
		t.Errorf("reloaded CacheDir = %q, want %q", reloaded.CacheDir(), p.CacheDir())
	}

	tmpl, err := LoadTemplateFile(path, testRegistry())
	if err != nil {
		t.Fatalf("LoadTemplateFile: %v", err)
	}
	if tmpl.CacheDir() != "" {
		t.Errorf("template CacheDir = %q, want empty", tmpl.CacheDir())
	}
}

func TestSave_JSONRecordsExplicitCache(t *testing.T) {
	p := chain(t)
	p.SetCacheDir("/explicit/cache")
	path := filepath.Join(t.TempDir(), "project.json")
	if err := p.Save(path, false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := LoadFile(path, testRegistry())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if reloaded.CacheDir() != "/explicit/cache" {
		t.Errorf("CacheDir = %q, want /explicit/cache", reloaded.CacheDir())
	}
}
