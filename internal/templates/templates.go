// Package templates resolves pipeline template identifiers: the built-in
// photogrammetry pipeline, templates embedded in the binary, templates
// found on the search path and template files.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"meshbatch/internal/pipeline"
)

// DefaultName selects the photogrammetry pipeline built in code.
const DefaultName = "photogrammetry"

// ErrNotFound is returned when an identifier matches no template.
var ErrNotFound = errors.New("template not found")

//go:embed *.yaml
var embedded embed.FS

var extensions = []string{".yaml", ".yml", ".json"}

// Source loads templates for one node type registry.
type Source struct {
	Registry *pipeline.Registry
	// SearchPath lists extra folders holding <name>.yaml, <name>.yml or <name>.json.
	SearchPath []string
}

// IsDefault reports whether id selects the built-in photogrammetry pipeline.
func IsDefault(id string) bool {
	return id == "" || strings.EqualFold(id, DefaultName)
}

// Default builds the photogrammetry pipeline for the given views and intrinsics.
func (s *Source) Default(views, intrinsics []any, output string) (*pipeline.Pipeline, error) {
	return Photogrammetry(s.Registry, views, intrinsics, output)
}

// Load resolves id as, in order, an existing file, an embedded template
// name and a template name on the search path. Names match case-insensitively.
// Only an existing file brings its own project cache folder.
func (s *Source) Load(id string) (*pipeline.Pipeline, error) {
	if info, err := os.Stat(id); err == nil && !info.IsDir() {
		return pipeline.LoadFile(id, s.Registry)
	}
	if data, ok := embeddedTemplate(id); ok {
		p, err := pipeline.Load(data, s.Registry)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", id, err)
		}
		return p, nil
	}
	for _, dir := range s.SearchPath {
		if path, ok := findIn(dir, id); ok {
			return pipeline.LoadTemplateFile(path, s.Registry)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Names lists the embedded templates and those found on the search path.
func (s *Source) Names() []string {
	seen := map[string]bool{DefaultName: true}
	names := []string{DefaultName}
	add := func(file string) {
		ext := filepath.Ext(file)
		if !isTemplateExt(ext) {
			return
		}
		name := strings.TrimSuffix(filepath.Base(file), ext)
		if !seen[strings.ToLower(name)] {
			seen[strings.ToLower(name)] = true
			names = append(names, name)
		}
	}
	entries, _ := embedded.ReadDir(".")
	for _, e := range entries {
		add(e.Name())
	}
	for _, dir := range s.SearchPath {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				add(e.Name())
			}
		}
	}
	sort.Strings(names[1:])
	return names
}

func embeddedTemplate(name string) ([]byte, bool) {
	entries, err := embedded.ReadDir(".")
	if err != nil {
		return nil, false
	}
	for _, e := range entries {
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if strings.EqualFold(base, name) {
			data, err := embedded.ReadFile(e.Name())
			return data, err == nil
		}
	}
	return nil, false
}

func findIn(dir, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !isTemplateExt(ext) {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(e.Name(), ext), name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

func isTemplateExt(ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
