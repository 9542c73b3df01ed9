// Package batch turns command-line inputs, a pipeline template and layered
// overrides into one configured pipeline, then hands the requested part of
// it to an execution engine.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"

	"meshbatch/internal/execute"
	"meshbatch/internal/logging"
	"meshbatch/internal/pipeline"
)

// Options are the command-line settings of one run.
type Options struct {
	Inputs          []string
	InputsRecursive []string
	Pipeline        string
	Overrides       string // override file
	ParamOverrides  []string
	Output          string
	Cache           string
	Save            string
	Compute         bool
	Scale           int
	ToNodes         []string
	ForceStatus     bool
	ForceCompute    bool
}

// Engine computes a configured pipeline.
type Engine interface {
	Execute(ctx context.Context, p *pipeline.Pipeline, targets []*pipeline.Node, opts execute.Options) error
}

// Deps are the collaborators of Run.
type Deps struct {
	Scenes    SceneReader
	Images    ImageFinder
	Templates TemplateSource
	Engine    Engine
	// DefaultCacheDir is used when Options.Cache is empty and the pipeline
	// brings no cache folder of its own.
	DefaultCacheDir string
	// Out receives user-facing messages. Nil means os.Stdout.
	Out io.Writer
}

// Run configures the pipeline and, when Options.Compute is set, executes
// it. Every step completes before the next one starts; the first error
// aborts the run.
func Run(ctx context.Context, opts Options, deps Deps) error {
	log := logging.New("batch")
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}

	in, err := ResolveInputs(opts.Inputs, opts.InputsRecursive, deps.Scenes, deps.Images)
	if err != nil {
		return err
	}
	p, _, err := LoadPipeline(LoadRequest{Template: opts.Pipeline, Output: opts.Output}, in, deps.Templates)
	if err != nil {
		return err
	}

	if opts.Overrides != "" {
		if err := applyOverridesFile(p, opts.Overrides); err != nil {
			return hintNodes(p, err)
		}
	}
	if err := ApplyParamOverrides(p, opts.ParamOverrides, out); err != nil {
		return hintNodes(p, err)
	}
	if err := ApplyScale(p, opts.Scale); err != nil {
		return err
	}

	switch {
	case opts.Cache != "":
		p.SetCacheDir(opts.Cache)
	case p.CacheDir() == "":
		p.SetCacheDir(deps.DefaultCacheDir)
	}

	if opts.Save != "" {
		if err := p.Save(opts.Save, opts.Cache == ""); err != nil {
			return err
		}
		fmt.Fprintf(out, "File successfully saved: %q\n", opts.Save)
	}

	if opts.Output == "" {
		fmt.Fprintf(out, "No output set, results will be available in the cache folder: %q\n", p.CacheDir())
	}

	targets, err := ResolveScope(p, opts.ToNodes)
	if err != nil {
		return hintNodes(p, err)
	}

	if !opts.Compute {
		log.Info("compute disabled", "pipeline", p.Name())
		return nil
	}
	return deps.Engine.Execute(ctx, p, targets, execute.Options{
		ForceCompute: opts.ForceCompute,
		ForceStatus:  opts.ForceStatus,
	})
}

func applyOverridesFile(p *pipeline.Pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open overrides: %w", err)
	}
	defer f.Close()
	return ApplyFileOverrides(p, f)
}

// hintNodes logs the node names of p when err comes from a name that does
// not resolve, and returns err unchanged.
func hintNodes(p *pipeline.Pipeline, err error) error {
	if IsResolution(err) {
		names := make([]string, 0, len(p.Nodes()))
		for _, n := range p.Nodes() {
			names = append(names, n.Name())
		}
		logging.New("batch").Error("unresolved name", "pipeline", p.Name(), "nodes", names, "error", err)
	}
	return err
}
