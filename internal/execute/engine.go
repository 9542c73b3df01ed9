package execute

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"meshbatch/internal/format"
	"meshbatch/internal/pipeline"
	"meshbatch/internal/store"
)

// Engine executes pipelines against the status database kept in each
// pipeline's cache folder.
type Engine struct {
	Runner   Runner
	Out      io.Writer
	PlanMode format.Mode
	// OpenStore opens the status database; nil means store.Open.
	OpenStore func(path string) (store.Store, error)
}

// Execute opens the pipeline's status store and runs an Executor on it.
func (g *Engine) Execute(ctx context.Context, p *pipeline.Pipeline, targets []*pipeline.Node, opts Options) error {
	open := g.OpenStore
	if open == nil {
		open = func(path string) (store.Store, error) { return store.Open(path) }
	}
	if p.CacheDir() == "" {
		return fmt.Errorf("execute %s: no cache folder set", p.Name())
	}
	st, err := open(filepath.Join(p.CacheDir(), store.DefaultDBName))
	if err != nil {
		return err
	}
	defer st.Close()

	e := &Executor{Store: st, Runner: g.Runner, Out: g.Out, PlanMode: g.PlanMode}
	return e.Execute(ctx, p, targets, opts)
}
