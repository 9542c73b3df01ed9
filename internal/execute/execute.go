// Package execute computes the nodes of a pipeline in dependency order,
// recording each node's status so finished work is skipped on later runs.
package execute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meshbatch/internal/format"
	"meshbatch/internal/logging"
	"meshbatch/internal/pipeline"
	"meshbatch/internal/store"
)

// LogFileName is the per-node command log inside the node cache folder.
const LogFileName = "log"

var (
	// ErrCannotCompute is returned when a node in the plan has an unknown
	// type or compatibility issues.
	ErrCannotCompute = errors.New("node cannot be computed")
	// ErrAlreadySubmitted is returned when a node is claimed by another run.
	ErrAlreadySubmitted = errors.New("node already submitted")
	// ErrNodeFailed wraps the failure of a node command.
	ErrNodeFailed = errors.New("node failed")
)

// Options tune one execution.
type Options struct {
	// ForceCompute recomputes nodes that already succeeded.
	ForceCompute bool
	// ForceStatus ignores SUBMITTED and RUNNING statuses left by other runs.
	ForceStatus bool
}

// Executor runs pipelines one node at a time.
type Executor struct {
	Store  store.Store
	Runner Runner
	// Out receives the plan table and progress lines. Nil discards them.
	Out io.Writer
	// PlanMode selects how the plan table is rendered.
	PlanMode format.Mode
}

type step struct {
	node   *pipeline.Node
	uid    string
	dir    string
	status store.Status
	run    bool
}

// Execute computes targets and every node they depend on. Nil targets
// means every node of p.
func (e *Executor) Execute(ctx context.Context, p *pipeline.Pipeline, targets []*pipeline.Node, opts Options) error {
	log := logging.New("execute")
	out := e.Out
	if out == nil {
		out = io.Discard
	}

	steps, err := e.plan(p, targets, opts)
	if err != nil {
		return err
	}
	rows := make([]format.PlanRow, len(steps))
	var todo []*step
	for i, s := range steps {
		action := "skip"
		if s.run {
			action = "compute"
			todo = append(todo, s)
		}
		rows[i] = format.PlanRow{Node: s.node.Name(), Type: s.node.Type(), UID: s.uid, Status: string(s.status), Action: action}
	}
	fmt.Fprintln(out, format.Plan(e.PlanMode, rows))
	if len(todo) == 0 {
		fmt.Fprintln(out, "Nothing to compute.")
		return nil
	}

	runID, err := e.Store.BeginRun(p.Name(), len(todo))
	if err != nil {
		return err
	}
	for _, s := range todo {
		if err := e.setStatus(s, runID, store.StatusSubmitted, ""); err != nil {
			return err
		}
	}

	for i, s := range todo {
		err := ctx.Err()
		if err == nil {
			fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(todo), s.node.Name())
			start := time.Now()
			if err = e.compute(ctx, s, runID); err == nil {
				log.Info("node computed", "node", s.node.Name(), "uid", s.uid,
					"duration", format.FmtDuration(time.Since(start)))
				continue
			}
		}
		e.abort(todo[i:], runID, err)
		return err
	}
	if err := e.Store.EndRun(runID, store.StatusSuccess); err != nil {
		return err
	}
	run, err := e.Store.GetRun(runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Computed %d nodes in %s.\n", run.Nodes, format.FmtDuration(run.EndedAt.Sub(run.StartedAt)))
	return nil
}

// plan expands targets to their dependency closure and decides, per node,
// whether it runs.
func (e *Executor) plan(p *pipeline.Pipeline, targets []*pipeline.Node, opts Options) ([]*step, error) {
	closure, err := p.DependencyClosure(targets)
	if err != nil {
		return nil, err
	}
	steps := make([]*step, 0, len(closure))
	var claimed []string
	for _, n := range closure {
		if !n.CanCompute() {
			return nil, fmt.Errorf("%w: %s: %s", ErrCannotCompute, n.Name(), strings.Join(n.CompatibilityIssues(), "; "))
		}
		uid, err := p.UID(n)
		if err != nil {
			return nil, err
		}
		dir, err := p.NodeCacheDir(n)
		if err != nil {
			return nil, err
		}
		st, err := e.Store.NodeStatus(uid)
		if err != nil {
			return nil, err
		}
		s := &step{node: n, uid: uid, dir: dir, status: st.Status, run: true}
		switch {
		case st.Status == store.StatusSuccess && !opts.ForceCompute:
			s.run = false
		case st.Status.Active() && !opts.ForceStatus:
			claimed = append(claimed, fmt.Sprintf("%s (%s)", n.Name(), st.Status))
		}
		steps = append(steps, s)
	}
	if len(claimed) > 0 {
		return nil, fmt.Errorf("%w: %s; use forceStatus to override", ErrAlreadySubmitted, strings.Join(claimed, ", "))
	}
	return steps, nil
}

func (e *Executor) setStatus(s *step, runID int64, st store.Status, msg string) error {
	return e.Store.SetNodeStatus(&store.NodeStatus{
		UID:      s.uid,
		NodeType: s.node.Type(),
		NodeName: s.node.Name(),
		Status:   st,
		RunID:    runID,
		Error:    msg,
	})
}

func (e *Executor) compute(ctx context.Context, s *step, runID int64) error {
	log := logging.New("execute")

	fail := func(err error) error {
		if serr := e.setStatus(s, runID, store.StatusError, format.Truncate(err.Error(), 500)); serr != nil {
			log.Error("record node status", "node", s.node.Name(), "error", serr)
		}
		return fmt.Errorf("%w: %s: %v", ErrNodeFailed, s.node.Name(), err)
	}

	if err := e.setStatus(s, runID, store.StatusRunning, ""); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fail(err)
	}
	typ := s.node.NodeType()
	if typ.Prepare != nil {
		if err := typ.Prepare(s.node, s.dir); err != nil {
			return fail(err)
		}
	}
	if typ.Process != nil {
		if err := typ.Process(s.node, s.dir); err != nil {
			return fail(err)
		}
	} else {
		args, err := CommandLine(s.node)
		if err != nil {
			return fail(err)
		}
		cmd := Command{Name: typ.Executable, Args: args, Dir: s.dir, LogPath: filepath.Join(s.dir, LogFileName)}
		log.Debug("run command", "node", s.node.Name(), "cmd", cmd.String())
		if err := e.Runner.Run(ctx, cmd); err != nil {
			return fail(err)
		}
	}
	return e.setStatus(s, runID, store.StatusSuccess, "")
}

// abort forgets the claim on nodes that never started and closes the run.
// rest starts with the node that failed or was interrupted.
func (e *Executor) abort(rest []*step, runID int64, cause error) {
	log := logging.New("execute")
	var uids []string
	for i, s := range rest {
		if i == 0 && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
			continue
		}
		uids = append(uids, s.uid)
	}
	if err := e.Store.ClearNodeStatus(uids...); err != nil {
		log.Error("clear submitted nodes", "error", err)
	}
	if err := e.Store.EndRun(runID, store.StatusError); err != nil {
		log.Error("end run", "error", err)
	}
}
