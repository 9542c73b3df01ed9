package execute

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner runs a node command to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes. Executables are looked up
// in BinPath first, then in PATH.
type ExecRunner struct {
	BinPath []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, cmd Command) error {
	path, err := r.lookPath(cmd.Name)
	if err != nil {
		return err
	}
	logFile, err := os.Create(cmd.LogPath)
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	defer logFile.Close()

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = logFile
	c.Stderr = logFile
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w (see %s)", cmd.Name, err, cmd.LogPath)
	}
	return nil
}

func (r ExecRunner) lookPath(name string) (string, error) {
	for _, dir := range r.BinPath {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return p, nil
		}
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("find executable %s: %w", name, err)
	}
	return p, nil
}
