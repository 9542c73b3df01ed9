package nodes

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"meshbatch/internal/logging"
	"meshbatch/internal/pipeline"
)

func publish() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        TypePublish,
		Description: "Copies the final results into an output folder.",
		Attributes: []pipeline.AttrDesc{
			inputs("inputFiles"),
			{Name: "output", Kind: pipeline.KindFile, Default: ""},
		},
		Process: publishFiles,
	}
}

func publishFiles(n *pipeline.Node, _ string) error {
	log := logging.New("publish")

	out, err := stringValue(n, "output")
	if err != nil {
		return err
	}
	if out == "" {
		log.Warn("no output folder set, nothing published")
		return nil
	}
	a, err := n.Attribute("inputFiles")
	if err != nil {
		return err
	}
	v, err := a.Value()
	if err != nil {
		return err
	}
	items, _ := v.([]any)
	if len(items) == 0 {
		log.Warn("nothing to publish")
		return nil
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	for _, it := range items {
		src, _ := it.(string)
		if src == "" {
			continue
		}
		dst := filepath.Join(out, filepath.Base(src))
		log.Info("publish", "src", src, "dst", dst)
		if err := copyPath(src, dst); err != nil {
			return fmt.Errorf("publish %s: %w", src, err)
		}
	}
	return nil
}

func stringValue(n *pipeline.Node, name string) (string, error) {
	a, err := n.Attribute(name)
	if err != nil {
		return "", err
	}
	v, err := a.Value()
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// copyPath copies a file, or a folder recursively, to dst.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode().Perm())
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, fi.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
