package batch

import (
	"fmt"

	"meshbatch/internal/logging"
	"meshbatch/internal/nodes"
	"meshbatch/internal/pipeline"
	"meshbatch/internal/templates"
)

// TemplateSource provides pipelines by template identifier.
type TemplateSource interface {
	Load(id string) (*pipeline.Pipeline, error)
	Default(views, intrinsics []any, output string) (*pipeline.Pipeline, error)
}

// LoadRequest selects the pipeline of a run.
type LoadRequest struct {
	// Template is a template name or file. Empty or "photogrammetry" selects
	// the built-in pipeline.
	Template string
	// Output, when set, becomes the output folder of the Publish node.
	Output string
}

// LoadPipeline builds the pipeline of a run and returns it with its
// CameraInit node, holding the resolved views and intrinsics.
func LoadPipeline(req LoadRequest, in *Inputs, src TemplateSource) (*pipeline.Pipeline, *pipeline.Node, error) {
	log := logging.New("loader")

	var (
		p      *pipeline.Pipeline
		source *pipeline.Node
		err    error
	)
	if templates.IsDefault(req.Template) {
		p, err = src.Default(in.Views, in.Intrinsics, req.Output)
		if err != nil {
			return nil, nil, err
		}
		if source, err = onlyNode(p, nodes.TypeCameraInit); err != nil {
			return nil, nil, err
		}
	} else {
		p, err = src.Load(req.Template)
		if err != nil {
			return nil, nil, err
		}
		if source, err = onlyNode(p, nodes.TypeCameraInit); err != nil {
			return nil, nil, err
		}
		if err := replaceList(source, "viewpoints", in.Views); err != nil {
			return nil, nil, err
		}
		if err := replaceList(source, "intrinsics", in.Intrinsics); err != nil {
			return nil, nil, err
		}
		if !p.CanComputeLeaves() {
			return nil, nil, fmt.Errorf("%w: pipeline %q cannot compute its final nodes", ErrStructural, p.Name())
		}
		if req.Output != "" {
			publish, err := onlyNode(p, nodes.TypePublish)
			if err != nil {
				return nil, nil, err
			}
			if err := setAttr(publish, "output", req.Output); err != nil {
				return nil, nil, err
			}
		}
	}
	log.Info("pipeline loaded", "pipeline", p.Name(), "nodes", len(p.Nodes()))

	if len(in.Images) > 0 {
		build := source.NodeType().BuildIntrinsics
		if build == nil {
			return nil, nil, fmt.Errorf("%w: node type %q cannot build intrinsics", ErrStructural, source.Type())
		}
		views, intrinsics, err := build(source, in.Images)
		if err != nil {
			return nil, nil, fmt.Errorf("build intrinsics: %w", err)
		}
		if err := setAttr(source, "viewpoints", views); err != nil {
			return nil, nil, err
		}
		if err := setAttr(source, "intrinsics", intrinsics); err != nil {
			return nil, nil, err
		}
		log.Info("intrinsics built", "views", len(views), "intrinsics", len(intrinsics))
	}
	return p, source, nil
}

// onlyNode returns the single node of the given type.
func onlyNode(p *pipeline.Pipeline, typeName string) (*pipeline.Node, error) {
	found := p.NodesByType(typeName)
	if len(found) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one node of type %q, found %d", ErrStructural, typeName, len(found))
	}
	return found[0], nil
}

func replaceList(n *pipeline.Node, name string, items []any) error {
	a, err := n.Attribute(name)
	if err != nil {
		return err
	}
	if err := a.Reset(); err != nil {
		return err
	}
	return a.Extend(items...)
}

func setAttr(n *pipeline.Node, name string, v any) error {
	a, err := n.Attribute(name)
	if err != nil {
		return err
	}
	return a.Set(v)
}
