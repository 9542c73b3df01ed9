package nodes

import (
	"fmt"
	"os"

	"meshbatch/internal/pipeline"
	"meshbatch/internal/sfm"
)

func cameraInit() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        TypeCameraInit,
		Description: "Lists the views and camera intrinsics of the dataset.",
		Executable:  "aliceVision_cameraInit",
		Attributes: []pipeline.AttrDesc{
			{Name: "viewpoints", Kind: pipeline.KindList, Elem: pipeline.KindGroup, NoArg: true},
			{Name: "intrinsics", Kind: pipeline.KindList, Elem: pipeline.KindGroup, NoArg: true},
			{Name: "sensorDatabase", Kind: pipeline.KindFile, Default: ""},
			{Name: "defaultFieldOfView", Kind: pipeline.KindFloat, Default: sfm.DefaultFieldOfView},
			{Name: "allowSingleView", Kind: pipeline.KindBool, Default: true},
			{Name: "viewpointsFile", Kind: pipeline.KindFile, Output: true, Flag: "input",
				Default: "{{.NodeCacheDir}}/viewpoints.sfm"},
			output("output", "{{.NodeCacheDir}}/cameraInit.sfm"),
		},
		Prepare:         writeViewpoints,
		BuildIntrinsics: buildIntrinsics,
	}
}

// scene reads the viewpoints and intrinsics attributes of a CameraInit node.
func scene(n *pipeline.Node) (*sfm.Scene, error) {
	vals := make([][]any, 2)
	for i, name := range []string{"viewpoints", "intrinsics"} {
		a, err := n.Attribute(name)
		if err != nil {
			return nil, err
		}
		v, err := a.Value()
		if err != nil {
			return nil, err
		}
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s.%s: %T is not a list", n.Name(), name, v)
		}
		vals[i] = items
	}
	views, err := sfm.ViewsFromAttr(vals[0])
	if err != nil {
		return nil, fmt.Errorf("%s.viewpoints: %w", n.Name(), err)
	}
	intrinsics, err := sfm.IntrinsicsFromAttr(vals[1])
	if err != nil {
		return nil, fmt.Errorf("%s.intrinsics: %w", n.Name(), err)
	}
	return &sfm.Scene{Views: views, Intrinsics: intrinsics}, nil
}

func buildIntrinsics(n *pipeline.Node, images []string) ([]any, []any, error) {
	s, err := scene(n)
	if err != nil {
		return nil, nil, err
	}
	fov := sfm.DefaultFieldOfView
	if a, err := n.Attribute("defaultFieldOfView"); err == nil {
		if v, err := a.Value(); err == nil {
			if f, ok := v.(float64); ok && f > 0 {
				fov = f
			}
		}
	}
	views, intrinsics, err := sfm.BuildIntrinsics(s.Views, s.Intrinsics, images, fov)
	if err != nil {
		return nil, nil, err
	}
	return sfm.ViewsToAttr(views), sfm.IntrinsicsToAttr(intrinsics), nil
}

// writeViewpoints serializes the node's views and intrinsics to the file the
// camera init command reads.
func writeViewpoints(n *pipeline.Node, _ string) error {
	s, err := scene(n)
	if err != nil {
		return err
	}
	a, err := n.Attribute("viewpointsFile")
	if err != nil {
		return err
	}
	v, err := a.Value()
	if err != nil {
		return err
	}
	path, _ := v.(string)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write viewpoints: %w", err)
	}
	if err := sfm.Encode(f, s); err != nil {
		f.Close()
		return fmt.Errorf("write viewpoints: %w", err)
	}
	return f.Close()
}
