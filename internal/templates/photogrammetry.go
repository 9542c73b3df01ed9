package templates

import (
	"fmt"

	"meshbatch/internal/nodes"
	"meshbatch/internal/pipeline"
)

// builder adds nodes and links, keeping the first error.
type builder struct {
	p   *pipeline.Pipeline
	err error
}

func (b *builder) add(typeName string) *pipeline.Node {
	if b.err != nil {
		return nil
	}
	n, err := b.p.AddNode(typeName, "")
	if err != nil {
		b.err = err
	}
	return n
}

func (b *builder) link(src *pipeline.Node, srcAttr string, dst *pipeline.Node, dstAttr string) {
	if b.err != nil {
		return
	}
	if err := b.p.Connect(src, srcAttr, dst, dstAttr); err != nil {
		b.err = fmt.Errorf("connect %s.%s -> %s.%s: %w", src.Name(), srcAttr, dst.Name(), dstAttr, err)
	}
}

func (b *builder) set(n *pipeline.Node, attr string, v any) {
	if b.err != nil {
		return
	}
	a, err := n.Attribute(attr)
	if err == nil {
		err = a.Set(v)
	}
	if err != nil {
		b.err = err
	}
}

// Photogrammetry builds the full reconstruction pipeline, from camera
// initialization to a textured mesh. A Publish node is added only when
// output is set.
func Photogrammetry(reg *pipeline.Registry, views, intrinsics []any, output string) (*pipeline.Pipeline, error) {
	b := &builder{p: pipeline.New(pipeline.DefaultName, reg)}

	cameraInit := b.add(nodes.TypeCameraInit)
	b.set(cameraInit, "viewpoints", views)
	b.set(cameraInit, "intrinsics", intrinsics)

	features := b.add("FeatureExtraction")
	b.link(cameraInit, "output", features, "input")

	imageMatching := b.add("ImageMatching")
	b.link(features, "input", imageMatching, "input")
	b.link(features, "output", imageMatching, "featuresFolders")

	matching := b.add("FeatureMatching")
	b.link(imageMatching, "input", matching, "input")
	b.link(features, "output", matching, "featuresFolders")
	b.link(imageMatching, "output", matching, "imagePairsList")

	sfm := b.add("StructureFromMotion")
	b.link(matching, "input", sfm, "input")
	b.link(features, "output", sfm, "featuresFolders")
	b.link(matching, "output", sfm, "matchesFolders")

	dense := b.add("PrepareDenseScene")
	b.link(sfm, "output", dense, "input")

	depthMap := b.add(nodes.TypeDepthMap)
	b.link(dense, "input", depthMap, "input")
	b.link(dense, "output", depthMap, "imagesFolder")

	depthFilter := b.add("DepthMapFilter")
	b.link(depthMap, "input", depthFilter, "input")
	b.link(depthMap, "output", depthFilter, "depthMapsFolder")

	meshing := b.add("Meshing")
	b.link(depthFilter, "input", meshing, "input")
	b.link(depthFilter, "output", meshing, "depthMapsFolder")

	meshFiltering := b.add("MeshFiltering")
	b.link(meshing, "outputMesh", meshFiltering, "inputMesh")

	texturing := b.add("Texturing")
	b.link(meshing, "output", texturing, "input")
	b.link(depthMap, "imagesFolder", texturing, "imagesFolder")
	b.link(meshFiltering, "outputMesh", texturing, "inputMesh")

	if output != "" {
		publish := b.add(nodes.TypePublish)
		b.link(texturing, "outputMesh", publish, "inputFiles")
		b.link(texturing, "output", publish, "inputFiles")
		b.set(publish, "output", output)
	}

	if b.err != nil {
		return nil, fmt.Errorf("build photogrammetry pipeline: %w", b.err)
	}
	return b.p, nil
}
