// Package nodes declares the built-in photogrammetry node types.
package nodes

import "meshbatch/internal/pipeline"

// Node type names the batch launcher depends on.
const (
	TypeCameraInit = "CameraInit"
	TypePublish    = "Publish"
	TypeDepthMap   = "DepthMap"
)

// Registry returns a registry holding every built-in node type.
func Registry() *pipeline.Registry {
	return pipeline.NewRegistry(
		cameraInit(),
		featureExtraction(),
		imageMatching(),
		featureMatching(),
		structureFromMotion(),
		prepareDenseScene(),
		depthMap(),
		depthMapFilter(),
		meshing(),
		meshFiltering(),
		texturing(),
		publish(),
	)
}

func input(name string) pipeline.AttrDesc {
	return pipeline.AttrDesc{Name: name, Kind: pipeline.KindFile, Default: ""}
}

func inputs(name string) pipeline.AttrDesc {
	return pipeline.AttrDesc{Name: name, Kind: pipeline.KindList, Elem: pipeline.KindFile}
}

func output(name, tmpl string) pipeline.AttrDesc {
	return pipeline.AttrDesc{Name: name, Kind: pipeline.KindFile, Output: true, Default: tmpl}
}

func describerTypes() pipeline.AttrDesc {
	return pipeline.AttrDesc{Name: "describerTypes", Kind: pipeline.KindString, Default: "dspsift"}
}

func featureExtraction() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "FeatureExtraction",
		Description: "Extracts 2D features and descriptors from every view.",
		Executable:  "aliceVision_featureExtraction",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			describerTypes(),
			{Name: "describerPreset", Kind: pipeline.KindString, Default: "normal",
				Values: []any{"low", "medium", "normal", "high", "ultra"}},
			{Name: "forceCpuExtraction", Kind: pipeline.KindBool, Default: true},
			output("output", "{{.NodeCacheDir}}"),
		},
	}
}

func imageMatching() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "ImageMatching",
		Description: "Selects image pairs worth matching.",
		Executable:  "aliceVision_imageMatching",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			inputs("featuresFolders"),
			{Name: "method", Kind: pipeline.KindString, Default: "SequentialAndVocabularyTree",
				Values: []any{"VocabularyTree", "Sequential", "SequentialAndVocabularyTree", "Exhaustive", "Frustum"}},
			{Name: "maxDescriptors", Kind: pipeline.KindInt, Default: 500},
			{Name: "nbMatches", Kind: pipeline.KindInt, Default: 40},
			output("output", "{{.NodeCacheDir}}/imageMatches.txt"),
		},
	}
}

func featureMatching() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "FeatureMatching",
		Description: "Matches features between the selected image pairs.",
		Executable:  "aliceVision_featureMatching",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			inputs("featuresFolders"),
			input("imagePairsList"),
			describerTypes(),
			{Name: "guidedMatching", Kind: pipeline.KindBool, Default: false},
			output("output", "{{.NodeCacheDir}}"),
		},
	}
}

func structureFromMotion() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "StructureFromMotion",
		Description: "Recovers camera poses and a sparse point cloud.",
		Executable:  "aliceVision_incrementalSfM",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			inputs("featuresFolders"),
			inputs("matchesFolders"),
			describerTypes(),
			{Name: "minInputTrackLength", Kind: pipeline.KindInt, Default: 2},
			output("output", "{{.NodeCacheDir}}/sfm.abc"),
			output("outputViewsAndPoses", "{{.NodeCacheDir}}/cameras.sfm"),
		},
	}
}

func prepareDenseScene() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "PrepareDenseScene",
		Description: "Undistorts images for dense reconstruction.",
		Executable:  "aliceVision_prepareDenseScene",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			output("output", "{{.NodeCacheDir}}"),
		},
	}
}

func depthMap() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        TypeDepthMap,
		Description: "Estimates a depth map per view.",
		Executable:  "aliceVision_depthMapEstimation",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			input("imagesFolder"),
			{Name: "downscale", Kind: pipeline.KindInt, Default: 2, Values: []any{1, 2, 4, 8, 16}},
			output("output", "{{.NodeCacheDir}}"),
		},
	}
}

func depthMapFilter() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "DepthMapFilter",
		Description: "Filters depth maps for consistency across views.",
		Executable:  "aliceVision_depthMapFiltering",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			input("depthMapsFolder"),
			output("output", "{{.NodeCacheDir}}"),
		},
	}
}

func meshing() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "Meshing",
		Description: "Fuses depth maps, or the sparse cloud alone, into a mesh.",
		Executable:  "aliceVision_meshing",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			input("depthMapsFolder"),
			{Name: "maxPoints", Kind: pipeline.KindInt, Default: 5000000},
			output("output", "{{.NodeCacheDir}}/densePointCloud.abc"),
			output("outputMesh", "{{.NodeCacheDir}}/mesh.obj"),
		},
	}
}

func meshFiltering() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "MeshFiltering",
		Description: "Removes small components and smooths the mesh.",
		Executable:  "aliceVision_meshFiltering",
		Attributes: []pipeline.AttrDesc{
			input("inputMesh"),
			{Name: "keepLargestMeshOnly", Kind: pipeline.KindBool, Default: false},
			output("outputMesh", "{{.NodeCacheDir}}/mesh.obj"),
		},
	}
}

func texturing() *pipeline.NodeType {
	return &pipeline.NodeType{
		Name:        "Texturing",
		Description: "Projects the images onto the mesh.",
		Executable:  "aliceVision_texturing",
		Attributes: []pipeline.AttrDesc{
			input("input"),
			input("imagesFolder"),
			input("inputMesh"),
			{Name: "textureSide", Kind: pipeline.KindInt, Default: 8192,
				Values: []any{1024, 2048, 4096, 8192, 16384}},
			output("output", "{{.NodeCacheDir}}"),
			output("outputMesh", "{{.NodeCacheDir}}/texturedMesh.obj"),
		},
	}
}
