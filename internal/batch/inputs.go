package batch

import (
	"fmt"
	"os"

	"meshbatch/internal/logging"
	"meshbatch/internal/sfm"
)

// NothingToCompute is shown when neither kind of input is given.
const NothingToCompute = "Nothing to compute. You need to set --input or --inputRecursive."

// SceneReader decodes a scene description file.
type SceneReader interface {
	Decode(path string) ([]sfm.View, []sfm.Intrinsic, error)
}

// ImageFinder lists the image files in paths. It never fails.
type ImageFinder interface {
	Find(paths []string, recursive bool) []string
}

// Inputs are the resolved views, intrinsics and raw images of a run.
// Views and intrinsics are in attribute form. Scene is set when they were
// read from a scene file, in which case Images is empty.
type Inputs struct {
	Scene      string
	Views      []any
	Intrinsics []any
	Images     []string
}

// ResolveInputs turns the command-line inputs into views, intrinsics and
// images. A single scene file among the plain inputs is decoded; anything
// else is searched for images, plain inputs first.
func ResolveInputs(inputs, recursive []string, scenes SceneReader, images ImageFinder) (*Inputs, error) {
	log := logging.New("inputs")

	if len(inputs) == 0 && len(recursive) == 0 {
		return nil, &UsageError{Msg: NothingToCompute}
	}

	if len(inputs) == 1 && isFile(inputs[0]) && sfm.IsSceneFile(inputs[0]) {
		views, intrinsics, err := scenes.Decode(inputs[0])
		if err != nil {
			return nil, fmt.Errorf("read scene %s: %w", inputs[0], err)
		}
		if len(recursive) > 0 {
			log.Warn("recursive inputs ignored with a scene file", "scene", inputs[0], "ignored", recursive)
		}
		log.Info("scene loaded", "scene", inputs[0], "views", len(views), "intrinsics", len(intrinsics))
		return &Inputs{
			Scene:      inputs[0],
			Views:      sfm.ViewsToAttr(views),
			Intrinsics: sfm.IntrinsicsToAttr(intrinsics),
		}, nil
	}

	var found []string
	if len(inputs) > 0 {
		found = append(found, images.Find(inputs, false)...)
	}
	if len(recursive) > 0 {
		found = append(found, images.Find(recursive, true)...)
	}
	if len(found) == 0 {
		return nil, ErrNoImages
	}
	log.Info("images found", "count", len(found))
	return &Inputs{Images: found}, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
