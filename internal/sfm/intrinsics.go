package sfm

import (
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"meshbatch/internal/logging"
)

// DefaultFieldOfView is the horizontal field of view, in degrees, assumed
// for images without calibration.
const DefaultFieldOfView = 45.0

// StableID hashes s into a 32-bit identifier that does not change between runs.
func StableID(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

type probe struct {
	width, height int
}

// BuildIntrinsics adds a view for every image not already present in views
// and groups images of the same size under one intrinsic. Existing views and
// intrinsics are kept first, in their original order.
func BuildIntrinsics(views []View, intrinsics []Intrinsic, images []string, fovDegrees float64) ([]View, []Intrinsic, error) {
	log := logging.New("sfm")

	known := make(map[string]bool, len(views))
	for _, v := range views {
		known[filepath.Clean(v.Path)] = true
	}
	var fresh []string
	for _, img := range images {
		p := filepath.Clean(img)
		if !known[p] {
			known[p] = true
			fresh = append(fresh, p)
		}
	}

	probes := make([]probe, len(fresh))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, path := range fresh {
		g.Go(func() error {
			w, h, err := imageSize(path)
			if err != nil {
				return err
			}
			if w == 0 {
				log.Debug("image size unknown", "path", path)
			}
			probes[i] = probe{width: w, height: h}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	outViews := append([]View(nil), views...)
	outIntrinsics := append([]Intrinsic(nil), intrinsics...)
	bySize := make(map[[2]int]uint32, len(intrinsics))
	for _, in := range intrinsics {
		bySize[[2]int{in.Width, in.Height}] = in.IntrinsicID
	}

	for i, path := range fresh {
		pr := probes[i]
		size := [2]int{pr.width, pr.height}
		intrID, ok := bySize[size]
		if !ok {
			intr := newIntrinsic(pr.width, pr.height, fovDegrees)
			intrID = intr.IntrinsicID
			bySize[size] = intrID
			outIntrinsics = append(outIntrinsics, intr)
		}
		id := StableID(path)
		outViews = append(outViews, View{
			ViewID:      id,
			PoseID:      id,
			IntrinsicID: intrID,
			Path:        path,
			Width:       pr.width,
			Height:      pr.height,
		})
	}
	log.Info("intrinsics built", "views", len(outViews), "intrinsics", len(outIntrinsics), "new_images", len(fresh))
	return outViews, outIntrinsics, nil
}

func newIntrinsic(w, h int, fovDegrees float64) Intrinsic {
	intr := Intrinsic{
		IntrinsicID:          StableID(fmt.Sprintf("%dx%d", w, h)),
		Type:                 "radial3",
		Width:                w,
		Height:               h,
		SensorWidth:          -1,
		SensorHeight:         -1,
		PxInitialFocalLength: -1,
		PxFocalLength:        -1,
		InitializationMode:   "unknown",
	}
	if w <= 0 || h <= 0 {
		return intr
	}
	half := float64(max(w, h)) / 2
	focal := half / math.Tan(fovDegrees*math.Pi/360)
	intr.PxInitialFocalLength = focal
	intr.PxFocalLength = focal
	intr.PrincipalPoint = [2]float64{float64(w) / 2, float64(h) / 2}
	intr.InitializationMode = "estimated"
	return intr
}

// imageSize reads the image header. Formats without a registered decoder,
// such as camera RAW files, report 0x0 without error.
func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, nil
	}
	return cfg.Width, cfg.Height, nil
}
