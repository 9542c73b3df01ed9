// Package sfm reads and writes scene descriptions: camera views and the
// intrinsics they share.
//
// The JSON layout follows AliceVision .sfm files, where numbers are usually
// written as strings. Both spellings are accepted on read; strings are written.
package sfm

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Extensions lists the file extensions recognized as scene descriptions.
var Extensions = []string{".sfm", ".json"}

// IsSceneFile reports whether path has a scene-description extension.
func IsSceneFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// View is one camera capture.
type View struct {
	ViewID      uint32
	PoseID      uint32
	IntrinsicID uint32
	Path        string
	Width       int
	Height      int
	Metadata    map[string]string
}

// Intrinsic is a camera calibration shared by views.
type Intrinsic struct {
	IntrinsicID          uint32
	Type                 string
	Width                int
	Height               int
	SensorWidth          float64
	SensorHeight         float64
	PxInitialFocalLength float64
	PxFocalLength        float64
	PrincipalPoint       [2]float64
	InitializationMode   string
}

// Scene is a decoded scene description.
type Scene struct {
	Views      []View
	Intrinsics []Intrinsic
}

// Reader decodes scene-description files.
type Reader struct{}

// Decode implements the scene reader contract used by the batch launcher.
func (Reader) Decode(path string) ([]View, []Intrinsic, error) {
	s, err := DecodeFile(path)
	if err != nil {
		return nil, nil, err
	}
	return s.Views, s.Intrinsics, nil
}

// DecodeFile reads the scene at path. Relative view paths are made relative
// to the scene file's folder.
func DecodeFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range s.Views {
		if p := s.Views[i].Path; p != "" && !filepath.IsAbs(p) {
			s.Views[i].Path = filepath.Join(base, p)
		}
	}
	return s, nil
}

// Decode reads a scene description from r.
func Decode(r io.Reader) (*Scene, error) {
	var doc sceneDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	s := &Scene{}
	for _, v := range doc.Views {
		s.Views = append(s.Views, View{
			ViewID:      uint32(v.ViewID),
			PoseID:      uint32(v.PoseID),
			IntrinsicID: uint32(v.IntrinsicID),
			Path:        v.Path,
			Width:       int(v.Width),
			Height:      int(v.Height),
			Metadata:    v.Metadata,
		})
	}
	for _, in := range doc.Intrinsics {
		intr := Intrinsic{
			IntrinsicID:          uint32(in.IntrinsicID),
			Type:                 in.Type,
			Width:                int(in.Width),
			Height:               int(in.Height),
			SensorWidth:          float64(in.SensorWidth),
			SensorHeight:         float64(in.SensorHeight),
			PxInitialFocalLength: float64(in.PxInitialFocalLength),
			PxFocalLength:        float64(in.PxFocalLength),
			InitializationMode:   in.InitializationMode,
		}
		if len(in.PrincipalPoint) == 2 {
			intr.PrincipalPoint = [2]float64{float64(in.PrincipalPoint[0]), float64(in.PrincipalPoint[1])}
		}
		s.Intrinsics = append(s.Intrinsics, intr)
	}
	return s, nil
}

// Encode writes the scene in the AliceVision layout.
func Encode(w io.Writer, s *Scene) error {
	doc := outDoc{Version: []string{"1", "2", "3"}, Views: []outView{}, Intrinsics: []outIntrinsic{}}
	for _, v := range s.Views {
		doc.Views = append(doc.Views, outView{
			ViewID:      u32(v.ViewID),
			PoseID:      u32(v.PoseID),
			IntrinsicID: u32(v.IntrinsicID),
			Path:        v.Path,
			Width:       strconv.Itoa(v.Width),
			Height:      strconv.Itoa(v.Height),
			Metadata:    v.Metadata,
		})
	}
	for _, in := range s.Intrinsics {
		doc.Intrinsics = append(doc.Intrinsics, outIntrinsic{
			IntrinsicID:          u32(in.IntrinsicID),
			Type:                 in.Type,
			Width:                strconv.Itoa(in.Width),
			Height:               strconv.Itoa(in.Height),
			SensorWidth:          f64(in.SensorWidth),
			SensorHeight:         f64(in.SensorHeight),
			PxInitialFocalLength: f64(in.PxInitialFocalLength),
			PxFocalLength:        f64(in.PxFocalLength),
			PrincipalPoint:       []string{f64(in.PrincipalPoint[0]), f64(in.PrincipalPoint[1])},
			InitializationMode:   in.InitializationMode,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(doc)
}

func u32(v uint32) string  { return strconv.FormatUint(uint64(v), 10) }
func f64(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

type sceneDoc struct {
	Views      []viewDoc      `json:"views"`
	Intrinsics []intrinsicDoc `json:"intrinsics"`
}

type viewDoc struct {
	ViewID      flexNumber        `json:"viewId"`
	PoseID      flexNumber        `json:"poseId"`
	IntrinsicID flexNumber        `json:"intrinsicId"`
	Path        string            `json:"path"`
	Width       flexNumber        `json:"width"`
	Height      flexNumber        `json:"height"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type intrinsicDoc struct {
	IntrinsicID          flexNumber   `json:"intrinsicId"`
	Type                 string       `json:"type"`
	Width                flexNumber   `json:"width"`
	Height               flexNumber   `json:"height"`
	SensorWidth          flexNumber   `json:"sensorWidth"`
	SensorHeight         flexNumber   `json:"sensorHeight"`
	PxInitialFocalLength flexNumber   `json:"pxInitialFocalLength"`
	PxFocalLength        flexNumber   `json:"pxFocalLength"`
	PrincipalPoint       []flexNumber `json:"principalPoint"`
	InitializationMode   string       `json:"initializationMode"`
}

type outView struct {
	ViewID      string            `json:"viewId"`
	PoseID      string            `json:"poseId"`
	IntrinsicID string            `json:"intrinsicId"`
	Path        string            `json:"path"`
	Width       string            `json:"width"`
	Height      string            `json:"height"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type outIntrinsic struct {
	IntrinsicID          string   `json:"intrinsicId"`
	Type                 string   `json:"type"`
	Width                string   `json:"width"`
	Height               string   `json:"height"`
	SensorWidth          string   `json:"sensorWidth"`
	SensorHeight         string   `json:"sensorHeight"`
	PxInitialFocalLength string   `json:"pxInitialFocalLength"`
	PxFocalLength        string   `json:"pxFocalLength"`
	PrincipalPoint       []string `json:"principalPoint"`
	InitializationMode   string   `json:"initializationMode"`
}

type outDoc struct {
	Version    []string       `json:"version"`
	Views      []outView      `json:"views"`
	Intrinsics []outIntrinsic `json:"intrinsics"`
}

// flexNumber accepts 12, 1.5, "12" and "1.5".
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*f = flexNumber(v)
	return nil
}
