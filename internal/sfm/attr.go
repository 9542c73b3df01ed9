package sfm

import (
	"fmt"
	"strconv"
)

// ViewsToAttr converts views to the group values held by a viewpoints attribute.
func ViewsToAttr(views []View) []any {
	out := make([]any, 0, len(views))
	for _, v := range views {
		m := map[string]any{
			"viewId":      int(v.ViewID),
			"poseId":      int(v.PoseID),
			"intrinsicId": int(v.IntrinsicID),
			"path":        v.Path,
			"width":       v.Width,
			"height":      v.Height,
		}
		if len(v.Metadata) > 0 {
			md := make(map[string]any, len(v.Metadata))
			for k, val := range v.Metadata {
				md[k] = val
			}
			m["metadata"] = md
		}
		out = append(out, m)
	}
	return out
}

// IntrinsicsToAttr converts intrinsics to the group values held by an intrinsics attribute.
func IntrinsicsToAttr(intrinsics []Intrinsic) []any {
	out := make([]any, 0, len(intrinsics))
	for _, in := range intrinsics {
		out = append(out, map[string]any{
			"intrinsicId":          int(in.IntrinsicID),
			"type":                 in.Type,
			"width":                in.Width,
			"height":               in.Height,
			"sensorWidth":          in.SensorWidth,
			"sensorHeight":         in.SensorHeight,
			"pxInitialFocalLength": in.PxInitialFocalLength,
			"pxFocalLength":        in.PxFocalLength,
			"principalPoint":       []any{in.PrincipalPoint[0], in.PrincipalPoint[1]},
			"initializationMode":   in.InitializationMode,
		})
	}
	return out
}

// ViewsFromAttr converts viewpoints attribute values back to views.
func ViewsFromAttr(items []any) ([]View, error) {
	out := make([]View, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("viewpoint %d: %T is not a group", i, it)
		}
		v := View{
			ViewID:      uint32(num(m["viewId"])),
			PoseID:      uint32(num(m["poseId"])),
			IntrinsicID: uint32(num(m["intrinsicId"])),
			Path:        str(m["path"]),
			Width:       int(num(m["width"])),
			Height:      int(num(m["height"])),
		}
		if md, ok := m["metadata"].(map[string]any); ok {
			v.Metadata = make(map[string]string, len(md))
			for k, val := range md {
				v.Metadata[k] = str(val)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// IntrinsicsFromAttr converts intrinsics attribute values back to intrinsics.
func IntrinsicsFromAttr(items []any) ([]Intrinsic, error) {
	out := make([]Intrinsic, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("intrinsic %d: %T is not a group", i, it)
		}
		in := Intrinsic{
			IntrinsicID:          uint32(num(m["intrinsicId"])),
			Type:                 str(m["type"]),
			Width:                int(num(m["width"])),
			Height:               int(num(m["height"])),
			SensorWidth:          num(m["sensorWidth"]),
			SensorHeight:         num(m["sensorHeight"]),
			PxInitialFocalLength: num(m["pxInitialFocalLength"]),
			PxFocalLength:        num(m["pxFocalLength"]),
			InitializationMode:   str(m["initializationMode"]),
		}
		if pp, ok := m["principalPoint"].([]any); ok && len(pp) == 2 {
			in.PrincipalPoint = [2]float64{num(pp[0]), num(pp[1])}
		}
		out = append(out, in)
	}
	return out, nil
}

func num(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
