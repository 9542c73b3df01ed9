package execute

import (
	"fmt"
	"strconv"

	"meshbatch/internal/pipeline"
)

// Command is one process invocation for a node.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory, the node's cache folder.
	Dir string
	// LogPath receives the combined output.
	LogPath string
}

func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + strconv.Quote(a)
	}
	return s
}

// CommandLine builds the command of n as --<flag> <value...> pairs, one per
// attribute. Empty values, group values and attributes marked NoArg are
// left out.
func CommandLine(n *pipeline.Node) ([]string, error) {
	var args []string
	for _, a := range n.Attributes() {
		d := a.Desc()
		if d.NoArg {
			continue
		}
		v, err := a.Value()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", n.Name(), d.Name, err)
		}
		vals := argValues(v)
		if len(vals) == 0 {
			continue
		}
		args = append(args, "--"+d.FlagName())
		args = append(args, vals...)
	}
	return args, nil
}

func argValues(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case bool:
		return []string{strconv.FormatBool(x)}
	case int:
		return []string{strconv.Itoa(x)}
	case float64:
		return []string{strconv.FormatFloat(x, 'g', -1, 64)}
	case []any:
		var out []string
		for _, it := range x {
			out = append(out, argValues(it)...)
		}
		return out
	case []string:
		return x
	case map[string]any:
		return nil
	}
	return []string{fmt.Sprint(v)}
}
