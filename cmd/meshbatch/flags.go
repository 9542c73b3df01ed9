package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"meshbatch/internal/format"
	"meshbatch/internal/logging"
)

var (
	_ pflag.Value = (*yesNo)(nil)
	_ pflag.Value = (*scaleValue)(nil)
	_ pflag.Value = (*planMode)(nil)
)

// yesNo is a boolean flag spelled "yes" or "no".
type yesNo bool

func (v *yesNo) String() string {
	if *v {
		return "yes"
	}
	return "no"
}

func (v *yesNo) Set(s string) error {
	switch strings.ToLower(s) {
	case "yes":
		*v = true
	case "no":
		*v = false
	default:
		return fmt.Errorf("invalid choice %q (choose from yes, no)", s)
	}
	return nil
}

func (v *yesNo) Type() string { return "yes|no" }

var scaleValues = []int{-1, 1, 2, 4, 8, 16}

// scaleValue is the depth map downscale factor; -1 keeps the template value.
type scaleValue int

func (v *scaleValue) String() string { return strconv.Itoa(int(*v)) }

func (v *scaleValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid scale %q: not an integer", s)
	}
	for _, allowed := range scaleValues {
		if n == allowed {
			*v = scaleValue(n)
			return nil
		}
	}
	return fmt.Errorf("invalid scale %d (choose from %s)", n, scaleChoices())
}

func (v *scaleValue) Type() string { return "int" }

func scaleChoices() string {
	parts := make([]string, len(scaleValues))
	for i, n := range scaleValues {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// planMode selects how the execution plan table is printed.
type planMode format.Mode

func (v *planMode) String() string {
	if format.Mode(*v) == format.Markdown {
		return "markdown"
	}
	return "ascii"
}

func (v *planMode) Set(s string) error {
	switch strings.ToLower(s) {
	case "ascii":
		*v = planMode(format.ASCII)
	case "markdown":
		*v = planMode(format.Markdown)
	default:
		return fmt.Errorf("invalid choice %q (choose from ascii, markdown)", s)
	}
	return nil
}

func (v *planMode) Type() string { return "ascii|markdown" }

func joinLevels() string { return strings.Join(logging.Levels, ", ") }

// multiValue lists the flags that take every following bare word as a value.
var multiValue = map[string]bool{
	"-i":               true,
	"--input":          true,
	"-I":               true,
	"--inputRecursive": true,
	"--paramOverrides": true,
	"--toNode":         true,
}

// expandMultiValue rewrites "--toNode A B" as "--toNode A --toNode B" so
// repeatable flags accept a list after a single occurrence. Bare words
// before the first flag stay positional. Everything after "--" is kept
// as is.
func expandMultiValue(args []string) []string {
	out := make([]string, 0, len(args))
	current := ""
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return append(out, args[i:]...)
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			name, _, hasValue := strings.Cut(arg, "=")
			current = ""
			if !multiValue[name] {
				out = append(out, arg)
				continue
			}
			current = name
			out = append(out, arg)
			if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
				out = append(out, args[i])
			}
		case current != "":
			out = append(out, current, arg)
		default:
			out = append(out, arg)
		}
	}
	return out
}
