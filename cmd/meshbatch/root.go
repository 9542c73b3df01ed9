package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"meshbatch/internal/batch"
	"meshbatch/internal/config"
	"meshbatch/internal/execute"
	"meshbatch/internal/format"
	"meshbatch/internal/imagefind"
	"meshbatch/internal/logging"
	"meshbatch/internal/nodes"
	"meshbatch/internal/sfm"
	"meshbatch/internal/templates"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	inputs          []string
	inputsRecursive []string
	pipeline        string
	overrides       string
	paramOverrides  []string
	output          string
	cache           string
	save            string
	compute         yesNo
	scale           scaleValue
	toNodes         []string
	forceStatus     bool
	forceCompute    bool
	verbose         string
	logFormat       string
	planFormat      planMode
}

// depsFunc wires the collaborators of a run for a given configuration.
type depsFunc func(cfg config.Config, out io.Writer, plan format.Mode) batch.Deps

func defaultDeps(cfg config.Config, out io.Writer, plan format.Mode) batch.Deps {
	return batch.Deps{
		Scenes:    sfm.Reader{},
		Images:    imagefind.Finder{},
		Templates: &templates.Source{Registry: nodes.Registry(), SearchPath: cfg.TemplatesPath},
		Engine: &execute.Engine{
			Runner:   execute.ExecRunner{BinPath: cfg.BinPath},
			Out:      out,
			PlanMode: plan,
		},
		DefaultCacheDir: cfg.CacheDir,
		Out:             out,
	}
}

func newRootCmd(cfg config.Config, deps depsFunc) *cobra.Command {
	f := &rootFlags{
		compute:   true,
		scale:     -1,
		verbose:   "info",
		logFormat: cfg.LogFormat,
	}

	cmd := &cobra.Command{
		Use:   "meshbatch [flags] [input...]",
		Short: "Launch a photogrammetry pipeline without a user interface",
		Long: `meshbatch builds a pipeline from a template, feeds it the given images
or scene file, applies overrides and computes it.

Values of --input, --inputRecursive, --paramOverrides and --toNode may be
listed after a single flag, as in --toNode DepthMap_1 Meshing_1.`,
		Version:           version,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(f.verbose)
			if err != nil {
				return &batch.UsageError{Msg: err.Error()}
			}
			logging.Init(level, f.logFormat, cmd.ErrOrStderr())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := batch.Options{
				Inputs:          append(append([]string(nil), f.inputs...), args...),
				InputsRecursive: f.inputsRecursive,
				Pipeline:        f.pipeline,
				Overrides:       f.overrides,
				ParamOverrides:  f.paramOverrides,
				Output:          f.output,
				Cache:           f.cache,
				Save:            f.save,
				Compute:         bool(f.compute),
				Scale:           int(f.scale),
				ToNodes:         f.toNodes,
				ForceStatus:     f.forceStatus,
				ForceCompute:    f.forceCompute,
			}
			return batch.Run(cmd.Context(), opts, deps(cfg, cmd.OutOrStdout(), format.Mode(f.planFormat)))
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.inputs, "input", "i", nil, "Input folder containing images, folders of images or a scene file (.sfm or .json)")
	fl.StringArrayVarP(&f.inputsRecursive, "inputRecursive", "I", nil, "Input folders searched recursively for images")
	names := (&templates.Source{Registry: nodes.Registry(), SearchPath: cfg.TemplatesPath}).Names()
	fl.StringVarP(&f.pipeline, "pipeline", "p", templates.DefaultName,
		"Template name ("+strings.Join(names, ", ")+") or pipeline file (.json, .yaml)")
	fl.StringVar(&f.overrides, "overrides", "", "YAML or JSON file mapping node types to attribute values")
	fl.StringArrayVar(&f.paramOverrides, "paramOverrides", nil, "Override written as TYPE:attr=value or NODE.attr=value")
	fl.StringVarP(&f.output, "output", "o", "", "Output folder receiving the published results")
	fl.StringVar(&f.cache, "cache", "", "Cache folder; defaults to the pipeline file's own, then $"+config.EnvCache+" or a temporary folder")
	fl.StringVar(&f.save, "save", "", "Save the configured pipeline to this file")
	fl.Var(&f.compute, "compute", "Compute the pipeline: yes or no")
	fl.Var(&f.scale, "scale", "Downscale factor for depth maps: "+scaleChoices())
	fl.StringArrayVar(&f.toNodes, "toNode", nil, "Compute up to these nodes only")
	fl.BoolVar(&f.forceStatus, "forceStatus", false, "Ignore SUBMITTED and RUNNING statuses left by other runs")
	fl.BoolVar(&f.forceCompute, "forceCompute", false, "Recompute nodes that already succeeded")
	fl.StringVarP(&f.verbose, "verbose", "v", f.verbose, "Verbosity: "+joinLevels())
	fl.StringVar(&f.logFormat, "log-format", f.logFormat, "Log format: text or json")
	fl.Var(&f.planFormat, "plan-format", "Execution plan table: ascii or markdown")
	return cmd
}
