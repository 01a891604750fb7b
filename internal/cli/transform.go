package cli

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/votemap/pkg/artifact"
	"github.com/matzehuels/votemap/pkg/classify"
	"github.com/matzehuels/votemap/pkg/config"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/geo"
	"github.com/matzehuels/votemap/pkg/match"
	"github.com/matzehuels/votemap/pkg/observability"
	"github.com/matzehuels/votemap/pkg/pipeline"
	"github.com/matzehuels/votemap/pkg/report"
)

// transformOpts holds transform command flags.
type transformOpts struct {
	output     string
	workers    int
	tolerance  float64
	precision  int
	sizeLimit  int
	minOverlap float64
	strategy   string
	classes    int
	method     string
	noCache    bool
	refresh    bool
	json       bool
}

// transformCommand creates the transform command.
func (c *CLI) transformCommand() *cobra.Command {
	opts := transformOpts{}

	cmd := &cobra.Command{
		Use:   "transform [department...]",
		Short: "Transform departments into map artifacts",
		Long: `Transform aggregates votes, normalizes boundaries, matches zones and
publishes the artifacts of every selected department.

Departments come from votemap.toml; with no arguments all of them are
transformed. Flags override the [transform] table of the config file.
A department that fails leaves its previous artifacts untouched and does not
stop the others.`,
		Example: `  # Transform every configured department
  votemap transform

  # Two departments, simplifying harder
  votemap transform montevideo canelones --tolerance 0.0005`,
		ValidArgsFunction: c.departmentCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransform(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "out", "o", "", "output root (default $VOTEMAP_OUT or config)")
	f.IntVarP(&opts.workers, "workers", "w", 0, "departments transformed at once (default: CPU count)")
	f.Float64Var(&opts.tolerance, "tolerance", pipeline.DefaultTolerance, "simplification tolerance in degrees (0 disables)")
	f.IntVar(&opts.precision, "precision", geo.DefaultPrecision, "coordinate decimals kept (negative keeps all)")
	f.IntVar(&opts.sizeLimit, "size-limit", pipeline.DefaultSizeLimit, "map size in bytes that triggers simplification")
	f.Float64Var(&opts.minOverlap, "min-overlap", match.DefaultMinOverlap, "overlap fraction required for a spatial match")
	f.StringVar(&opts.strategy, "strategy", string(match.StrategyOverlap), "spatial match strategy: overlap or centroid")
	f.IntVar(&opts.classes, "classes", classify.DefaultClasses, "number of choropleth classes")
	f.StringVar(&opts.method, "method", string(classify.Jenks), "classification method: jenks, quantile or equal")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the geometry cache")
	f.BoolVar(&opts.refresh, "refresh", false, "recompute geometry even when cached")
	f.BoolVar(&opts.json, "json", false, "print the run summary as JSON")

	return cmd
}

func (c *CLI) runTransform(cmd *cobra.Command, args []string, opts transformOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	depts, err := cfg.Select(args)
	if err != nil {
		return err
	}
	if len(depts) == 0 {
		printWarning("No departments configured in %s", cfg.Path)
		return nil
	}

	popts, err := transformOptions(cmd, cfg, opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	verbose := logger.GetLevel() <= log.DebugLevel
	popts.Logger = logger
	var spinner *Spinner
	if !verbose && !opts.json {
		// Department progress goes to the spinner; only problems are logged.
		quiet := logger.With()
		quiet.SetLevel(log.WarnLevel)
		popts.Logger = quiet

		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Transforming %d departments...", len(depts)))
		observability.SetPipelineHooks(&progressHooks{spinner: spinner, total: len(depts)})
		defer observability.Reset()
		spinner.Start()
	}

	prog := newProgress(logger)
	summary, runErr := runner.RunAll(ctx, depts, popts)
	if spinner != nil {
		spinner.Stop()
	}
	if summary == nil {
		return runErr
	}

	if opts.json {
		data, err := artifact.Encode(summary, true)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
	} else {
		fmt.Println(StyleTitle.Render("Transform summary"))
		printSummary(summary)
		printFile(popts.Output)
		if verbose {
			prog.done("transform finished", "departments", len(depts))
		} else {
			printDetail("took %s", prog.elapsed())
		}
	}

	if runErr != nil {
		return runErr
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d departments failed", summary.Failed, len(summary.Reports))
	}
	if !opts.json {
		printNextStep("Preview the artifacts", "votemap serve "+popts.Output)
	}
	return nil
}

// transformOptions layers changed flags over the config file over the
// pipeline defaults. Zero means "default" in the pipeline options, so an
// explicit zero tolerance becomes NoSimplify and a zero precision is
// rejected.
func transformOptions(cmd *cobra.Command, cfg *config.Config, opts transformOpts) (pipeline.Options, error) {
	p := pipeline.FromConfig(cfg)
	changed := cmd.Flags().Changed

	p.Output = outputDir(opts.output, cmp.Or(p.Output, pipeline.DefaultOutput))
	if changed("workers") {
		p.Workers = opts.workers
	}
	if changed("tolerance") {
		p.Tolerance = opts.tolerance
		if opts.tolerance <= 0 {
			p.Tolerance = pipeline.NoSimplify
		}
	}
	if changed("precision") {
		if opts.precision == 0 {
			return p, verrors.New(verrors.ErrCodeInvalidConfig, "--precision 0 would round to whole degrees; use a negative value to keep full precision")
		}
		p.Precision = opts.precision
	}
	if changed("size-limit") {
		p.SizeLimit = opts.sizeLimit
	}
	if changed("min-overlap") {
		p.MinOverlap = opts.minOverlap
	}
	if changed("strategy") {
		p.Strategy = match.Strategy(opts.strategy)
	}
	if changed("classes") {
		p.Classes = opts.classes
	}
	if changed("method") {
		p.Method = classify.Method(opts.method)
	}
	p.Refresh = opts.refresh
	return p, nil
}

// progressHooks counts finished departments into a spinner.
type progressHooks struct {
	observability.NoopPipelineHooks
	spinner *Spinner
	total   int
	done    atomic.Int32
	failed  atomic.Int32
}

func (h *progressHooks) OnDepartmentComplete(_ context.Context, department, status string, _ int, _ time.Duration) {
	n := h.done.Add(1)
	if status == string(report.StatusFailed) {
		h.failed.Add(1)
	}
	h.spinner.Update("Transformed %d/%d departments (%d failed, last %s)...", n, h.total, h.failed.Load(), department)
}
