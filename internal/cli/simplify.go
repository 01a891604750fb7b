package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/votemap/pkg/artifact"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/geo"
	"github.com/matzehuels/votemap/pkg/geo/simplify"
	"github.com/matzehuels/votemap/pkg/pipeline"
)

// simplifyOpts holds simplify command flags.
type simplifyOpts struct {
	output     string
	tolerance  float64
	precision  int
	department string
	zoneKeys   []string
}

// simplifyCommand creates the simplify command.
func (c *CLI) simplifyCommand() *cobra.Command {
	opts := simplifyOpts{}

	cmd := &cobra.Command{
		Use:   "simplify <boundaries.geojson>",
		Short: "Simplify a boundary file and report the size reduction",
		Long: `Simplify normalizes a GeoJSON boundary file the way transform does and
writes the simplified map. Use it to find a tolerance that brings a large
department under the size limit before setting it in votemap.toml.`,
		Example: `  votemap simplify raw/montevideo/barrios.geojson --tolerance 0.0005 -o /tmp/montevideo_map.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSimplify(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: <input>_map.json)")
	f.Float64Var(&opts.tolerance, "tolerance", pipeline.DefaultTolerance, "simplification tolerance in degrees")
	f.IntVar(&opts.precision, "precision", geo.DefaultPrecision, "coordinate decimals kept (negative keeps all)")
	f.StringVar(&opts.department, "department", "", "department code recorded in the map (default: input name)")
	f.StringSliceVar(&opts.zoneKeys, "zone-keys", nil, "zone-name property priority")

	return cmd
}

func (c *CLI) runSimplify(cmd *cobra.Command, input string, opts simplifyOpts) error {
	logger := loggerFromContext(cmd.Context())
	if opts.tolerance < 0 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "tolerance cannot be negative, got %v", opts.tolerance)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	dept := opts.department
	if dept == "" {
		dept = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_map.json"
	}

	spinner := newSpinnerWithContext(cmd.Context(), "Simplifying "+filepath.Base(input)+"...")
	spinner.Start()

	prog := newProgress(logger)
	col, err := geo.Parse(data, dept, geo.Options{ZoneKeys: opts.zoneKeys, Precision: opts.precision})
	if err != nil {
		spinner.StopWithError("Parse failed")
		return err
	}
	out, stats, err := simplify.Collection(col, opts.tolerance)
	if err != nil {
		spinner.StopWithError("Simplification failed")
		return err
	}
	encoded, err := out.MarshalJSON()
	if err != nil {
		spinner.StopWithError("Encoding failed")
		return err
	}
	if err := artifact.WriteFile(output, encoded); err != nil {
		spinner.StopWithError("Write failed")
		return err
	}
	spinner.StopWithSuccess("Simplified " + filepath.Base(input))
	logger.Debug("simplified", "features", len(out.Features), "elapsed", prog.elapsed())

	printKeyValue("Tolerance", fmt.Sprintf("%g°", stats.Tolerance))
	printKeyValue("Vertices", fmt.Sprintf("%d → %d", stats.VerticesBefore, stats.VerticesAfter))
	printKeyValue("Size", fmt.Sprintf("%s → %s (-%.1f%%)", humanBytes(stats.BytesBefore), humanBytes(stats.BytesAfter), stats.Reduction()*100))
	if n := col.NullGeometries; n > 0 {
		printWarning("%d features without geometry were dropped", n)
	}
	if n := out.Unnamed(); n > 0 {
		printWarning("%d features have no zone name", n)
	}
	if limit := c.sizeLimit(); stats.BytesAfter > limit {
		printWarning("Still above the %s size limit; try a larger --tolerance", humanBytes(limit))
	}
	printFile(output)
	return nil
}

// sizeLimit returns [transform] size_limit from the config file, or the
// pipeline default when no config is available.
func (c *CLI) sizeLimit() int {
	cfg, err := c.loadConfig()
	if err != nil {
		c.Logger.Debug("using default size limit", "reason", err)
		return pipeline.DefaultSizeLimit
	}
	if cfg.Transform.SizeLimit <= 0 {
		return pipeline.DefaultSizeLimit
	}
	return cfg.Transform.SizeLimit
}

// humanBytes formats n as B, KiB or MiB.
func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
