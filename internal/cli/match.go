package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/votemap/pkg/artifact"
	"github.com/matzehuels/votemap/pkg/config"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/match"
	"github.com/matzehuels/votemap/pkg/pipeline"
)

// matchOpts holds match command flags.
type matchOpts struct {
	csv        string
	geojson    string
	series     string
	lookup     string
	lookupFrom string
	lookupTo   string
	zoneKeys   []string
	minOverlap float64
	strategy   string
	output     string
	noCache    bool
}

// matchCommand creates the match command.
func (c *CLI) matchCommand() *cobra.Command {
	opts := matchOpts{}

	cmd := &cobra.Command{
		Use:   "match [department]",
		Short: "Match CSV zones to boundary polygons",
		Long: `Match reconciles the zone names of a vote CSV with the polygon names of a
boundary file: exact names first, then spatial overlap with electoral
polygons, then the circuit to series chain. Nothing is published; the
mapping is printed and optionally written with --output.

With a department argument its inputs come from votemap.toml and any file
flag replaces the configured one.`,
		Example: `  votemap match montevideo
  votemap match --csv odn.csv --geojson barrios.geojson --series series.geojson --min-overlap 0.5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMatch(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.csv, "csv", "", "vote CSV (ODN)")
	f.StringVar(&opts.geojson, "geojson", "", "boundary GeoJSON with named zones")
	f.StringVar(&opts.series, "series", "", "electoral GeoJSON named by series code")
	f.StringVar(&opts.lookup, "lookup", "", "CSV relating CSV zones to series (default: the vote CSV)")
	f.StringVar(&opts.lookupFrom, "lookup-from", config.DefaultLookupFrom, "lookup key column")
	f.StringVar(&opts.lookupTo, "lookup-to", config.DefaultLookupTo, "lookup value column")
	f.StringSliceVar(&opts.zoneKeys, "zone-keys", nil, "zone-name property priority")
	f.Float64Var(&opts.minOverlap, "min-overlap", match.DefaultMinOverlap, "overlap fraction required for a spatial match")
	f.StringVar(&opts.strategy, "strategy", string(match.StrategyOverlap), "spatial match strategy: overlap or centroid")
	f.StringVarP(&opts.output, "output", "o", "", "write the zone mapping JSON to this file")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the geometry cache")

	return cmd
}

func (c *CLI) runMatch(cmd *cobra.Command, args []string, opts matchOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	dept, popts, err := c.matchTarget(cmd, args, opts)
	if err != nil {
		return err
	}
	popts.Logger = logger

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	res, err := runner.Match(ctx, dept, popts)
	if err != nil {
		return err
	}
	logger.Debug("matched", "department", dept.Code, "elapsed", prog.elapsed(), "cached", res.GeometryHit)

	m := res.Mapping
	printSuccess("Matched %d of %d CSV zones (%.1f%%)", m.Matched(), m.CSVZones, m.MatchRatePercent)
	printKeyValue("Department", dept.Code)
	printKeyValue("Geometry", cacheLabel(res.GeometryHit))
	printKeyValue("Methods", methodCounts(m))
	if len(m.UnmatchedCSV) > 0 {
		printWarning("%d CSV zones without polygon", len(m.UnmatchedCSV))
		printDetail("%s", strings.Join(m.UnmatchedCSV, ", "))
	}
	if len(m.UnmatchedGeo) > 0 {
		printWarning("%d polygons without votes", len(m.UnmatchedGeo))
		printDetail("%s", strings.Join(m.UnmatchedGeo, ", "))
	}
	for _, u := range m.UnresolvedChains {
		printWarning("%s via %s: %s", u.Zone, u.Via, u.Reason)
	}
	for _, w := range res.Warnings {
		logger.Debug("warning", "code", w.Code, "message", w.Message)
	}

	if opts.output != "" {
		if err := artifact.WriteJSON(opts.output, m, true); err != nil {
			return err
		}
		printFile(opts.output)
	}
	return nil
}

// matchTarget builds the department to match from the config entry named
// in args, overlaid with file flags.
func (c *CLI) matchTarget(cmd *cobra.Command, args []string, opts matchOpts) (config.Department, pipeline.Options, error) {
	var (
		dept  config.Department
		popts pipeline.Options
	)
	if len(args) == 1 {
		cfg, err := c.loadConfig()
		if err != nil {
			return dept, popts, err
		}
		d, ok := cfg.Department(args[0])
		if !ok {
			return dept, popts, verrors.New(verrors.ErrCodeInvalidConfig, "unknown department %q", args[0])
		}
		dept = d
		popts = pipeline.FromConfig(cfg)
	}

	flags := cmd.Flags()
	set := func(name, value string, dst *string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("csv", opts.csv, &dept.ODN)
	set("geojson", opts.geojson, &dept.GeoJSON)
	set("series", opts.series, &dept.SeriesGeoJSON)
	set("lookup", opts.lookup, &dept.Lookup)
	set("lookup-from", opts.lookupFrom, &dept.LookupFrom)
	set("lookup-to", opts.lookupTo, &dept.LookupTo)
	if flags.Changed("zone-keys") {
		dept.ZoneKeys = opts.zoneKeys
	}
	if flags.Changed("min-overlap") {
		dept.MinOverlap = 0
		popts.MinOverlap = opts.minOverlap
	}
	if flags.Changed("strategy") {
		popts.Strategy = match.Strategy(opts.strategy)
	}

	if dept.ODN == "" || dept.GeoJSON == "" {
		return dept, popts, verrors.New(verrors.ErrCodeInvalidInput, "a vote CSV and a boundary file are required (--csv, --geojson or a configured department)")
	}
	if dept.Code == "" {
		dept.Code = strings.TrimSuffix(filepath.Base(dept.GeoJSON), filepath.Ext(dept.GeoJSON))
	}
	dept.Resolve(".")
	return dept, popts, nil
}

// methodCounts summarizes matches per method, e.g. "exact 40 · spatial 3".
func methodCounts(m *match.Mapping) string {
	counts := make(map[match.Method]int)
	for _, mt := range m.Matches {
		counts[mt.Method]++
	}
	var parts []string
	for _, method := range []match.Method{match.MethodExact, match.MethodSpatial, match.MethodChain} {
		if n := counts[method]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", method, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " · ")
}
