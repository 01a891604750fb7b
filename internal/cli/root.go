package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/votemap/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The logger is attached to every command's context before it runs, so
// subcommands read it with loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "votemap turns Uruguayan election results into map-ready artifacts",
		Long: `votemap aggregates the electoral court's vote CSVs per list and zone,
normalizes department boundary files, matches CSV zones to polygons and
publishes JSON artifacts for the choropleth viewer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to votemap.toml (default $VOTEMAP_CONFIG or ./votemap.toml)")

	// Register all subcommands
	root.AddCommand(c.transformCommand())
	root.AddCommand(c.simplifyCommand())
	root.AddCommand(c.matchCommand())
	root.AddCommand(c.breaksCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
