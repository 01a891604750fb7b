package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/votemap/pkg/classify"
	verrors "github.com/matzehuels/votemap/pkg/errors"
	"github.com/matzehuels/votemap/pkg/votes"
)

// breaksOpts holds breaks command flags.
type breaksOpts struct {
	lists   []string
	method  string
	classes int
}

// breaksCommand creates the breaks command.
func (c *CLI) breaksCommand() *cobra.Command {
	opts := breaksOpts{}

	cmd := &cobra.Command{
		Use:   "breaks <odn.json>",
		Short: "Compute choropleth class breaks for lists of a vote artifact",
		Long: `Breaks recomputes the class breaks of one or more lists from a published
vote artifact (odn.json or odd.json), showing how many zones fall in each
palette class. Use it to compare classification methods before changing
the [transform] defaults.`,
		Example: `  votemap breaks out/montevideo/odn.json --list 609 --method quantile --classes 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBreaks(args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.lists, "list", "l", nil, "list identifiers (HOJA); default: all")
	f.StringVar(&opts.method, "method", string(classify.Jenks), "classification method: jenks, quantile or equal")
	f.IntVar(&opts.classes, "classes", classify.DefaultClasses, "number of classes")

	return cmd
}

func (c *CLI) runBreaks(path string, opts breaksOpts) error {
	method, err := classify.ParseMethod(opts.method)
	if err != nil {
		return err
	}
	if opts.classes < 1 || opts.classes > len(classify.DefaultPalette)-1 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "classes must be within [1, %d], got %d", len(classify.DefaultPalette)-1, opts.classes)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := votes.ReadDocument(f)
	if err != nil {
		return verrors.Wrap(verrors.ErrCodeInvalidInput, err, "%s", path)
	}

	lists := opts.lists
	if len(lists) == 0 {
		lists = doc.VotosPorListas.Keys()
	}
	printInfo("%s · %s ballot · %s, %d classes", doc.Department, doc.Ballot, method, opts.classes)

	for _, list := range lists {
		values, err := doc.ZoneValues(list)
		if err != nil {
			return verrors.Wrap(verrors.ErrCodeInvalidInput, err, "%s", path)
		}
		scale, err := classify.NewScale(values, opts.classes, method, nil)
		if errors.Is(err, classify.ErrNoData) {
			printWarning("list %s: no zone with votes", list)
			continue
		}
		if err != nil {
			return err
		}
		printScale(list, scale, values)
	}
	return nil
}

// printScale prints the breaks of one list with a palette swatch and the
// number of zones per class.
func printScale(list string, s *classify.Scale, values []float64) {
	counts := make([]int, len(s.Palette))
	for _, v := range values {
		counts[s.Index(v)]++
	}

	fmt.Println(StyleTitle.Render("list " + list))
	for i := 0; i+1 < len(s.Breaks); i++ {
		idx := min(i+1, len(s.Palette)-1)
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(s.Palette[idx])).Render("  ")
		fmt.Printf("  %s %s – %s  %s\n", swatch,
			StyleNumber.Render(strconv.FormatFloat(s.Breaks[i], 'f', -1, 64)),
			StyleNumber.Render(strconv.FormatFloat(s.Breaks[i+1], 'f', -1, 64)),
			StyleDim.Render(fmt.Sprintf("%d zones", counts[idx])))
	}
	if counts[0] > 0 {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(s.Palette[0])).Render("  ")
		fmt.Printf("  %s %s\n", swatch, StyleDim.Render(fmt.Sprintf("no votes: %d zones", counts[0])))
	}
}
