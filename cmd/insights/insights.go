// Package insights handles the monthly insight cards command
package insights

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/dateutils"
)

var (
	month  string
	asJSON bool
)

// Cmd represents the insights command
var Cmd = &cobra.Command{
	Use:   "insights",
	Short: "Show insight cards for a month",
	Long: `Compare a month's spending with the month before and report category spikes,
new merchants, budget overruns and recurring charges that are due soon.`,
	Args: cobra.NoArgs,
	RunE: insightsFunc,
}

func init() {
	Cmd.Flags().StringVarP(&month, "month", "m", "", "Month as YYYY-MM (default: current month)")
	Cmd.Flags().BoolVar(&asJSON, "json", false, "Print the cards as JSON")
}

func insightsFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	m := dateutils.StartOfMonth(time.Now().UTC())
	if month != "" {
		if m, err = dateutils.ParseMonth(month); err != nil {
			return fmt.Errorf("invalid month %q: %w", month, err)
		}
	}

	cards, err := c.GetInsights().Generate(root.Context(cmd), userID, m)
	if err != nil {
		return err
	}
	if asJSON {
		return root.PrintJSON(cmd.OutOrStdout(), cards)
	}
	out := cmd.OutOrStdout()
	for _, card := range cards {
		fmt.Fprintf(out, "[%s] %s\n    %s\n", card.Severity, card.Title, card.Description)
	}
	return nil
}
