// Package recurring handles recurring charge detection commands
package recurring

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/models"
)

var dryRun bool

// Cmd represents the recurring command
var Cmd = &cobra.Command{
	Use:   "recurring",
	Short: "Detect and list recurring charges",
	Long: `Detect merchants charged on a weekly, monthly or yearly rhythm over the last
months of debits, and list the patterns saved by earlier runs.`,
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan recent debits and save the recurring patterns found",
	Args:  cobra.NoArgs,
	RunE:  detectFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved recurring patterns",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

func init() {
	detectCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the patterns without saving them")
	Cmd.AddCommand(detectCmd, listCmd)
}

func detectFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	ctx := root.Context(cmd)
	var patterns []models.RecurringPattern
	if dryRun {
		patterns, err = c.GetDetector().Detect(ctx, userID)
	} else {
		patterns, err = c.GetDetector().Run(ctx, userID)
	}
	if err != nil {
		return err
	}
	printPatterns(cmd.OutOrStdout(), patterns)
	return nil
}

func listFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	patterns, err := c.GetDetector().ListPatterns(root.Context(cmd), userID)
	if err != nil {
		return err
	}
	printPatterns(cmd.OutOrStdout(), patterns)
	return nil
}

func printPatterns(w io.Writer, patterns []models.RecurringPattern) {
	for _, p := range patterns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d charges\tlast %s\n",
			p.Merchant, p.Frequency, p.AverageAmount.StringFixed(2), p.OccurrenceCount, dateutils.ToISODate(p.LastSeen))
	}
}
