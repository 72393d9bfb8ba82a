// Package export handles the ledger CSV export command
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/ledger"
	"fjacquet/statement-ledger/internal/models"
)

var (
	accountID string
	from      string
	to        string
	output    string
)

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger transactions as CSV",
	Long:  `Export ledger transactions as CSV, newest first, optionally limited to one account and a date range.`,
	Args:  cobra.NoArgs,
	RunE:  exportFunc,
}

func init() {
	Cmd.Flags().StringVarP(&accountID, "account", "a", "", "Only this account")
	Cmd.Flags().StringVar(&from, "from", "", "First date, YYYY-MM-DD")
	Cmd.Flags().StringVar(&to, "to", "", "Last date, YYYY-MM-DD")
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
}

func exportFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	filter := ledger.ExportFilter{AccountID: accountID}
	if from != "" {
		if filter.From, err = dateutils.ParseISODate(from); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if filter.To, err = dateutils.ParseISODate(to); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, models.PermissionDataFile)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	n, err := c.GetLedger().Export(root.Context(cmd), w, userID, filter)
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Fprintln(w)
	}
	root.Log.Infof("Exported %d transactions", n)
	return nil
}
