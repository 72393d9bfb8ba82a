// Package imports handles the import preview and confirm commands
package imports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/importer"
	"fjacquet/statement-ledger/internal/models"
)

var (
	accountID  string
	year       int
	editedFile string
	limit      int
)

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Import CSV exports and bank statements",
	Long: `Import transactions in two steps. "csv" and "statement" parse a file into a
preview session with duplicates flagged; "confirm" writes the preview to the ledger.`,
}

var csvCmd = &cobra.Command{
	Use:   "csv FILE",
	Short: "Preview a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE:  csvFunc,
}

var statementCmd = &cobra.Command{
	Use:   "statement FILE",
	Short: "Preview a PDF bank statement through the parsing service",
	Args:  cobra.ExactArgs(1),
	RunE:  statementFunc,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm IMPORT_ID",
	Short: "Write a previewed session to the ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  confirmFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent import sessions",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

var showCmd = &cobra.Command{
	Use:   "show IMPORT_ID",
	Short: "Show an import session with its preview rows",
	Args:  cobra.ExactArgs(1),
	RunE:  showFunc,
}

func init() {
	for _, c := range []*cobra.Command{csvCmd, statementCmd} {
		c.Flags().StringVarP(&accountID, "account", "a", "", "Account the rows belong to")
		_ = c.MarkFlagRequired("account")
	}
	statementCmd.Flags().IntVar(&year, "year", time.Now().Year(), "Statement year, used for dates printed without one")
	confirmCmd.Flags().StringVar(&editedFile, "edited", "", "JSON file with the edited preview rows")
	listCmd.Flags().IntVarP(&limit, "limit", "n", importer.DefaultListLimit, "Maximum number of sessions")

	Cmd.AddCommand(csvCmd, statementCmd, confirmCmd, listCmd, showCmd)
}

func csvFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading %s: %w", args[0], err)
	}
	session, err := c.GetImporter().ImportCSV(root.Context(cmd), userID, accountID, data)
	if err != nil {
		return err
	}
	return printSession(cmd, session)
}

func statementFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading %s: %w", args[0], err)
	}
	session, err := c.GetImporter().ImportStatement(root.Context(cmd), userID, accountID, filepath.Base(args[0]), body, year)
	if err != nil {
		return err
	}
	return printSession(cmd, session)
}

func confirmFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	var edited []models.NormalizedTransaction
	if editedFile != "" {
		data, err := os.ReadFile(editedFile)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", editedFile, err)
		}
		if err := json.Unmarshal(data, &edited); err != nil {
			return fmt.Errorf("error parsing %s: %w", editedFile, err)
		}
		if edited == nil {
			edited = []models.NormalizedTransaction{}
		}
	}

	res, err := c.GetImporter().Confirm(root.Context(cmd), userID, args[0], edited)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, skipped %d\n", res.Inserted, res.Skipped)
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

	sessions, err := c.GetImporter().ListSessions(root.Context(cmd), userID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range sessions {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d rows\t%d duplicates\n",
			s.ID, s.CreatedAt.Format(time.RFC3339), s.Source, s.Status, s.TransactionCount, s.DuplicateCount)
	}
	return nil
}

func showFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	session, err := c.GetImporter().Session(root.Context(cmd), userID, args[0])
	if err != nil {
		return err
	}
	return root.PrintJSON(cmd.OutOrStdout(), session)
}

func printSession(cmd *cobra.Command, s models.ImportSession) error {
	root.Log.Infof("Import %s: %d rows, %d duplicates", s.ID, s.TransactionCount, s.DuplicateCount)
	return root.PrintJSON(cmd.OutOrStdout(), s)
}
