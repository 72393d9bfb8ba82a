// Package tx handles manual transaction commands
package tx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/ledger"
	"fjacquet/statement-ledger/internal/models"
)

// Flags holds the values of the add and update flags.
type Flags struct {
	AccountID   string
	CategoryID  string
	Kind        string
	Amount      string
	Currency    string
	Description string
	Merchant    string
	Notes       string
	Tags        []string
	Date        string
}

var flags Flags

// Cmd represents the tx command
var Cmd = &cobra.Command{
	Use:   "tx",
	Short: "Add, show and edit ledger transactions",
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction by hand",
	Long: `Record a transaction by hand. Without --category the keyword rules pick one;
without --currency the account's currency is used.`,
	Args: cobra.NoArgs,
	RunE: addFunc,
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  showFunc,
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Edit a transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  updateFunc,
}

func init() {
	addCmd.Flags().StringVarP(&flags.AccountID, "account", "a", "", "Account ID")
	_ = addCmd.MarkFlagRequired("account")

	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().StringVar(&flags.CategoryID, "category", "", "Category ID")
		c.Flags().StringVarP(&flags.Kind, "type", "t", string(models.KindDebit), "debit or credit")
		c.Flags().StringVar(&flags.Amount, "amount", "", "Positive amount")
		c.Flags().StringVar(&flags.Currency, "currency", "", "Currency code")
		c.Flags().StringVarP(&flags.Description, "description", "d", "", "Description")
		c.Flags().StringVarP(&flags.Merchant, "merchant", "m", "", "Merchant")
		c.Flags().StringVar(&flags.Notes, "notes", "", "Notes")
		c.Flags().StringSliceVar(&flags.Tags, "tag", nil, "Tag, repeatable")
		c.Flags().StringVar(&flags.Date, "date", "", "Date, YYYY-MM-DD")
	}
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("description")
	_ = addCmd.MarkFlagRequired("date")

	Cmd.AddCommand(addCmd, showCmd, updateCmd)
}

func addFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	in, err := flags.newTransaction()
	if err != nil {
		return err
	}
	stored, err := c.GetLedger().Add(root.Context(cmd), userID, in)
	if err != nil {
		return err
	}
	return root.PrintJSON(cmd.OutOrStdout(), stored)
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

	stored, err := c.GetLedger().Get(root.Context(cmd), userID, args[0])
	if err != nil {
		return err
	}
	return root.PrintJSON(cmd.OutOrStdout(), stored)
}

func updateFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	upd, err := flags.update(func(name string) bool { return cmd.Flags().Changed(name) })
	if err != nil {
		return err
	}
	stored, err := c.GetLedger().Update(root.Context(cmd), userID, args[0], upd)
	if err != nil {
		return err
	}
	return root.PrintJSON(cmd.OutOrStdout(), stored)
}

func (f Flags) newTransaction() (ledger.NewTransaction, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(f.Amount))
	if err != nil {
		return ledger.NewTransaction{}, fmt.Errorf("invalid amount %q: %w", f.Amount, err)
	}
	date, err := dateutils.ParseISODate(f.Date)
	if err != nil {
		return ledger.NewTransaction{}, fmt.Errorf("invalid date %q: %w", f.Date, err)
	}
	return ledger.NewTransaction{
		AccountID:   f.AccountID,
		CategoryID:  f.CategoryID,
		Kind:        models.TransactionKind(f.Kind),
		Amount:      amount,
		Currency:    f.Currency,
		Description: f.Description,
		Merchant:    f.Merchant,
		Notes:       f.Notes,
		Tags:        f.Tags,
		Date:        date,
	}, nil
}

// update builds a TransactionUpdate from the flags that were set.
func (f Flags) update(changed func(string) bool) (ledger.TransactionUpdate, error) {
	var upd ledger.TransactionUpdate
	if changed("category") {
		upd.CategoryID = &f.CategoryID
	}
	if changed("type") {
		kind := models.TransactionKind(f.Kind)
		upd.Kind = &kind
	}
	if changed("amount") {
		amount, err := decimal.NewFromString(strings.TrimSpace(f.Amount))
		if err != nil {
			return upd, fmt.Errorf("invalid amount %q: %w", f.Amount, err)
		}
		upd.Amount = &amount
	}
	if changed("currency") {
		upd.Currency = &f.Currency
	}
	if changed("description") {
		upd.Description = &f.Description
	}
	if changed("merchant") {
		upd.Merchant = &f.Merchant
	}
	if changed("notes") {
		upd.Notes = &f.Notes
	}
	if changed("tag") {
		tags := f.Tags
		upd.Tags = &tags
	}
	if changed("date") {
		date, err := dateutils.ParseISODate(f.Date)
		if err != nil {
			return upd, fmt.Errorf("invalid date %q: %w", f.Date, err)
		}
		upd.Date = &date
	}
	return upd, nil
}
