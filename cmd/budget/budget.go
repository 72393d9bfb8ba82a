// Package budget handles monthly budget commands
package budget

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/store"
)

var month string

// Cmd represents the budget command
var Cmd = &cobra.Command{
	Use:   "budget",
	Short: "Set and list monthly category budgets",
}

var setCmd = &cobra.Command{
	Use:   "set CATEGORY_ID AMOUNT",
	Short: "Set the budget of a category for a month",
	Args:  cobra.ExactArgs(2),
	RunE:  setFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the budgets of a month",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

func init() {
	for _, c := range []*cobra.Command{setCmd, listCmd} {
		c.Flags().StringVarP(&month, "month", "m", "", "Month as YYYY-MM (default: current month)")
	}
	Cmd.AddCommand(setCmd, listCmd)
}

func resolveMonth() (time.Time, error) {
	if month == "" {
		return dateutils.StartOfMonth(time.Now().UTC()), nil
	}
	m, err := dateutils.ParseMonth(month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return m, nil
}

func setFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}
	m, err := resolveMonth()
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(args[1]))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}
	if !amount.IsPositive() {
		return errors.New("budget amount must be positive")
	}

	ctx := root.Context(cmd)
	if _, err := c.GetStore().GetCategory(ctx, userID, args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("category %s not found", args[0])
		}
		return parsererror.Store("get category", err)
	}

	b := models.Budget{
		ID:         uuid.NewString(),
		UserID:     userID,
		CategoryID: args[0],
		Amount:     amount,
		Month:      m,
	}
	if err := c.GetStore().SaveBudget(ctx, b); err != nil {
		return parsererror.Store("save budget", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", args[0], dateutils.ToISODate(m)[:7], amount.StringFixed(2))
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
	m, err := resolveMonth()
	if err != nil {
		return err
	}

	budgets, err := c.GetStore().ListBudgets(root.Context(cmd), userID, m)
	if err != nil {
		return parsererror.Store("list budgets", err)
	}
	out := cmd.OutOrStdout()
	for _, b := range budgets {
		fmt.Fprintf(out, "%s\t%s\t%s\n", b.CategoryID, b.CategoryName, b.Amount.StringFixed(2))
	}
	return nil
}
