// Package account handles ledger account commands
package account

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/store"
)

var (
	kind     string
	currency string
)

// Cmd represents the account command
var Cmd = &cobra.Command{
	Use:   "account",
	Short: "Create and inspect ledger accounts",
}

var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create an account and print its ID",
	Args:  cobra.ExactArgs(1),
	RunE:  addFunc,
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an account",
	Args:  cobra.ExactArgs(1),
	RunE:  showFunc,
}

func init() {
	addCmd.Flags().StringVarP(&kind, "kind", "k", string(models.AccountBank), "bank, card or cash")
	addCmd.Flags().StringVar(&currency, "currency", models.DefaultCurrency, "Currency code")
	Cmd.AddCommand(addCmd, showCmd)
}

// NewAccount validates the inputs of "account add".
func NewAccount(userID, name, kind, currency string) (models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Account{}, errors.New("account name is required")
	}
	k := models.AccountKind(strings.ToLower(kind))
	switch k {
	case models.AccountBank, models.AccountCard, models.AccountCash:
	default:
		return models.Account{}, fmt.Errorf("invalid account kind %q", kind)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return models.Account{
		ID:       uuid.NewString(),
		UserID:   userID,
		Name:     name,
		Kind:     k,
		Currency: currency,
	}, nil
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

	acct, err := NewAccount(userID, args[0], kind, currency)
	if err != nil {
		return err
	}
	if err := c.GetStore().CreateAccount(root.Context(cmd), acct); err != nil {
		return parsererror.Store("create account", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), acct.ID)
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

	acct, err := c.GetStore().GetAccount(root.Context(cmd), userID, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("account %s not found", args[0])
	}
	if err != nil {
		return parsererror.Store("get account", err)
	}
	return root.PrintJSON(cmd.OutOrStdout(), acct)
}
