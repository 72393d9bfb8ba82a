// Package rules handles categorization rule commands
package rules

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/categorizer"
)

var (
	categoryID string
	priority   int
	keyword    string
)

// Cmd represents the rules command
var Cmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage keyword categorization rules",
	Long: `Manage keyword categorization rules. Default rules apply to every user and are
read-only; user rules take precedence at equal priority.`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in match order",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

var addCmd = &cobra.Command{
	Use:   "add KEYWORD",
	Short: "Add a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  addFunc,
}

var updateCmd = &cobra.Command{
	Use:   "update RULE_ID",
	Short: "Change a rule's keyword or priority",
	Args:  cobra.ExactArgs(1),
	RunE:  updateFunc,
}

var deleteCmd = &cobra.Command{
	Use:   "delete RULE_ID",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteFunc,
}

var testCmd = &cobra.Command{
	Use:   "test TEXT",
	Short: "Show which category a text would get",
	Args:  cobra.MinimumNArgs(1),
	RunE:  testFunc,
}

func init() {
	addCmd.Flags().StringVar(&categoryID, "category", "", "Category ID")
	addCmd.Flags().IntVarP(&priority, "priority", "p", categorizer.DefaultPriority, "Priority, higher wins")
	_ = addCmd.MarkFlagRequired("category")

	updateCmd.Flags().StringVarP(&keyword, "keyword", "k", "", "New keyword")
	updateCmd.Flags().IntVarP(&priority, "priority", "p", categorizer.DefaultPriority, "New priority")

	Cmd.AddCommand(listCmd, addCmd, updateCmd, deleteCmd, testCmd)
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

	rules, err := c.GetRuleManager().List(root.Context(cmd), userID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range rules {
		owner := "user"
		if r.IsDefault() {
			owner = "default"
		}
		fmt.Fprintf(out, "%s\t%d\t%s\t%s\t%s\n", r.ID, r.Priority, owner, r.Keyword, r.CategoryID)
	}
	return nil
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

	p := priority
	rule, err := c.GetRuleManager().Add(root.Context(cmd), userID, args[0], categoryID, &p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rule.ID)
	return nil
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

	var upd categorizer.RuleUpdate
	if cmd.Flags().Changed("keyword") {
		kw := keyword
		upd.Keyword = &kw
	}
	if cmd.Flags().Changed("priority") {
		p := priority
		upd.Priority = &p
	}
	if upd.Keyword == nil && upd.Priority == nil {
		return fmt.Errorf("nothing to update: pass --keyword or --priority")
	}

	rule, err := c.GetRuleManager().Update(root.Context(cmd), userID, args[0], upd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%s\n", rule.ID, rule.Priority, rule.Keyword, rule.CategoryID)
	return nil
}

func deleteFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}
	return c.GetRuleManager().Delete(root.Context(cmd), userID, args[0])
}

func testFunc(cmd *cobra.Command, args []string) error {
	c, err := root.Services()
	if err != nil {
		return err
	}
	userID, err := root.UserID()
	if err != nil {
		return err
	}

	matched, found, err := c.GetCategorizer().Match(root.Context(cmd), userID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "no match")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), matched)
	return nil
}
