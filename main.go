package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/statement-ledger/cmd/account"
	"fjacquet/statement-ledger/cmd/budget"
	"fjacquet/statement-ledger/cmd/export"
	"fjacquet/statement-ledger/cmd/imports"
	"fjacquet/statement-ledger/cmd/insights"
	"fjacquet/statement-ledger/cmd/recurring"
	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/cmd/rules"
	"fjacquet/statement-ledger/cmd/tx"
	"fjacquet/statement-ledger/internal/config"
)

func init() {
	// .env values become LEDGER_* overrides before viper reads the environment.
	_, _ = config.LoadEnv()

	root.Init()

	root.Cmd.AddCommand(account.Cmd)
	root.Cmd.AddCommand(imports.Cmd)
	root.Cmd.AddCommand(tx.Cmd)
	root.Cmd.AddCommand(rules.Cmd)
	root.Cmd.AddCommand(recurring.Cmd)
	root.Cmd.AddCommand(budget.Cmd)
	root.Cmd.AddCommand(insights.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
