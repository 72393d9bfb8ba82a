package recurring

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/config"
	"fjacquet/statement-ledger/internal/container"
	"fjacquet/statement-ledger/internal/dateutils"
	"fjacquet/statement-ledger/internal/ledger"
	"fjacquet/statement-ledger/internal/models"
)

func setup(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Store.Driver = "memory"
	cfg.FileStore.Directory = t.TempDir()

	c, err := container.NewContainer(ctx, cfg)
	require.NoError(t, err)
	root.AppConfig = cfg
	root.AppContainer = c
	root.SharedFlags.UserID = "user1"
	t.Cleanup(func() {
		_ = c.Close()
		root.AppConfig = nil
		root.AppContainer = nil
		root.SharedFlags.UserID = ""
		dryRun = false
	})

	require.NoError(t, c.GetStore().CreateAccount(ctx, models.Account{ID: "acc1", UserID: "user1", Name: "Main", Kind: models.AccountBank}))
	today := dateutils.Day(time.Now().UTC())
	for _, daysAgo := range []int{90, 60, 30} {
		_, err := c.GetLedger().Add(ctx, "user1", ledger.NewTransaction{
			AccountID:   "acc1",
			Kind:        models.KindDebit,
			Amount:      decimal.RequireFromString("65"),
			Description: "NETFLIX.COM",
			Merchant:    "Netflix",
			Date:        today.AddDate(0, 0, -daysAgo),
		})
		require.NoError(t, err)
	}
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetErr(&out)
	Cmd.SetArgs(args)
	err := Cmd.Execute()
	return out.String(), err
}

func TestRecurringCommand_Structure(t *testing.T) {
	assert.Equal(t, "recurring", Cmd.Use)
	assert.NotNil(t, detectCmd.RunE)
	assert.NotNil(t, listCmd.RunE)

	f := detectCmd.Flags().Lookup("dry-run")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
	assert.Nil(t, listCmd.Flags().Lookup("dry-run"))
}

func TestRecurringCommand_DryRunDoesNotSave(t *testing.T) {
	setup(t)

	out, err := run("detect", "--dry-run")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "NETFLIX\tmonthly\t65.00\t3 charges\tlast "), out)

	out, err = run("list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRecurringCommand_DetectSaves(t *testing.T) {
	setup(t)

	_, err := run("detect")
	require.NoError(t, err)

	out, err := run("list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "NETFLIX\tmonthly")
}
