package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/config"
	"fjacquet/statement-ledger/internal/container"
	"fjacquet/statement-ledger/internal/ledger"
	"fjacquet/statement-ledger/internal/models"
)

func setup(t *testing.T) *container.Container {
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
		accountID, from, to, output = "", "", "", ""
	})

	require.NoError(t, c.GetStore().CreateAccount(ctx, models.Account{ID: "acc1", UserID: "user1", Name: "Main", Kind: models.AccountBank}))
	for i, desc := range []string{"Rent", "Coffee, large"} {
		_, err := c.GetLedger().Add(ctx, "user1", ledger.NewTransaction{
			AccountID:   "acc1",
			CategoryID:  "groceries",
			Kind:        models.KindDebit,
			Amount:      decimal.NewFromInt(int64(100 * (i + 1))),
			Description: desc,
			Date:        time.Date(2024, time.March, 1+i, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	return c
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetErr(&out)
	Cmd.SetArgs(args)
	err := Cmd.Execute()
	return out.String(), err
}

func TestExportCommand_Flags(t *testing.T) {
	assert.Equal(t, "export", Cmd.Use)
	assert.NotNil(t, Cmd.RunE)
	for _, name := range []string{"account", "from", "to", "output"} {
		assert.NotNil(t, Cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", Cmd.Flags().Lookup("output").Shorthand)
}

func TestExportCommand_Stdout(t *testing.T) {
	setup(t)

	out, err := run()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, ledger.ExportHeader, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `2024-03-02,"Coffee, large",200.00,debit`), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2024-03-01,Rent,100.00,debit"), lines[2])
}

func TestExportCommand_DateFilterToFile(t *testing.T) {
	setup(t)
	file := filepath.Join(t.TempDir(), "out.csv")

	_, err := run("--from", "2024-03-02", "--to", "2024-03-31", "--output", file)
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 2, "no trailing newline in files")
	assert.Contains(t, lines[1], "Coffee, large")
}

func TestExportCommand_InvalidDate(t *testing.T) {
	setup(t)

	_, err := run("--from", "01/03/2024")
	assert.ErrorContains(t, err, "invalid --from")
}
