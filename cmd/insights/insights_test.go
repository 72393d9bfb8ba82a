package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/config"
	"fjacquet/statement-ledger/internal/container"
	"fjacquet/statement-ledger/internal/models"
)

func setup(t *testing.T) {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Store.Driver = "memory"
	cfg.FileStore.Directory = t.TempDir()

	c, err := container.NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	root.AppConfig = cfg
	root.AppContainer = c
	root.SharedFlags.UserID = "user1"
	t.Cleanup(func() {
		_ = c.Close()
		root.AppConfig = nil
		root.AppContainer = nil
		root.SharedFlags.UserID = ""
		month = ""
		asJSON = false
	})
}

func run(args ...string) (string, error) {
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetErr(&out)
	Cmd.SetArgs(args)
	err := Cmd.Execute()
	return out.String(), err
}

func TestInsightsCommand_Flags(t *testing.T) {
	assert.Equal(t, "insights", Cmd.Use)
	assert.NotNil(t, Cmd.RunE)

	m := Cmd.Flags().Lookup("month")
	require.NotNil(t, m)
	assert.Equal(t, "m", m.Shorthand)

	j := Cmd.Flags().Lookup("json")
	require.NotNil(t, j)
	assert.Equal(t, "false", j.DefValue)
}

func TestInsightsCommand_EmptyMonthText(t *testing.T) {
	setup(t)

	out, err := run("--month", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "[info] No transactions yet this month\n"+
		"    Start tracking your expenses by adding transactions or importing a statement\n", out)
}

func TestInsightsCommand_JSON(t *testing.T) {
	setup(t)

	out, err := run("--month", "2024-03", "--json")
	require.NoError(t, err)

	var cards []models.InsightCard
	require.NoError(t, json.Unmarshal([]byte(out), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, models.InsightNoActivity, cards[0].Kind)
	assert.Equal(t, models.SeverityInfo, cards[0].Severity)
}

func TestInsightsCommand_InvalidMonth(t *testing.T) {
	setup(t)

	_, err := run("--month", "March")
	assert.ErrorContains(t, err, `invalid month "March"`)
}
