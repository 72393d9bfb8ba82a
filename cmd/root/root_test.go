package root_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/cmd/root"
	"fjacquet/statement-ledger/internal/config"
)

func init() {
	root.Init()
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ledger", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "bank statements")
	assert.Contains(t, root.Cmd.Long, "duplicate detection")
	assert.NotNil(t, root.Cmd.Run)
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
	assert.NotNil(t, root.Cmd.PersistentPostRun)
}

func TestRootCommand_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
	}{
		{"config", "c"},
		{"user", "u"},
		{"log-level", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := root.Cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, "", flag.DefValue)
		})
	}
}

func TestUserID(t *testing.T) {
	originalFlags := root.SharedFlags
	originalConfig := root.AppConfig
	defer func() {
		root.SharedFlags = originalFlags
		root.AppConfig = originalConfig
	}()

	root.SharedFlags.UserID = ""
	root.AppConfig = nil
	_, err := root.UserID()
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Import.UserID = "from-config"
	root.AppConfig = cfg
	id, err := root.UserID()
	require.NoError(t, err)
	assert.Equal(t, "from-config", id)

	root.SharedFlags.UserID = "from-flag"
	id, err = root.UserID()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", id)
}

func TestServices_RequiresContainer(t *testing.T) {
	original := root.AppContainer
	defer func() { root.AppContainer = original }()

	root.AppContainer = nil
	c, err := root.Services()
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "container not initialized")
}

func TestRootCommand_PersistentPreRunE_BuildsContainer(t *testing.T) {
	originalFlags := root.SharedFlags
	defer func() {
		root.SharedFlags = originalFlags
		root.Cmd.PersistentPostRun(root.Cmd, nil)
		root.AppConfig = nil
	}()

	t.Setenv("LEDGER_STORE_DRIVER", "memory")
	t.Setenv("LEDGER_FILESTORE_DIRECTORY", t.TempDir())
	root.SharedFlags.LogLevel = "error"

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, root.Cmd.PersistentPreRunE(cmd, nil))
	require.NotNil(t, root.GetContainer())
	assert.Equal(t, "memory", root.GetConfig().Store.Driver)
	assert.Equal(t, "error", root.GetConfig().Log.Level)
}

func TestRootCommand_PersistentPostRun_NilContainer(t *testing.T) {
	original := root.AppContainer
	defer func() { root.AppContainer = original }()

	root.AppContainer = nil
	assert.NotPanics(t, func() {
		root.Cmd.PersistentPostRun(&cobra.Command{}, nil)
	})
}

func TestContext_DefaultsToBackground(t *testing.T) {
	assert.NotNil(t, root.Context(&cobra.Command{}))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, root.PrintJSON(&buf, map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}

func TestGetLogrusAdapter(t *testing.T) {
	assert.NotNil(t, root.GetLogrusAdapter())
}
