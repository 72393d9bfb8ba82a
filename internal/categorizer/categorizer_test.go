package categorizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
	"fjacquet/statement-ledger/internal/store"
)

type failingSource struct{}

func (failingSource) ListRules(context.Context, string) ([]models.CategorizationRule, error) {
	return nil, errors.New("disk on fire")
}

func seeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.CreateCategory(ctx, models.Category{ID: "transport", Name: "Transport"}))
	require.NoError(t, s.CreateCategory(ctx, models.Category{ID: "food", Name: "Food", OwnerID: "user1"}))
	require.NoError(t, s.CreateRule(ctx, models.CategorizationRule{ID: "default:transport:uber", Keyword: "uber", CategoryID: "transport", Priority: 10}))
	require.NoError(t, s.CreateRule(ctx, models.CategorizationRule{ID: "u1", Keyword: "uber eats", CategoryID: "food", Priority: 10, OwnerID: "user1"}))
	return s
}

func TestEngine_Match(t *testing.T) {
	logger := logging.NewMockLogger()
	engine := NewEngine(seeded(t), logger)
	ctx := context.Background()

	cat, found, err := engine.Match(ctx, "user1", "Paid UBER EATS ride")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "food", cat)

	cat, found, err = engine.Match(ctx, "user2", "Paid UBER EATS ride")
	require.NoError(t, err)
	assert.True(t, found, "other users only see system rules")
	assert.Equal(t, "transport", cat)

	_, found, err = engine.Match(ctx, "user1", "Coffee shop")
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, logger.HasEntry("DEBUG", "Text categorized by keyword rule"))
}

func TestEngine_StoreFailure(t *testing.T) {
	engine := NewEngine(failingSource{}, nil)
	_, _, err := engine.Match(context.Background(), "user1", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, parsererror.ErrStoreUnavailable)
}
