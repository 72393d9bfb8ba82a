package tx

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/internal/models"
)

func TestFlags_NewTransaction(t *testing.T) {
	f := Flags{
		AccountID:   "acc1",
		Kind:        "debit",
		Amount:      " 42.50 ",
		Description: "Taxi",
		Tags:        []string{"work"},
		Date:        "2024-03-10",
	}

	in, err := f.newTransaction()
	require.NoError(t, err)
	assert.Equal(t, "acc1", in.AccountID)
	assert.Equal(t, models.KindDebit, in.Kind)
	assert.True(t, decimal.RequireFromString("42.5").Equal(in.Amount))
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), in.Date)
	assert.Equal(t, []string{"work"}, in.Tags)
	assert.Empty(t, in.CategoryID)
}

func TestFlags_NewTransaction_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  string
	}{
		{"bad amount", Flags{Amount: "12,5", Date: "2024-03-10"}, "invalid amount"},
		{"bad date", Flags{Amount: "12.5", Date: "10/03/2024"}, "invalid date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.newTransaction()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFlags_Update_OnlyChangedFields(t *testing.T) {
	f := Flags{Notes: "refund expected", Amount: "10", Tags: []string{"a", "b"}}
	changed := map[string]bool{"notes": true, "tag": true}

	upd, err := f.update(func(name string) bool { return changed[name] })
	require.NoError(t, err)
	require.NotNil(t, upd.Notes)
	assert.Equal(t, "refund expected", *upd.Notes)
	require.NotNil(t, upd.Tags)
	assert.Equal(t, []string{"a", "b"}, *upd.Tags)
	assert.Nil(t, upd.Amount)
	assert.Nil(t, upd.CategoryID)
	assert.Nil(t, upd.Date)
	assert.Nil(t, upd.Kind)
}

func TestFlags_Update_ParsesValues(t *testing.T) {
	f := Flags{Amount: "99.99", Date: "2024-04-01", Kind: "credit"}
	changed := map[string]bool{"amount": true, "date": true, "type": true}

	upd, err := f.update(func(name string) bool { return changed[name] })
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("99.99").Equal(*upd.Amount))
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), *upd.Date)
	assert.Equal(t, models.KindCredit, *upd.Kind)

	f.Amount = "abc"
	_, err = f.update(func(name string) bool { return changed[name] })
	assert.ErrorContains(t, err, "invalid amount")
}

func TestTxCommand_Structure(t *testing.T) {
	assert.Equal(t, "tx", Cmd.Use)
	names := map[string]bool{}
	for _, c := range Cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["add"])
	assert.True(t, names["show"])
	assert.True(t, names["update"])
	assert.NotNil(t, addCmd.Flags().Lookup("account"))
	assert.Nil(t, updateCmd.Flags().Lookup("account"))
}
