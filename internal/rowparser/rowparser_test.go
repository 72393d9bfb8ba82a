package rowparser

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
	"fjacquet/statement-ledger/internal/parsererror"
)

func parseAll(t *testing.T, input string) []models.CandidateRow {
	t.Helper()
	seq, err := New(logging.NewMockLogger()).Parse([]byte(input))
	require.NoError(t, err)
	rows, err := Collect(seq)
	require.NoError(t, err)
	return rows
}

func TestParse_FullRow(t *testing.T) {
	input := "date,description,amount,type,merchant,notes,tags\n" +
		"05/03/2024, Coffee Shop ,\"12,50\",Debit, Café Central ,  , \"food, ,morning\"\n"

	rows := parseAll(t, input)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, "Coffee Shop", row.Description)
	assert.True(t, decimal.RequireFromString("12.5").Equal(row.Amount))
	assert.Equal(t, models.KindDebit, row.Kind)
	assert.Equal(t, "Café Central", row.Merchant)
	assert.Empty(t, row.Notes)
	assert.Equal(t, []string{"food", "morning"}, row.Tags)
}

func TestParse_HeaderCaseAndOrder(t *testing.T) {
	input := " Type ,AMOUNT,Description,Date\n" +
		"income,1500,Salary,2024-03-01\n"

	rows := parseAll(t, input)
	require.Len(t, rows, 1)
	assert.Equal(t, models.KindCredit, rows[0].Kind)
	assert.Equal(t, "Salary", rows[0].Description)
	assert.Empty(t, rows[0].Merchant)
	assert.Nil(t, rows[0].Tags)
}

func TestParse_Dates(t *testing.T) {
	input := "date,description,amount,type\n" +
		"05/03/2024,a,1,debit\n" +
		"2024-03-05,b,1,debit\n" +
		"05-03-2024,c,1,debit\n" +
		"2024-03,d,1,debit\n" +
		"31/02/2024,e,1,debit\n"

	rows := parseAll(t, input)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, "2024-03-05", row.DateString())
	}
}

func TestParse_Amounts(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "12,50", want: "12.5"},
		{amount: "100", want: "100"},
		{amount: "0.01", want: "0.01"},
		{amount: "0"},
		{amount: "-5"},
		{amount: "abc"},
		{amount: ""},
		{amount: "1,2,3"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			rows := parseAll(t, "date,description,amount,type\n2024-01-01,x,\""+tt.amount+"\",debit\n")
			if tt.want == "" {
				assert.Empty(t, rows)
				return
			}
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0].Amount.String())
		})
	}
}

func TestParseKind(t *testing.T) {
	debits := []string{"debit", "EXPENSE", "Sortie", "out", "-"}
	credits := []string{"credit", "Income", "ENTREE", "in", "+"}

	for _, s := range debits {
		kind, ok := ParseKind(s)
		assert.True(t, ok, s)
		assert.Equal(t, models.KindDebit, kind, s)
	}
	for _, s := range credits {
		kind, ok := ParseKind(s)
		assert.True(t, ok, s)
		assert.Equal(t, models.KindCredit, kind, s)
	}
	_, ok := ParseKind("transfer")
	assert.False(t, ok)
}

func TestParse_RejectedRowsAreLogged(t *testing.T) {
	logger := logging.NewMockLogger()
	input := "date,description,amount,type\n" +
		"2024-01-01,ok,5,debit\n" +
		"2024-01-02,no amount,,debit\n" +
		"2024-01-03,bad type,5,transfer\n"

	seq, err := New(logger).Parse([]byte(input))
	require.NoError(t, err)
	rows, err := Collect(seq)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Len(t, logger.EntriesByLevel("DEBUG"), 2)
}

func TestParse_EmptyDescriptionIsKept(t *testing.T) {
	rows := parseAll(t, "date,description,amount,type\n05/03/2024,,12,debit\n06/03/2024,   ,3,credit\n")

	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].Description)
	assert.True(t, decimal.RequireFromString("12").Equal(rows[0].Amount))
	assert.Equal(t, "", rows[1].Description)
	assert.Equal(t, models.KindCredit, rows[1].Kind)
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "invalid utf8", input: []byte("date,description,amount,type\n2024-01-01,\xff\xfe,1,debit\n")},
		{name: "empty input", input: []byte("")},
		{name: "missing amount column", input: []byte("date,description,type\n2024-01-01,x,debit\n")},
		{name: "broken header quoting", input: []byte("date,\"description,amount,type\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := New(nil).Parse(tt.input)
			assert.Nil(t, seq)
			assert.ErrorIs(t, err, parsererror.ErrMalformedInput)
		})
	}
}

func TestParse_MidStreamQuotingError(t *testing.T) {
	input := "date,description,amount,type\n" +
		"2024-01-01,first,1,debit\n" +
		"2024-01-02,bro\"ken,1,debit\n" +
		"2024-01-03,never,1,debit\n"

	seq, err := New(nil).Parse([]byte(input))
	require.NoError(t, err)

	var rows []models.CandidateRow
	var errs []error
	for row, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}

	assert.Len(t, rows, 1)
	require.Len(t, errs, 1)
	var malformed *parsererror.MalformedInputError
	assert.True(t, errors.As(errs[0], &malformed))

	_, err = Collect(func(yield func(models.CandidateRow, error) bool) { yield(models.CandidateRow{}, errs[0]) })
	assert.ErrorIs(t, err, parsererror.ErrMalformedInput)
}

func TestParse_SinglePass(t *testing.T) {
	seq, err := New(nil).Parse([]byte("date,description,amount,type\n2024-01-01,x,1,debit\n2024-01-02,y,2,credit\n"))
	require.NoError(t, err)

	first, err := Collect(seq)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := Collect(seq)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestParse_EarlyBreak(t *testing.T) {
	seq, err := New(nil).Parse([]byte("date,description,amount,type\n2024-01-01,x,1,debit\n2024-01-02,y,2,credit\n"))
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestParse_Semicolon(t *testing.T) {
	seq, err := New(nil, WithDelimiter(';')).Parse([]byte("date;description;amount;type\n01/02/2024;Rent;4500,00;sortie\n"))
	require.NoError(t, err)
	rows, err := Collect(seq)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "4500", rows[0].Amount.String())
}

func TestFromRecords(t *testing.T) {
	records := []Record{
		{Date: "2024-02-01", Description: "NETFLIX.COM", Amount: "99.00", Type: "debit", Merchant: "NETFLIX"},
		{Date: "2024-02-02", Description: "refund", Amount: "0", Type: "credit"},
		{Date: "02/02/2024", Description: "VIREMENT", Amount: "3000", Type: "credit"},
	}

	rows, err := Collect(New(nil).FromRecords(records))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "NETFLIX", rows[0].Merchant)
	assert.Equal(t, models.KindCredit, rows[1].Kind)
	assert.Equal(t, "2024-02-02", rows[1].DateString())
}
