package models

import "github.com/shopspring/decimal"

// SumAmounts adds up transaction amounts of the given kind; an empty kind sums everything.
func SumAmounts(txs []StoredTransaction, kind TransactionKind) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if kind != "" && tx.Kind != kind {
			continue
		}
		total = total.Add(tx.Amount)
	}
	return total
}

// RoundHalfUp rounds d to an integer with halves going towards positive infinity.
func RoundHalfUp(d decimal.Decimal) int64 {
	return d.Add(decimal.NewFromFloat(0.5)).Floor().IntPart()
}

// PercentChange returns round((current-previous)/previous*100). previous must be nonzero.
func PercentChange(current, previous decimal.Decimal) int64 {
	return RoundHalfUp(current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)))
}

// PercentOf returns round(part/whole*100). whole must be nonzero.
func PercentOf(part, whole decimal.Decimal) int64 {
	return RoundHalfUp(part.Div(whole).Mul(decimal.NewFromInt(100)))
}
