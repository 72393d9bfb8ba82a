package recurring

import (
	"math"

	"fjacquet/statement-ledger/internal/models"
)

// band is the acceptance window for one frequency.
type band struct {
	frequency    models.Frequency
	minGap       float64
	maxGap       float64
	maxDeviation float64
	minCount     int
}

// bands are checked in order; the first match wins.
var bands = []band{
	{frequency: models.FrequencyWeekly, minGap: 5, maxGap: 9, maxDeviation: 3, minCount: 4},
	{frequency: models.FrequencyMonthly, minGap: 23, maxGap: 37, maxDeviation: 7, minCount: 3},
	{frequency: models.FrequencyYearly, minGap: 345, maxGap: 385, maxDeviation: 20, minCount: 2},
}

// GapStats summarizes the day gaps between consecutive occurrences.
type GapStats struct {
	AvgGap       float64
	MaxDeviation float64
}

// Stats computes the mean gap and the largest absolute deviation from it.
func Stats(gaps []int) GapStats {
	if len(gaps) == 0 {
		return GapStats{}
	}
	sum := 0
	for _, g := range gaps {
		sum += g
	}
	avg := float64(sum) / float64(len(gaps))

	maxDev := 0.0
	for _, g := range gaps {
		maxDev = math.Max(maxDev, math.Abs(float64(g)-avg))
	}
	return GapStats{AvgGap: avg, MaxDeviation: maxDev}
}

// Classify returns the frequency of a merchant seen count times with the given gaps.
func Classify(gaps []int, count int) (models.Frequency, bool) {
	if count < 2 || len(gaps) == 0 {
		return "", false
	}
	st := Stats(gaps)
	for _, b := range bands {
		if st.AvgGap >= b.minGap && st.AvgGap <= b.maxGap && st.MaxDeviation <= b.maxDeviation && count >= b.minCount {
			return b.frequency, true
		}
	}
	return "", false
}
