package stats

import (
	"sort"
	"time"

	"github.com/siherrmann/diffuser/model"
	"gonum.org/v1/gonum/floats"
)

// Periods is the number of six-hour periods of a day
const Periods = 4

// Period returns the six-hour period (1-4) of t
func Period(t time.Time) int {
	return t.Hour()/6 + 1
}

// AttentionBin returns the four-hour bin (0-5) of t
func AttentionBin(t time.Time) int {
	return t.Hour() / 4
}

// Enrich computes the derived fields of the aggregate from its raw fields and
// returns it. Existing derived values are replaced, so enriching twice gives the
// same result.
func Enrich(agg *model.AccountAggregate) *model.AccountAggregate {
	all := agg.AllTimestamps()
	retweets := agg.Retweet.Timestamps

	agg.PeriodRatiosPosted = PeriodRatios(all, len(all))
	agg.PeriodRatiosRetweetedPosted = PeriodRatios(retweets, len(all))
	agg.PeriodRatiosRetweeted = PeriodRatios(retweets, len(retweets))
	agg.AttentionVector = AttentionVector(all)

	return agg
}

// PeriodRatios counts timestamps per six-hour period and divides by total.
// Only periods holding at least one timestamp are present. A zero total gives
// an empty result.
func PeriodRatios(timestamps []time.Time, total int) model.PeriodRatios {
	ratios := model.PeriodRatios{}
	if total == 0 {
		return ratios
	}

	counts := [Periods + 1]int{}
	for _, t := range timestamps {
		counts[Period(t)]++
	}
	for period := 1; period <= Periods; period++ {
		if counts[period] > 0 {
			ratios[period] = float64(counts[period]) / float64(total)
		}
	}

	return ratios
}

// AttentionVector builds one histogram of four-hour bins per calendar date,
// normalizes every histogram by the number of all timestamps and sums them up
// column-wise. No timestamps give the zero vector.
func AttentionVector(timestamps []time.Time) [model.AttentionBins]float64 {
	var vector [model.AttentionBins]float64
	if len(timestamps) == 0 {
		return vector
	}

	type date struct {
		year  int
		month time.Month
		day   int
	}
	histograms := map[date][]float64{}
	for _, t := range timestamps {
		y, m, d := t.Date()
		key := date{y, m, d}
		if _, ok := histograms[key]; !ok {
			histograms[key] = make([]float64, model.AttentionBins)
		}
		histograms[key][AttentionBin(t)]++
	}

	dates := make([]date, 0, len(histograms))
	for key := range histograms {
		dates = append(dates, key)
	}
	sort.Slice(dates, func(i, j int) bool {
		a, b := dates[i], dates[j]
		if a.year != b.year {
			return a.year < b.year
		}
		if a.month != b.month {
			return a.month < b.month
		}
		return a.day < b.day
	})

	sum := make([]float64, model.AttentionBins)
	total := float64(len(timestamps))
	for _, key := range dates {
		histogram := histograms[key]
		floats.Scale(1/total, histogram)
		floats.Add(sum, histogram)
	}
	copy(vector[:], sum)

	return vector
}
