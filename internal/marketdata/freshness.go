package marketdata

import (
	"math"
	"sort"
	"time"
)

// FreshnessP99Ms returns the 99th-percentile ingest delay in milliseconds
// across trades whose IngestTS is known. Negative deltas (clock skew or an
// IngestTS recorded before TS) are discarded, not clamped, per the
// MarketTrade invariant that ingest_ts >= ts is merely expected, not
// enforced. Returns +Inf if no trade has a usable sample.
func FreshnessP99Ms(trades []MarketTrade) float64 {
	var samples []float64
	for _, t := range trades {
		if t.IngestTS.IsZero() {
			continue
		}
		ms := t.IngestTS.Sub(t.TS).Seconds() * 1000.0
		if ms >= 0 {
			samples = append(samples, ms)
		}
	}
	if len(samples) == 0 {
		return math.Inf(1)
	}
	sort.Float64s(samples)
	return percentile(samples, 99)
}

// percentile uses linear interpolation between closest ranks, matching
// numpy.percentile's default behavior.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

var nyLocation *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	nyLocation = loc
}

// RTHGapEvents counts gaps longer than maxGap between consecutive trades
// that fall within regular trading hours (09:30-16:00 America/New_York,
// weekdays). Used as a feed-quality signal independent of FreshnessP99Ms.
func RTHGapEvents(trades []MarketTrade, maxGap time.Duration) int {
	var inHours []time.Time
	for _, t := range trades {
		local := t.TS.In(nyLocation)
		if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
			continue
		}
		open := time.Date(local.Year(), local.Month(), local.Day(), 9, 30, 0, 0, nyLocation)
		closeT := time.Date(local.Year(), local.Month(), local.Day(), 16, 0, 0, 0, nyLocation)
		if local.Before(open) || !local.Before(closeT) {
			continue
		}
		inHours = append(inHours, t.TS)
	}
	sort.Slice(inHours, func(i, j int) bool { return inHours[i].Before(inHours[j]) })
	gaps := 0
	for i := 1; i < len(inHours); i++ {
		if inHours[i].Sub(inHours[i-1]) > maxGap {
			gaps++
		}
	}
	return gaps
}
