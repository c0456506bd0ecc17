package marketdata

import (
	"sort"
	"time"
)

// Aggregate1s turns an unordered batch of trades for a single symbol into a
// deterministic ascending sequence of 1-second OHLCV bars. Only buckets that
// contain at least one trade are emitted — there are no synthetic empty bars.
//
// Trades are stable-sorted by TS first so that ties on TS break by input
// order, matching the bucket-build rule: the first trade in a bucket seeds
// open/high/low/close, later trades in the same bucket raise High, lower
// Low, overwrite Close, and add to Volume. Naive (zero-value Location)
// timestamps are treated as already-UTC; callers are expected to pass UTC
// instants.
//
// Aggregate1s is pure and restartable: callers may re-aggregate any window,
// including one that overlaps a bucket already flushed elsewhere — the
// result for that bucket is identical given the same trades.
func Aggregate1s(trades []MarketTrade, symbol string) []Bar1s {
	ordered := make([]MarketTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TS.Before(ordered[j].TS)
	})

	var order []time.Time
	bars := make(map[time.Time]*Bar1s)
	for _, t := range ordered {
		key := floorSecondUTC(t.TS)
		b, ok := bars[key]
		if !ok {
			b = &Bar1s{
				TS:     key,
				Symbol: symbol,
				Open:   t.Price,
				High:   t.Price,
				Low:    t.Price,
				Close:  t.Price,
				Volume: t.Size,
			}
			bars[key] = b
			order = append(order, key)
			continue
		}
		if t.Price > b.High {
			b.High = t.Price
		}
		if t.Price < b.Low {
			b.Low = t.Price
		}
		b.Close = t.Price
		b.Volume += t.Size
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	out := make([]Bar1s, 0, len(order))
	for _, key := range order {
		out = append(out, *bars[key])
	}
	return out
}

// floorSecondUTC truncates a timestamp to whole seconds in UTC, zeroing any
// sub-second component. Naive timestamps (no explicit zone) are assumed UTC.
func floorSecondUTC(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Second)
}
