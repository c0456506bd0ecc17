package strategy

// sma returns the simple moving average of the last n values of closes,
// or (0, false) if fewer than n values are available yet.
func sma(closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n {
		return 0, false
	}
	window := closes[len(closes)-n:]
	var sum float64
	for _, c := range window {
		sum += c
	}
	return sum / float64(n), true
}
