package tca

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortfallSigns(t *testing.T) {
	assert.InDelta(t, 20.0, TCA{Arrival: 100.0, FillsWavg: 100.2, Side: SideBuy}.ShortfallBps(), 1e-6)
	assert.InDelta(t, 20.0, TCA{Arrival: 100.0, FillsWavg: 99.8, Side: SideSell}.ShortfallBps(), 1e-6)
}

func TestShortfallUndefinedWhenArrivalNonPositive(t *testing.T) {
	assert.Equal(t, 0.0, TCA{Arrival: 0, FillsWavg: 100, Side: SideBuy}.ShortfallBps())
	assert.Equal(t, 0.0, TCA{Arrival: -5, FillsWavg: 100, Side: SideBuy}.ShortfallBps())
}
