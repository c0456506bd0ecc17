package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadDayRoundTrip(t *testing.T) {
	l := Open(t.TempDir())
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append([]Entry{
		{TS: day.Add(time.Minute), Kind: KindIntent, Tag: "tag-1", Symbol: "SPY", Side: "BUY", Qty: 10},
	}))
	require.NoError(t, l.Append([]Entry{
		{TS: day.Add(time.Minute), EventTS: day.Add(2 * time.Minute), Kind: KindAck, Tag: "tag-1"},
	}))

	rows, err := l.ReadDay(day)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, KindIntent, rows[0].Kind)
	assert.Equal(t, KindAck, rows[1].Kind)
}

func TestHasTagIdempotencyCheck(t *testing.T) {
	l := Open(t.TempDir())
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	has, err := l.HasTag(day, "tag-1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, l.Append([]Entry{{TS: day, Kind: KindIntent, Tag: "tag-1"}}))

	has, err = l.HasTag(day, "tag-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestAppendPreservesEarlierEntries(t *testing.T) {
	l := Open(t.TempDir())
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append([]Entry{{TS: day, Kind: KindIntent, Tag: "tag-1"}}))
	first, err := l.ReadDay(day)
	require.NoError(t, err)

	require.NoError(t, l.Append([]Entry{{TS: day, Kind: KindAck, Tag: "tag-1"}}))
	second, err := l.ReadDay(day)
	require.NoError(t, err)

	require.Len(t, second, 2)
	assert.Equal(t, first[0], second[0])
}
