package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRange(t *testing.T) {
	// 2024-01-05 is a Friday
	got := Range(day("2024-01-04"), day("2024-01-09"))
	require.Len(t, got, 4)
	assert.Equal(t, []time.Time{day("2024-01-04"), day("2024-01-05"), day("2024-01-08"), day("2024-01-09")}, got)

	assert.Empty(t, Range(day("2024-01-09"), day("2024-01-04")))
	assert.Empty(t, Range(day("2024-01-06"), day("2024-01-07")))
	assert.Len(t, Range(day("2024-01-03"), day("2024-01-03")), 1)
}

func TestRangeIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, 1, 3, 17, 30, 0, 0, time.FixedZone("BST", 3600))
	got := Range(start, day("2024-01-03"))
	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].Location())
}

func TestAddBusinessDays(t *testing.T) {
	tests := []struct {
		name string
		from string
		n    int
		want string
	}{
		{"zero", "2024-01-10", 0, "2024-01-10"},
		{"back five from wednesday", "2024-01-10", -5, "2024-01-03"},
		{"forward over weekend", "2024-01-05", 1, "2024-01-08"},
		{"back from monday", "2024-01-08", -1, "2024-01-05"},
		{"back from saturday", "2024-01-06", -1, "2024-01-05"},
		{"back fifteen", "2024-01-22", -15, "2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, day(tt.want), AddBusinessDays(day(tt.from), tt.n))
		})
	}
}

func TestPrevious(t *testing.T) {
	assert.Equal(t, day("2024-01-05"), Previous(day("2024-01-07")))
	assert.Equal(t, day("2024-01-08"), Previous(day("2024-01-08")))
}

func TestIndex(t *testing.T) {
	days := Range(day("2024-01-01"), day("2024-01-05"))
	idx := Index(days)
	assert.Equal(t, 2, idx[day("2024-01-03")])
	_, ok := idx[day("2024-01-06")]
	assert.False(t, ok)
}
