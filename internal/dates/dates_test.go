package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseNamed(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{"full month with comma", "Notifications for February 26, 2026", day(2026, time.February, 26), true},
		{"abbreviated month", "Feb 26, 2026", day(2026, time.February, 26), true},
		{"no comma", "February 26 2026", day(2026, time.February, 26), true},
		{"sept variant", "Sept 3, 2025", day(2025, time.September, 3), true},
		{"unknown month word", "Foobar 12, 2026", time.Time{}, false},
		{"rollover day rejected", "Feb 30, 2026", time.Time{}, false},
		{"no date at all", "Master Direction on KYC norms", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNamed(tt.text)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{"padded", "| 26/02/2026 |", day(2026, time.February, 26), true},
		{"unpadded", "5/2/2026", day(2026, time.February, 5), true},
		{"month out of range", "26/13/2026", time.Time{}, false},
		{"day out of range", "32/01/2026", time.Time{}, false},
		{"no date", "circular no. 14/2026-GST", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumeric(tt.text)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseFeedTime(t *testing.T) {
	got, ok := ParseFeedTime("Thu, 26 Feb 2026 10:30:00 +0530")
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 26), got, "feed timestamps collapse to the UTC calendar date")

	got, ok = ParseFeedTime("2026-02-26")
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 26), got)

	_, ok = ParseFeedTime("")
	assert.False(t, ok)

	_, ok = ParseFeedTime("yesterday")
	assert.False(t, ok)
}

func TestNearestDatePrefersNumeric(t *testing.T) {
	got, ok := NearestDate("issued February 20, 2026, effective 26/02/2026")
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 26), got)

	got, ok = NearestDate("issued February 20, 2026")
	require.True(t, ok)
	assert.Equal(t, day(2026, time.February, 20), got)
}

func TestWithinWindow(t *testing.T) {
	// Mid-day run: day granularity must not shave hours off the window.
	now := time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"today", day(2026, time.March, 5), true},
		{"exactly seven days ago", day(2026, time.February, 26), true},
		{"eight days ago", day(2026, time.February, 25), false},
		{"tomorrow within skew", day(2026, time.March, 6), true},
		{"two days ahead", day(2026, time.March, 7), false},
		{"zero date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinWindow(tt.d, now, 7))
		})
	}
}
