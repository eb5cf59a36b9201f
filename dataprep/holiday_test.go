package dataprep

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayEvents(t *testing.T) {
	utcMinus8 := time.FixedZone("UTC-8", -8*60*60)

	testData := map[string]struct {
		hol       *cal.Holiday
		start     time.Time
		end       time.Time
		durBefore time.Duration
		durAfter  time.Duration
		expected  []Event
	}{
		"simple": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 1, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 12, 8, 1, 0, 0, 0, time.UTC),
			expected: []Event{
				{"Christmas_Day_2024", date(2024, 12, 25), date(2024, 12, 26)},
				{"Christmas_Day_2025", date(2025, 12, 25), date(2025, 12, 26)},
			},
		},
		"non utc tz": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 1, 0, 0, 0, utcMinus8),
			end:   time.Date(2026, 12, 8, 1, 0, 0, 0, utcMinus8),
			expected: []Event{
				{
					"Christmas_Day_2024",
					time.Date(2024, 12, 25, 0, 0, 0, 0, utcMinus8),
					time.Date(2024, 12, 26, 0, 0, 0, 0, utcMinus8),
				},
				{
					"Christmas_Day_2025",
					time.Date(2025, 12, 25, 0, 0, 0, 0, utcMinus8),
					time.Date(2025, 12, 26, 0, 0, 0, 0, utcMinus8),
				},
			},
		},
		"with buffer": {
			hol:       KRLiberationDay,
			start:     date(2023, 1, 1),
			end:       date(2023, 12, 31),
			durBefore: 24 * time.Hour,
			durAfter:  2 * 24 * time.Hour,
			expected: []Event{
				{"Liberation_Day_2023", date(2023, 8, 14), date(2023, 8, 18)},
			},
		},
		"outside range": {
			hol:   KRHangulDay,
			start: date(2023, 1, 1),
			end:   date(2023, 6, 1),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := HolidayEvents(td.hol, td.start, td.end, td.durBefore, td.durAfter)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestAddHolidayColumn(t *testing.T) {
	testData := map[string]struct {
		times    []time.Time
		holidays []*cal.Holiday
		expected []bool
	}{
		"us christmas": {
			times: []time.Time{
				date(2024, 12, 24),
				time.Date(2024, 12, 25, 12, 0, 0, 0, time.UTC),
				date(2024, 12, 26),
			},
			holidays: USHolidays(),
			expected: []bool{false, true, false},
		},
		"holiday before the first row": {
			times: []time.Time{
				time.Date(2023, 3, 1, 18, 0, 0, 0, time.UTC),
				date(2023, 3, 2),
			},
			holidays: KoreanHolidays(),
			expected: []bool{true, false},
		},
		"missing times are never holidays": {
			times:    []time.Time{{}, date(2023, 10, 9)},
			holidays: KoreanHolidays(),
			expected: []bool{false, true},
		},
		"empty": {
			times:    []time.Time{},
			holidays: KoreanHolidays(),
			expected: []bool{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := NewFrame(NewTimeColumn("ts", td.times))
			require.Nil(t, err)
			res, err := AddHolidayColumn(f, "ts", "holiday", td.holidays)
			require.Nil(t, err)
			col, err := res.Col("holiday")
			require.Nil(t, err)
			assert.Equal(t, td.expected, col.Bools)
		})
	}
}
