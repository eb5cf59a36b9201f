package dataprep

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Korean public holidays on fixed solar dates. Lunar holidays are not modeled.
var (
	KRNewYear                 = &cal.Holiday{Name: "New Year", Month: time.January, Day: 1, Func: cal.CalcDayOfMonth}
	KRIndependenceMovementDay = &cal.Holiday{Name: "Independence Movement Day", Month: time.March, Day: 1, Func: cal.CalcDayOfMonth}
	KRChildrensDay            = &cal.Holiday{Name: "Childrens Day", Month: time.May, Day: 5, Func: cal.CalcDayOfMonth}
	KRMemorialDay             = &cal.Holiday{Name: "Memorial Day", Month: time.June, Day: 6, Func: cal.CalcDayOfMonth}
	KRLiberationDay           = &cal.Holiday{Name: "Liberation Day", Month: time.August, Day: 15, Func: cal.CalcDayOfMonth}
	KRNationalFoundationDay   = &cal.Holiday{Name: "National Foundation Day", Month: time.October, Day: 3, Func: cal.CalcDayOfMonth}
	KRHangulDay               = &cal.Holiday{Name: "Hangul Day", Month: time.October, Day: 9, Func: cal.CalcDayOfMonth}
	KRChristmasDay            = &cal.Holiday{Name: "Christmas Day", Month: time.December, Day: 25, Func: cal.CalcDayOfMonth}
)

// KoreanHolidays returns the fixed date Korean public holidays.
func KoreanHolidays() []*cal.Holiday {
	return []*cal.Holiday{
		KRNewYear,
		KRIndependenceMovementDay,
		KRChildrensDay,
		KRMemorialDay,
		KRLiberationDay,
		KRNationalFoundationDay,
		KRHangulDay,
		KRChristmasDay,
	}
}

// USHolidays returns the US holidays with the largest effect on trade volume.
func USHolidays() []*cal.Holiday {
	return []*cal.Holiday{us.ThanksgivingDay, us.ChristmasDay}
}

// Event is a named time span [Start, End).
type Event struct {
	Name  string
	Start time.Time
	End   time.Time
}

func (e Event) contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// HolidayEvents lists every observed occurrence of hol between start and end inclusive, widened
// by durBefore and durAfter. Observed dates are shifted to the wall clock of start's location.
func HolidayEvents(hol *cal.Holiday, start, end time.Time, durBefore, durAfter time.Duration) []Event {
	startLoc := start.Location()
	_, startOffset := start.Zone()

	var events []Event
	for year := start.Year(); year <= end.Year(); year++ {
		_, observed := hol.Calc(year)
		_, offset := observed.Zone()
		observed = observed.Add(time.Duration(offset) * time.Second).In(startLoc).Add(time.Duration(-startOffset) * time.Second)

		if observed.Before(start) || observed.After(end) {
			continue
		}
		events = append(events, Event{
			Name:  strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, year), " ", "_"),
			Start: observed.Add(-durBefore),
			End:   observed.Add(24 * time.Hour).Add(durAfter),
		})
	}
	return events
}

// AddHolidayColumn appends a flag marking rows whose timeCol falls on any of the holidays.
func AddHolidayColumn(f *Frame, timeCol, newCol string, holidays []*cal.Holiday) (*Frame, error) {
	ts, err := f.timeColumn(timeCol)
	if err != nil {
		return nil, err
	}
	flags := make([]bool, len(ts.Times))
	if len(ts.Times) == 0 {
		return f.With(NewBoolColumn(newCol, flags))
	}

	var start, end time.Time
	for _, t := range ts.Times {
		if t.IsZero() {
			continue
		}
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}
	// a holiday that began the day before the first row still covers it
	start = start.Add(-24 * time.Hour)

	var events []Event
	for _, hol := range holidays {
		events = append(events, HolidayEvents(hol, start, end, 0, 0)...)
	}
	for i, t := range ts.Times {
		if t.IsZero() {
			continue
		}
		for _, e := range events {
			if e.contains(t) {
				flags[i] = true
				break
			}
		}
	}
	return f.With(NewBoolColumn(newCol, flags))
}
