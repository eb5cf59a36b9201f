package dataprep

import (
	"fmt"
	"strings"
	"time"

	"github.com/aouyang1/go-timesnet/stats"
)

// TimeStampColumn is the timestamp label left by ConvertToSingleNamedColumns on a frame whose
// timestamp sat under empty upper levels.
const TimeStampColumn = "time_stamp___"

var timeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.DateOnly,
	"2006/01/02",
	"2006-01",
	"2006.01",
	"20060102",
}

// ParseTime tries the supported layouts in order and returns the time in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrUnparseableTimestamp)
}

// parseTimes converts a string column to times. Empty strings become missing times.
func parseTimes(c *Column) (*Column, error) {
	switch c.Kind {
	case Time:
		return c, nil
	case String:
	default:
		return nil, fmt.Errorf("column %s of kind %s is not a timestamp, %w", c.Label(), c.Kind, ErrColumnKind)
	}
	out := &Column{Name: c.Name, Kind: Time, Times: make([]time.Time, len(c.Strings))}
	for i, s := range c.Strings {
		if s == "" {
			continue
		}
		t, err := ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d, %w", c.Label(), i, err)
		}
		out.Times[i] = t
	}
	return out, nil
}

// timeColumn looks up col and parses it to times.
func (f *Frame) timeColumn(col string) (*Column, error) {
	c, err := f.Col(col)
	if err != nil {
		return nil, err
	}
	return parseTimes(c)
}

// weekday maps Monday to 0 through Sunday to 6.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ExtractMonthDay parses timestampCol in place and appends integer month and day columns.
func ExtractMonthDay(f *Frame, timestampCol string) (*Frame, error) {
	ts, err := f.timeColumn(timestampCol)
	if err != nil {
		return nil, err
	}
	month := make([]int, len(ts.Times))
	day := make([]int, len(ts.Times))
	for i, t := range ts.Times {
		month[i] = int(t.Month())
		day[i] = t.Day()
	}

	out, err := f.With(ts)
	if err != nil {
		return nil, err
	}
	if out, err = out.With(NewIntColumn("month", month)); err != nil {
		return nil, err
	}
	return out.With(NewIntColumn("day", day))
}

// AddDayColumnsOneHot appends day_of_week_0 through day_of_week_6 flags with Monday as 0.
func AddDayColumnsOneHot(f *Frame, datetimeCol string) (*Frame, error) {
	ts, err := f.timeColumn(datetimeCol)
	if err != nil {
		return nil, err
	}
	out := f
	for d := 0; d < 7; d++ {
		flags := make([]bool, len(ts.Times))
		for i, t := range ts.Times {
			flags[i] = !t.IsZero() && weekday(t) == d
		}
		if out, err = out.With(NewBoolColumn(fmt.Sprintf("day_of_week_%d", d), flags)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AddDayColumn appends the day of week as an integer with Monday as 0.
func AddDayColumn(f *Frame, datetimeCol, newCol string) (*Frame, error) {
	ts, err := f.timeColumn(datetimeCol)
	if err != nil {
		return nil, err
	}
	days := make([]int, len(ts.Times))
	for i, t := range ts.Times {
		days[i] = weekday(t)
	}
	return f.With(NewIntColumn(newCol, days))
}

// GetZeroTimestamps returns the TimeStampColumn value of every row where column equals zero. A
// non-zero year keeps only rows of that year.
func GetZeroTimestamps(f *Frame, column string, year int) ([]time.Time, error) {
	ts, err := f.timeColumn(TimeStampColumn)
	if err != nil {
		return nil, err
	}
	c, err := f.Col(column)
	if err != nil {
		return nil, err
	}
	if !c.isNumeric() {
		return nil, fmt.Errorf("column %s of kind %s, %w", column, c.Kind, ErrColumnKind)
	}

	var res []time.Time
	for i, t := range ts.Times {
		if year != 0 && t.Year() != year {
			continue
		}
		if v, ok := c.Float(i); ok && v == 0 {
			res = append(res, t)
		}
	}
	return res, nil
}

// GetOutlierTimestamps returns the times of values in column outside the Tukey fence of opt.
// Missing values are ignored.
func GetOutlierTimestamps(f *Frame, timeCol, column string, opt *stats.OutlierOptions) ([]time.Time, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid outlier options, %w", err)
	}
	ts, err := f.timeColumn(timeCol)
	if err != nil {
		return nil, err
	}
	c, err := f.Col(column)
	if err != nil {
		return nil, err
	}
	if !c.isNumeric() {
		return nil, fmt.Errorf("column %s of kind %s, %w", column, c.Kind, ErrColumnKind)
	}

	vals := make([]float64, 0, c.Len())
	rows := make([]int, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Float(i); ok {
			vals = append(vals, v)
			rows = append(rows, i)
		}
	}

	var res []time.Time
	for _, idx := range opt.Detect(vals) {
		res = append(res, ts.Times[rows[idx]])
	}
	return res, nil
}
