package dataprep

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoJoinKeys      = errors.New("no join keys")
	ErrJoinKeyMismatch = errors.New("left and right join keys differ in count")
	ErrUnknownJoin     = errors.New("unknown join type")
)

// JoinType selects which unmatched rows survive a merge.
type JoinType string

const (
	InnerJoin JoinType = "inner"
	LeftJoin  JoinType = "left"
	OuterJoin JoinType = "outer"
)

// MergeOptions describes a key join of two frames. On names keys present on both sides and
// coalesces them into one column. LeftOn and RightOn name keys that are kept separately.
type MergeOptions struct {
	On       []string
	LeftOn   []string
	RightOn  []string
	How      JoinType
	Suffixes [2]string
}

// Validate fills the default join type and suffixes.
func (m *MergeOptions) Validate() (*MergeOptions, error) {
	if m == nil {
		return nil, ErrNoJoinKeys
	}
	out := *m
	if len(out.On) > 0 {
		out.LeftOn, out.RightOn = out.On, out.On
	}
	if len(out.LeftOn) == 0 {
		return nil, ErrNoJoinKeys
	}
	if len(out.LeftOn) != len(out.RightOn) {
		return nil, fmt.Errorf("%d left keys and %d right keys, %w", len(out.LeftOn), len(out.RightOn), ErrJoinKeyMismatch)
	}
	switch out.How {
	case "":
		out.How = InnerJoin
	case InnerJoin, LeftJoin, OuterJoin:
	default:
		return nil, fmt.Errorf("%s, %w", out.How, ErrUnknownJoin)
	}
	if out.Suffixes == [2]string{} {
		out.Suffixes = [2]string{"_x", "_y"}
	}
	return &out, nil
}

func keyColumns(f *Frame, names []string) ([]*Column, error) {
	cols := make([]*Column, len(names))
	for i, n := range names {
		c, err := f.Col(n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

func rowKey(cols []*Column, i int) string {
	parts := make([]string, len(cols))
	for k, c := range cols {
		parts[k] = c.String(i)
	}
	return strings.Join(parts, "\x1f")
}

// Merge joins left and right on key equality. Matching rows pair up in left order with right
// matches in right order. Outer joins append unmatched right rows and sort the result by key.
func Merge(left, right *Frame, opt *MergeOptions) (*Frame, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	lkeys, err := keyColumns(left, opt.LeftOn)
	if err != nil {
		return nil, fmt.Errorf("left frame, %w", err)
	}
	rkeys, err := keyColumns(right, opt.RightOn)
	if err != nil {
		return nil, fmt.Errorf("right frame, %w", err)
	}

	rindex := make(map[string][]int)
	for j := 0; j < right.Len(); j++ {
		k := rowKey(rkeys, j)
		rindex[k] = append(rindex[k], j)
	}

	var lidx, ridx []int
	matched := make([]bool, right.Len())
	for i := 0; i < left.Len(); i++ {
		js := rindex[rowKey(lkeys, i)]
		if len(js) == 0 {
			if opt.How != InnerJoin {
				lidx = append(lidx, i)
				ridx = append(ridx, -1)
			}
			continue
		}
		for _, j := range js {
			lidx = append(lidx, i)
			ridx = append(ridx, j)
			matched[j] = true
		}
	}
	if opt.How == OuterJoin {
		for j, ok := range matched {
			if !ok {
				lidx = append(lidx, -1)
				ridx = append(ridx, j)
			}
		}
		order := make([]int, len(lidx))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			for k := range lkeys {
				ca, ia := lkeys[k], lidx[a]
				if ia < 0 {
					ca, ia = rkeys[k], ridx[a]
				}
				cb, ib := lkeys[k], lidx[b]
				if ib < 0 {
					cb, ib = rkeys[k], ridx[b]
				}
				if c := compareValues(ca, ia, cb, ib); c != 0 {
					return c
				}
			}
			return 0
		})
		lidx = permuteInts(lidx, order)
		ridx = permuteInts(ridx, order)
	}

	coalesce := len(opt.On) > 0
	isKey := func(names []string, c *Column) bool {
		return coalesce && slices.Contains(names, c.Label())
	}
	lnames := make(map[string]bool)
	for _, c := range left.Columns {
		if !isKey(opt.On, c) {
			lnames[c.Label()] = true
		}
	}
	rnames := make(map[string]bool)
	for _, c := range right.Columns {
		if !isKey(opt.On, c) {
			rnames[c.Label()] = true
		}
	}

	out := &Frame{}
	if coalesce {
		for k := range lkeys {
			key, err := coalesceKeys(lkeys[k], lidx, rkeys[k], ridx)
			if err != nil {
				return nil, err
			}
			out.Columns = append(out.Columns, key)
		}
	}
	for _, c := range left.Columns {
		if isKey(opt.On, c) {
			continue
		}
		col := c.take(lidx)
		if rnames[c.Label()] {
			col = col.rename(c.Label() + opt.Suffixes[0])
		}
		out.Columns = append(out.Columns, col)
	}
	for _, c := range right.Columns {
		if isKey(opt.On, c) {
			continue
		}
		col := c.take(ridx)
		if lnames[c.Label()] {
			col = col.rename(c.Label() + opt.Suffixes[1])
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

func permuteInts(v, order []int) []int {
	out := make([]int, len(v))
	for i, o := range order {
		out[i] = v[o]
	}
	return out
}

// coalesceKeys builds a key column taking each row from the left side when it has a match and
// from the right side otherwise. Mixed numeric kinds become floats.
func coalesceKeys(l *Column, lidx []int, r *Column, ridx []int) (*Column, error) {
	if l.Kind != r.Kind {
		if !l.isNumeric() || !r.isNumeric() {
			return nil, fmt.Errorf("join key %s has kinds %s and %s, %w", l.Label(), l.Kind, r.Kind, ErrColumnKind)
		}
		l, r = l.toFloat(), r.toFloat()
	}
	n := len(lidx)
	out := &Column{Name: l.Name, Kind: l.Kind}
	switch out.Kind {
	case Float:
		out.Floats = make([]float64, n)
	case Int:
		out.Ints = make([]int, n)
	case String:
		out.Strings = make([]string, n)
	case Time:
		out.Times = make([]time.Time, n)
	case Bool:
		out.Bools = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		src, j := l, lidx[i]
		if j < 0 {
			src, j = r, ridx[i]
		}
		switch out.Kind {
		case Float:
			out.Floats[i] = src.Floats[j]
		case Int:
			out.Ints[i] = src.Ints[j]
		case String:
			out.Strings[i] = src.Strings[j]
		case Time:
			out.Times[i] = src.Times[j]
		case Bool:
			out.Bools[i] = src.Bools[j]
		}
	}
	return out, nil
}

const monthYearKey = "__month_year"

// MergeOnMonthYear left joins b onto a by matching the YYYY-MM of a's timestampCol against the
// string form of b's monthYearCol.
func MergeOnMonthYear(a, b *Frame, timestampCol, monthYearCol string) (*Frame, error) {
	ts, err := a.timeColumn(timestampCol)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ts.Times))
	for i, t := range ts.Times {
		if !t.IsZero() {
			keys[i] = t.Format("2006-01")
		}
	}
	left, err := a.With(ts)
	if err != nil {
		return nil, err
	}
	if left, err = left.With(NewStringColumn(monthYearKey, keys)); err != nil {
		return nil, err
	}

	merged, err := Merge(left, b, &MergeOptions{
		LeftOn:  []string{monthYearKey},
		RightOn: []string{monthYearCol},
		How:     LeftJoin,
	})
	if err != nil {
		return nil, err
	}
	return merged.Drop(monthYearKey)
}

// DayOffsetOptions maps a day of month suffix to a day index and back onto a calendar range.
type DayOffsetOptions struct {
	TimestampCol string    `json:"timestamp_col"`
	Offset       int       `json:"offset"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

func NewDefaultDayOffsetOptions() *DayOffsetOptions {
	return &DayOffsetOptions{
		TimestampCol: "timestamp",
		Offset:       4,
		Start:        time.Date(2023, 3, 4, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func (d *DayOffsetOptions) Validate() (*DayOffsetOptions, error) {
	if d == nil {
		return NewDefaultDayOffsetOptions(), nil
	}
	if d.End.Before(d.Start) {
		return nil, fmt.Errorf("start %s, end %s, %w", d.Start, d.End, ErrInvalidDateRange)
	}
	if d.TimestampCol == "" {
		d.TimestampCol = "timestamp"
	}
	return d, nil
}

// days is the number of calendar dates in [Start, End].
func (d *DayOffsetOptions) days() int {
	return int(d.End.Sub(d.Start).Hours()/24) + 1
}

// MapTimestampAndMerge converts a's date strings to day indices by their last two digits minus
// the offset, reads b's timestamps as day indices, outer merges on the given keys and maps every
// index back to its calendar date. Indices outside the range become missing times.
func MapTimestampAndMerge(a, b *Frame, on []string, opt *DayOffsetOptions) (*Frame, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	ac, err := a.Col(opt.TimestampCol)
	if err != nil {
		return nil, fmt.Errorf("left frame, %w", err)
	}
	aIdx := make([]int, ac.Len())
	for i := range aIdx {
		s := ac.String(i)
		if len(s) < 2 {
			return nil, fmt.Errorf("left row %d %q, %w", i, s, ErrUnparseableTimestamp)
		}
		day, err := strconv.Atoi(s[len(s)-2:])
		if err != nil {
			return nil, fmt.Errorf("left row %d %q, %w", i, s, ErrUnparseableTimestamp)
		}
		aIdx[i] = day - opt.Offset
	}
	slog.Debug("mapped left timestamps to day indices", "unique", uniqueInts(aIdx))

	bc, err := b.Col(opt.TimestampCol)
	if err != nil {
		return nil, fmt.Errorf("right frame, %w", err)
	}
	bIdx, err := asInts(bc)
	if err != nil {
		return nil, err
	}
	slog.Debug("read right timestamps as day indices", "unique", uniqueInts(bIdx))

	left, err := a.With(NewIntColumn(opt.TimestampCol, aIdx))
	if err != nil {
		return nil, err
	}
	right, err := b.With(NewIntColumn(opt.TimestampCol, bIdx))
	if err != nil {
		return nil, err
	}
	merged, err := Merge(left, right, &MergeOptions{On: on, How: OuterJoin})
	if err != nil {
		return nil, err
	}

	mc, err := merged.Col(opt.TimestampCol)
	if err != nil {
		return nil, err
	}
	days := opt.days()
	dates := make([]time.Time, mc.Len())
	for i := range dates {
		v, ok := mc.Float(i)
		if !ok || v < 0 || v >= float64(days) || v != math.Trunc(v) {
			continue
		}
		dates[i] = opt.Start.AddDate(0, 0, int(v))
	}
	return merged.With(NewTimeColumn(opt.TimestampCol, dates))
}

func asInts(c *Column) ([]int, error) {
	out := make([]int, c.Len())
	for i := range out {
		if v, ok := c.Float(i); ok && v == math.Trunc(v) {
			out[i] = int(v)
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(c.String(i)))
		if err != nil {
			return nil, fmt.Errorf("column %s row %d %q, %w", c.Label(), i, c.String(i), ErrUnparseableTimestamp)
		}
		out[i] = v
	}
	return out, nil
}

func uniqueInts(v []int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, x := range v {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
