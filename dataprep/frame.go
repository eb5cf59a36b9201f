// Package dataprep reshapes and merges tabular trade statistics into the aligned numeric series
// consumed by the forecaster.
package dataprep

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingColumn        = errors.New("column not found")
	ErrColumnLenMismatch    = errors.New("column length does not match frame length")
	ErrColumnKind           = errors.New("column has an unsupported kind for this operation")
	ErrColumnLevels         = errors.New("column does not have the expected name levels")
	ErrUnparseableTimestamp = errors.New("unable to parse timestamp")
	ErrDuplicateEntry       = errors.New("duplicate entry for index and column")
	ErrInvalidDateRange     = errors.New("date range end is before start")
	ErrNoRows               = errors.New("no rows in input")
)

// Kind is the element type stored by a Column.
type Kind int

const (
	Float Kind = iota
	Int
	String
	Time
	Bool
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case String:
		return "string"
	case Time:
		return "time"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Column is a named typed vector. Only the slice matching Kind is populated. Missing values are
// NaN for floats and the zero value for times.
type Column struct {
	Name    []string
	Kind    Kind
	Floats  []float64
	Ints    []int
	Strings []string
	Times   []time.Time
	Bools   []bool
}

func NewFloatColumn(name string, v []float64) *Column {
	return &Column{Name: []string{name}, Kind: Float, Floats: v}
}

func NewIntColumn(name string, v []int) *Column {
	return &Column{Name: []string{name}, Kind: Int, Ints: v}
}

func NewStringColumn(name string, v []string) *Column {
	return &Column{Name: []string{name}, Kind: String, Strings: v}
}

func NewTimeColumn(name string, v []time.Time) *Column {
	return &Column{Name: []string{name}, Kind: Time, Times: v}
}

func NewBoolColumn(name string, v []bool) *Column {
	return &Column{Name: []string{name}, Kind: Bool, Bools: v}
}

// Label joins a multi-level name with an underscore.
func (c *Column) Label() string {
	return strings.Join(c.Name, "_")
}

func (c *Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.Floats)
	case Int:
		return len(c.Ints)
	case String:
		return len(c.Strings)
	case Time:
		return len(c.Times)
	case Bool:
		return len(c.Bools)
	}
	return 0
}

func (c *Column) IsMissing(i int) bool {
	switch c.Kind {
	case Float:
		return math.IsNaN(c.Floats[i])
	case Time:
		return c.Times[i].IsZero()
	}
	return false
}

// Float returns the numeric value at i. Strings, times and missing values are not numeric.
func (c *Column) Float(i int) (float64, bool) {
	switch c.Kind {
	case Float:
		return c.Floats[i], !math.IsNaN(c.Floats[i])
	case Int:
		return float64(c.Ints[i]), true
	case Bool:
		if c.Bools[i] {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (c *Column) isNumeric() bool {
	return c.Kind == Float || c.Kind == Int || c.Kind == Bool
}

// String formats the value at i. Dates at midnight drop the clock.
func (c *Column) String(i int) string {
	switch c.Kind {
	case Float:
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	case Int:
		return strconv.Itoa(c.Ints[i])
	case String:
		return c.Strings[i]
	case Time:
		return formatTime(c.Times[i])
	case Bool:
		return strconv.FormatBool(c.Bools[i])
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// Copy returns a deep copy of the column.
func (c *Column) Copy() *Column {
	return &Column{
		Name:    append([]string(nil), c.Name...),
		Kind:    c.Kind,
		Floats:  append([]float64(nil), c.Floats...),
		Ints:    append([]int(nil), c.Ints...),
		Strings: append([]string(nil), c.Strings...),
		Times:   append([]time.Time(nil), c.Times...),
		Bools:   append([]bool(nil), c.Bools...),
	}
}

// rename returns a shallow copy with a new single-level name.
func (c *Column) rename(name ...string) *Column {
	out := *c
	out.Name = name
	return &out
}

// toFloat converts a numeric column to floats.
func (c *Column) toFloat() *Column {
	if c.Kind == Float {
		return c
	}
	out := &Column{Name: c.Name, Kind: Float, Floats: make([]float64, c.Len())}
	for i := range out.Floats {
		v, ok := c.Float(i)
		if !ok {
			v = math.NaN()
		}
		out.Floats[i] = v
	}
	return out
}

// take gathers rows by index. A negative index produces a missing value; int columns holding a
// missing value become floats.
func (c *Column) take(idx []int) *Column {
	src := c
	if c.Kind == Int {
		for _, i := range idx {
			if i < 0 {
				src = c.toFloat()
				break
			}
		}
	}
	out := &Column{Name: src.Name, Kind: src.Kind}
	switch src.Kind {
	case Float:
		out.Floats = make([]float64, len(idx))
		for k, i := range idx {
			out.Floats[k] = math.NaN()
			if i >= 0 {
				out.Floats[k] = src.Floats[i]
			}
		}
	case Int:
		out.Ints = make([]int, len(idx))
		for k, i := range idx {
			out.Ints[k] = src.Ints[i]
		}
	case String:
		out.Strings = make([]string, len(idx))
		for k, i := range idx {
			if i >= 0 {
				out.Strings[k] = src.Strings[i]
			}
		}
	case Time:
		out.Times = make([]time.Time, len(idx))
		for k, i := range idx {
			if i >= 0 {
				out.Times[k] = src.Times[i]
			}
		}
	case Bool:
		out.Bools = make([]bool, len(idx))
		for k, i := range idx {
			if i >= 0 {
				out.Bools[k] = src.Bools[i]
			}
		}
	}
	return out
}

// compareValues orders a[i] against b[j]. Numbers compare numerically, times chronologically and
// everything else by its string form. Missing values sort last.
func compareValues(a *Column, i int, b *Column, j int) int {
	am, bm := a.IsMissing(i), b.IsMissing(j)
	switch {
	case am && bm:
		return 0
	case am:
		return 1
	case bm:
		return -1
	}
	if av, ok := a.Float(i); ok {
		if bv, ok := b.Float(j); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	if a.Kind == Time && b.Kind == Time {
		return a.Times[i].Compare(b.Times[j])
	}
	return strings.Compare(a.String(i), b.String(j))
}

// Frame is an ordered set of equal length columns.
type Frame struct {
	Columns []*Column
}

// NewFrame validates that every column has the same length.
func NewFrame(cols ...*Column) (*Frame, error) {
	for _, c := range cols {
		if c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("column %s has %d rows, expected %d, %w", c.Label(), c.Len(), cols[0].Len(), ErrColumnLenMismatch)
		}
	}
	return &Frame{Columns: cols}, nil
}

// Len is the number of rows.
func (f *Frame) Len() int {
	if f == nil || len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Names returns the label of every column.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Label()
	}
	return names
}

func (f *Frame) index(name string) int {
	for i, c := range f.Columns {
		if c.Label() == name {
			return i
		}
	}
	return -1
}

// Col looks up a column by label.
func (f *Frame) Col(name string) (*Column, error) {
	if f == nil {
		return nil, fmt.Errorf("%s, %w", name, ErrMissingColumn)
	}
	i := f.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%s, %w", name, ErrMissingColumn)
	}
	return f.Columns[i], nil
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := &Frame{Columns: make([]*Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.Copy()
	}
	return out
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if f.index(n) < 0 {
			return nil, fmt.Errorf("%s, %w", n, ErrMissingColumn)
		}
		drop[n] = true
	}
	out := &Frame{}
	for _, c := range f.Columns {
		if !drop[c.Label()] {
			out.Columns = append(out.Columns, c)
		}
	}
	return out, nil
}

// With returns a frame where col replaces the column of the same label or is appended.
func (f *Frame) With(col *Column) (*Frame, error) {
	if len(f.Columns) > 0 && col.Len() != f.Len() {
		return nil, fmt.Errorf("column %s has %d rows, expected %d, %w", col.Label(), col.Len(), f.Len(), ErrColumnLenMismatch)
	}
	out := &Frame{Columns: append([]*Column(nil), f.Columns...)}
	if i := out.index(col.Label()); i >= 0 {
		out.Columns[i] = col
		return out, nil
	}
	out.Columns = append(out.Columns, col)
	return out, nil
}

func (f *Frame) take(idx []int) *Frame {
	out := &Frame{Columns: make([]*Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.take(idx)
	}
	return out
}
