package dataprep

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	Delimiter    rune     `json:"delimiter"`
	HeaderLevels int      `json:"header_levels"` // leading rows forming multi-level column names
	NAValues     []string `json:"na_values"`
}

// NewDefaultCSVOptions returns comma delimited options with one header row.
func NewDefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Delimiter:    ',',
		HeaderLevels: 1,
		NAValues:     []string{"", "NA", "NaN", "nan", "null"},
	}
}

// LoadCSVFile opens path and loads it with LoadCSV.
func LoadCSVFile(path string, opt *CSVOptions) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open csv file, %w", err)
	}
	defer file.Close()
	return LoadCSV(file, opt)
}

// LoadCSV reads a frame and infers the kind of every column. A column whose non missing cells
// all parse as integers, floats, timestamps or booleans takes that kind and falls back to strings
// otherwise. Integer columns with missing cells become floats.
func LoadCSV(r io.Reader, opt *CSVOptions) (*Frame, error) {
	if opt == nil {
		opt = NewDefaultCSVOptions()
	}
	if opt.HeaderLevels < 1 {
		opt.HeaderLevels = 1
	}

	reader := csv.NewReader(r)
	if opt.Delimiter != 0 {
		reader.Comma = opt.Delimiter
	}
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv, %w", err)
	}
	if len(records) < opt.HeaderLevels {
		return nil, fmt.Errorf("found %d rows for %d header levels, %w", len(records), opt.HeaderLevels, ErrNoRows)
	}

	headers := records[:opt.HeaderLevels]
	rows := records[opt.HeaderLevels:]
	na := make(map[string]bool, len(opt.NAValues))
	for _, v := range opt.NAValues {
		na[v] = true
	}

	f := &Frame{}
	for j := range headers[0] {
		name := make([]string, opt.HeaderLevels)
		for l := range headers {
			name[l] = strings.TrimSpace(headers[l][j])
		}
		cells := make([]string, len(rows))
		for i, rec := range rows {
			cells[i] = strings.TrimSpace(rec[j])
		}
		col := inferColumn(cells, na)
		col.Name = name
		if col.Kind == String {
			slog.Debug("keeping csv column as strings", "column", col.Label())
		}
		f.Columns = append(f.Columns, col)
	}
	return f, nil
}

func inferColumn(cells []string, na map[string]bool) *Column {
	missing := 0
	for _, s := range cells {
		if na[s] {
			missing++
		}
	}
	if missing == len(cells) {
		floats := make([]float64, len(cells))
		for i := range floats {
			floats[i] = math.NaN()
		}
		return &Column{Kind: Float, Floats: floats}
	}

	if ints, ok := parseAll(cells, na, strconv.Atoi); ok {
		col := &Column{Kind: Int, Ints: ints}
		if missing > 0 {
			return col.withMissing(cells, na)
		}
		return col
	}
	if floats, ok := parseAll(cells, na, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}); ok {
		return (&Column{Kind: Float, Floats: floats}).withMissing(cells, na)
	}
	if times, ok := parseAll(cells, na, ParseTime); ok {
		return &Column{Kind: Time, Times: times}
	}
	if bools, ok := parseAll(cells, na, strconv.ParseBool); ok && missing == 0 {
		return &Column{Kind: Bool, Bools: bools}
	}

	strs := make([]string, len(cells))
	for i, s := range cells {
		if !na[s] {
			strs[i] = s
		}
	}
	return &Column{Kind: String, Strings: strs}
}

func parseAll[T any](cells []string, na map[string]bool, parse func(string) (T, error)) ([]T, bool) {
	out := make([]T, len(cells))
	for i, s := range cells {
		if na[s] {
			continue
		}
		v, err := parse(s)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// withMissing converts to floats and marks missing cells as NaN.
func (c *Column) withMissing(cells []string, na map[string]bool) *Column {
	out := c.toFloat()
	for i, s := range cells {
		if na[s] {
			out.Floats[i] = math.NaN()
		}
	}
	return out
}

// WriteCSV writes one header row per name level followed by every row. Missing values are
// written as empty cells.
func WriteCSV(w io.Writer, f *Frame) error {
	if f == nil {
		return fmt.Errorf("nil frame, %w", ErrNoRows)
	}
	levels := 1
	for _, c := range f.Columns {
		levels = max(levels, len(c.Name))
	}

	writer := csv.NewWriter(w)
	for l := 0; l < levels; l++ {
		header := make([]string, len(f.Columns))
		for j, c := range f.Columns {
			if l < len(c.Name) {
				header[j] = c.Name[l]
			}
		}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("unable to write csv header, %w", err)
		}
	}
	for i := 0; i < f.Len(); i++ {
		rec := make([]string, len(f.Columns))
		for j, c := range f.Columns {
			if !c.IsMissing(i) {
				rec[j] = formatCell(c, i)
			}
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("unable to write csv row %d, %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(c *Column, i int) string {
	if c.Kind == Time {
		return c.Times[i].Format(time.RFC3339)
	}
	return c.String(i)
}
