package dataprep

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// TradeColumns names the columns of a long trade statistics table.
type TradeColumns struct {
	Period   string   `json:"period"`
	Item     string   `json:"item"`
	Balance  string   `json:"balance"`
	Measures []string `json:"measures"`
}

// NewDefaultTradeColumns returns the labels of the Korea Customs Service export/import table.
func NewDefaultTradeColumns() *TradeColumns {
	return &TradeColumns{
		Period:   "기간",
		Item:     "품목명",
		Balance:  "무역수지",
		Measures: []string{"수출 중량", "수출 금액", "수입 중량", "수입 금액"},
	}
}

// RowsToColumns drops the trade balance and pivots every (item, measure) pair into its own
// "item_measure" column indexed by period. Periods and pivoted columns are sorted and missing
// cells are filled with zero.
func RowsToColumns(f *Frame, tc *TradeColumns) (*Frame, error) {
	if tc == nil {
		tc = NewDefaultTradeColumns()
	}
	f, err := f.Drop(tc.Balance)
	if err != nil {
		return nil, err
	}
	period, err := f.Col(tc.Period)
	if err != nil {
		return nil, err
	}
	item, err := f.Col(tc.Item)
	if err != nil {
		return nil, err
	}
	measures := make([]*Column, len(tc.Measures))
	for i, m := range tc.Measures {
		if measures[i], err = f.Col(m); err != nil {
			return nil, err
		}
		if !measures[i].isNumeric() {
			return nil, fmt.Errorf("measure %s of kind %s, %w", m, measures[i].Kind, ErrColumnKind)
		}
	}

	// first row of every distinct period
	periodRow := make(map[string]int)
	var periodRows []int
	for i := 0; i < f.Len(); i++ {
		key := period.String(i)
		if _, ok := periodRow[key]; !ok {
			periodRow[key] = i
			periodRows = append(periodRows, i)
		}
	}
	slices.SortStableFunc(periodRows, func(a, b int) int {
		return compareValues(period, a, period, b)
	})
	periodPos := make(map[string]int, len(periodRows))
	for pos, row := range periodRows {
		periodPos[period.String(row)] = pos
	}

	cells := make(map[string][]float64)
	seen := make(map[string][]bool)
	for i := 0; i < f.Len(); i++ {
		pos := periodPos[period.String(i)]
		for k, m := range measures {
			variable := item.String(i) + "_" + tc.Measures[k]
			if _, ok := cells[variable]; !ok {
				cells[variable] = make([]float64, len(periodRows))
				seen[variable] = make([]bool, len(periodRows))
			}
			if seen[variable][pos] {
				return nil, fmt.Errorf("period %s column %s, %w", period.String(i), variable, ErrDuplicateEntry)
			}
			seen[variable][pos] = true
			if v, ok := m.Float(i); ok {
				cells[variable][pos] = v
			}
		}
	}

	variables := make([]string, 0, len(cells))
	for v := range cells {
		variables = append(variables, v)
	}
	slices.Sort(variables)

	out := &Frame{Columns: []*Column{period.take(periodRows)}}
	for _, v := range variables {
		out.Columns = append(out.Columns, NewFloatColumn(v, cells[v]))
	}
	return out, nil
}

type combination struct {
	item, corporation, location string
}

func (c combination) compare(o combination) int {
	if r := strings.Compare(c.item, o.item); r != 0 {
		return r
	}
	if r := strings.Compare(c.corporation, o.corporation); r != 0 {
		return r
	}
	return strings.Compare(c.location, o.location)
}

// MapToTimestamp stacks a wide frame whose value columns carry (value, item, corporation,
// location) names into a long timestamp, item, corporation, location, value table. Every
// combination with at least one observation is repeated for every distinct timestamp and
// unobserved cells are NaN.
func MapToTimestamp(f *Frame, timestampCol string) (*Frame, error) {
	ts, err := f.Col(timestampCol)
	if err != nil {
		return nil, err
	}

	var valueName string
	var combos []combination
	comboCols := make(map[combination]*Column)
	for _, c := range f.Columns {
		if c == ts {
			continue
		}
		if len(c.Name) != 4 {
			return nil, fmt.Errorf("column %s has %d levels, %w", c.Label(), len(c.Name), ErrColumnLevels)
		}
		if valueName == "" {
			valueName = c.Name[0]
		}
		if c.Name[0] != valueName {
			return nil, fmt.Errorf("column %s does not share value level %s, %w", c.Label(), valueName, ErrColumnLevels)
		}
		if !c.isNumeric() {
			return nil, fmt.Errorf("column %s of kind %s, %w", c.Label(), c.Kind, ErrColumnKind)
		}
		combo := combination{c.Name[1], c.Name[2], c.Name[3]}
		if _, ok := comboCols[combo]; ok {
			return nil, fmt.Errorf("column %s, %w", c.Label(), ErrDuplicateEntry)
		}
		observed := false
		for i := 0; i < c.Len(); i++ {
			if _, ok := c.Float(i); ok {
				observed = true
				break
			}
		}
		if observed {
			comboCols[combo] = c
			combos = append(combos, combo)
		}
	}
	slices.SortFunc(combos, combination.compare)

	var dateRows []int
	dateSeen := make(map[string]bool)
	for i := 0; i < ts.Len(); i++ {
		key := ts.String(i)
		if dateSeen[key] {
			return nil, fmt.Errorf("timestamp %s, %w", key, ErrDuplicateEntry)
		}
		dateSeen[key] = true
		dateRows = append(dateRows, i)
	}

	n := len(dateRows) * len(combos)
	stamps := make([]string, 0, n)
	items := make([]string, 0, n)
	corps := make([]string, 0, n)
	locs := make([]string, 0, n)
	values := make([]float64, 0, n)
	for _, row := range dateRows {
		for _, combo := range combos {
			stamps = append(stamps, ts.String(row))
			items = append(items, combo.item)
			corps = append(corps, combo.corporation)
			locs = append(locs, combo.location)
			v, ok := comboCols[combo].Float(row)
			if !ok {
				v = math.NaN()
			}
			values = append(values, v)
		}
	}
	return NewFrame(
		NewStringColumn("timestamp", stamps),
		NewStringColumn("item", items),
		NewStringColumn("corporation", corps),
		NewStringColumn("location", locs),
		NewFloatColumn("value", values),
	)
}

// ConvertToSingleNamedColumns flattens multi-level names by joining their levels with sep.
func ConvertToSingleNamedColumns(f *Frame, sep string) *Frame {
	out := f.Copy()
	for _, c := range out.Columns {
		c.Name = []string{strings.Join(c.Name, sep)}
	}
	return out
}
