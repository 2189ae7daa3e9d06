// Package dataset holds the merged sales table and its typed column views.
//
// A Table keeps every cell as text. Typed views are decoded on first use and
// memoized, so a table must not be modified once it has been built.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// naTokens are the cell values read as missing.
var naTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
}

// IsMissing reports whether a raw cell is empty or an NA token.
func IsMissing(cell string) bool {
	_, ok := naTokens[strings.TrimSpace(cell)]
	return ok
}

// origin locates a row in the part it was read from.
type origin struct {
	part string
	line int
}

// Table is an immutable relation of text cells with named columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
	origins []origin

	mu    sync.Mutex
	typed map[string]any
}

// IntColumn is a decoded integer column. Valid[i] is false for missing cells.
type IntColumn struct {
	Values []int64
	Valid  []bool
}

func newTable(columns []string, rows [][]string, origins []origin) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Table{
		columns: columns,
		index:   index,
		rows:    rows,
		origins: origins,
		typed:   make(map[string]any),
	}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Columns returns the column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the raw text at (row, column).
func (t *Table) Cell(row int, column string) (string, error) {
	ci, ok := t.index[column]
	if !ok {
		return "", &MissingColumnError{Column: column}
	}
	return t.rows[row][ci], nil
}

// Subset returns a table holding the given rows, in the given order.
// Row slices are shared with the receiver.
func (t *Table) Subset(rows []int) *Table {
	sub := make([][]string, len(rows))
	origins := make([]origin, len(rows))
	for i, r := range rows {
		sub[i] = t.rows[r]
		origins[i] = t.origins[r]
	}
	return newTable(t.columns, sub, origins)
}

// Strings returns the column as text; missing cells come back as "".
func (t *Table) Strings(column string) ([]string, error) {
	v, err := t.decode("str:"+column, column, func(ci int) (any, error) {
		out := make([]string, len(t.rows))
		for i, row := range t.rows {
			cell := strings.TrimSpace(row[ci])
			if _, na := naTokens[cell]; na {
				continue
			}
			out[i] = cell
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Floats returns the column as float64; missing cells are NaN.
func (t *Table) Floats(column string) ([]float64, error) {
	v, err := t.decode("f64:"+column, column, func(ci int) (any, error) {
		out := make([]float64, len(t.rows))
		for i, row := range t.rows {
			cell := strings.TrimSpace(row[ci])
			if _, na := naTokens[cell]; na {
				out[i] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, t.cellError(i, column, cell, "number")
			}
			out[i] = f
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// Ints returns the column as int64. Integral float text such as "3.0" is accepted.
func (t *Table) Ints(column string) (IntColumn, error) {
	v, err := t.decode("i64:"+column, column, func(ci int) (any, error) {
		col := IntColumn{
			Values: make([]int64, len(t.rows)),
			Valid:  make([]bool, len(t.rows)),
		}
		for i, row := range t.rows {
			cell := strings.TrimSpace(row[ci])
			if _, na := naTokens[cell]; na {
				continue
			}
			n, ok := parseInt(cell)
			if !ok {
				return nil, t.cellError(i, column, cell, "integer")
			}
			col.Values[i] = n
			col.Valid[i] = true
		}
		return col, nil
	})
	if err != nil {
		return IntColumn{}, err
	}
	return v.(IntColumn), nil
}

func (t *Table) decode(key, column string, fn func(ci int) (any, error)) (any, error) {
	ci, ok := t.index[column]
	if !ok {
		return nil, &MissingColumnError{Column: column}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.typed[key]; ok {
		return v, nil
	}
	v, err := fn(ci)
	if err != nil {
		return nil, err
	}
	t.typed[key] = v
	return v, nil
}

func (t *Table) cellError(row int, column, cell, kind string) error {
	o := t.origins[row]
	return &ParseError{
		Part:   o.part,
		Line:   o.line,
		Column: column,
		Err:    fmt.Errorf("invalid %s %q", kind, cell),
	}
}

func parseInt(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Concat stacks tables row-wise. Columns are unioned by name in first-seen
// order; cells for columns a table lacks are left empty.
func Concat(tables ...*Table) *Table {
	var columns []string
	seen := make(map[string]int)
	total := 0
	for _, t := range tables {
		total += len(t.rows)
		for _, c := range t.columns {
			if _, ok := seen[c]; !ok {
				seen[c] = len(columns)
				columns = append(columns, c)
			}
		}
	}

	rows := make([][]string, 0, total)
	origins := make([]origin, 0, total)
	for _, t := range tables {
		mapping := make([]int, len(t.columns))
		for i, c := range t.columns {
			mapping[i] = seen[c]
		}
		for r, src := range t.rows {
			row := make([]string, len(columns))
			for i, cell := range src {
				row[mapping[i]] = cell
			}
			rows = append(rows, row)
			origins = append(origins, t.origins[r])
		}
	}
	return newTable(columns, rows, origins)
}
