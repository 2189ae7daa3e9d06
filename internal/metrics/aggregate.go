// Package metrics is the fixed catalog of aggregate queries behind the dashboard.
//
// Every query groups the merged table by one or more dimension columns and
// reduces a measure. Group keys are visited in ascending order, rows with a
// missing key are dropped, sums skip missing measures and means average only
// the present ones. Rankings use a stable descending sort over that ascending
// key order, so equal measures keep ascending key order.
package metrics

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"salesdash/internal/dataset"
)

// Column names the queries depend on.
const (
	ColStore        = "store_nbr"
	ColState        = "state"
	ColFamily       = "family"
	ColSales        = "sales"
	ColOnPromotion  = "onpromotion"
	ColTransactions = "transactions"
	ColYear         = "year"
	ColMonth        = "month"
	ColWeek         = "week"
	ColDayOfWeek    = "day_of_week"
	ColCluster      = "cluster"
)

// ErrEmptyGroup is returned when a query needs at least one group and finds none.
var ErrEmptyGroup = errors.New("empty group")

// Weekdays is the canonical weekday order used by every weekday query.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MonthNames maps month 1..12 to its short label.
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Pair is one reduced group.
type Pair[K cmp.Ordered] struct {
	Key   K
	Value float64
}

type reduction int

const (
	reduceSum reduction = iota
	reduceMean
)

type accumulator struct {
	sum float64
	n   int
}

// aggregate groups vals by keys. Keys with valid[i] false are dropped.
func aggregate[K cmp.Ordered](keys []K, valid []bool, vals []float64, how reduction) []Pair[K] {
	groups := make(map[K]*accumulator)
	for i, k := range keys {
		if !valid[i] {
			continue
		}
		a, ok := groups[k]
		if !ok {
			a = &accumulator{}
			groups[k] = a
		}
		if v := vals[i]; !math.IsNaN(v) {
			a.sum += v
			a.n++
		}
	}

	ordered := make([]K, 0, len(groups))
	for k := range groups {
		ordered = append(ordered, k)
	}
	slices.Sort(ordered)

	out := make([]Pair[K], len(ordered))
	for i, k := range ordered {
		a := groups[k]
		v := a.sum
		if how == reduceMean {
			v = math.NaN()
			if a.n > 0 {
				v = a.sum / float64(a.n)
			}
		}
		out[i] = Pair[K]{Key: k, Value: v}
	}
	return out
}

// topN returns the n largest pairs, keeping key order among equal values.
// n <= 0 ranks every group.
func topN[K cmp.Ordered](pairs []Pair[K], n int) []Pair[K] {
	ranked := slices.Clone(pairs)
	slices.SortStableFunc(ranked, func(a, b Pair[K]) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// argmax returns the key of the first maximal pair in key order.
func argmax[K cmp.Ordered](pairs []Pair[K]) (K, error) {
	var best K
	if len(pairs) == 0 {
		return best, ErrEmptyGroup
	}
	bestV := math.Inf(-1)
	for i, p := range pairs {
		if i == 0 || p.Value > bestV {
			best, bestV = p.Key, p.Value
		}
	}
	return best, nil
}

func stringKeys(t *dataset.Table, column string) ([]string, []bool, error) {
	vals, err := t.Strings(column)
	if err != nil {
		return nil, nil, err
	}
	valid := make([]bool, len(vals))
	for i, v := range vals {
		valid[i] = v != ""
	}
	return vals, valid, nil
}

func intKeys(t *dataset.Table, column string) ([]int64, []bool, error) {
	col, err := t.Ints(column)
	if err != nil {
		return nil, nil, err
	}
	return col.Values, col.Valid, nil
}

func intsAsFloats(col dataset.IntColumn) []float64 {
	out := make([]float64, len(col.Values))
	for i, v := range col.Values {
		if !col.Valid[i] {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(v)
	}
	return out
}

// whereFloat returns the rows of t whose column value satisfies keep.
func whereFloat(t *dataset.Table, column string, keep func(float64) bool) (*dataset.Table, error) {
	vals, err := t.Floats(column)
	if err != nil {
		return nil, err
	}
	var rows []int
	for i, v := range vals {
		if keep(v) {
			rows = append(rows, i)
		}
	}
	return t.Subset(rows), nil
}

func sumFloats(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}

func countDistinct[K comparable](keys []K, valid []bool) int {
	seen := make(map[K]struct{})
	for i, k := range keys {
		if valid[i] {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}
