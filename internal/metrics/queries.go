package metrics

import (
	"fmt"
	"math"
	"slices"

	"salesdash/internal/dataset"
)

const (
	TopCategoriesN = 10
	TopStoresN     = 10
	FamilyMixN     = 5
)

// Overview holds the global tile counts.
type Overview struct {
	Stores int
	Rows   int
	States int
	Months int
}

// OverviewOf counts distinct stores, states and months plus the row count.
func OverviewOf(t *dataset.Table) (Overview, error) {
	stores, storeOK, err := intKeys(t, ColStore)
	if err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	states, stateOK, err := stringKeys(t, ColState)
	if err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	months, monthOK, err := intKeys(t, ColMonth)
	if err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	return Overview{
		Stores: countDistinct(stores, storeOK),
		Rows:   t.NumRows(),
		States: countDistinct(states, stateOK),
		Months: countDistinct(months, monthOK),
	}, nil
}

// TopCategories ranks families by summed sales.
func TopCategories(t *dataset.Table, n int) ([]Pair[string], error) {
	pairs, err := sumByString(t, ColFamily, ColSales)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	return topN(pairs, n), nil
}

// SalesByStore ranks every store by summed sales.
func SalesByStore(t *dataset.Table) ([]Pair[int64], error) {
	pairs, err := sumByInt(t, ColStore, ColSales)
	if err != nil {
		return nil, fmt.Errorf("sales by store: %w", err)
	}
	return topN(pairs, 0), nil
}

// TopPromotedStores ranks stores by sales over rows with onpromotion > 0.
func TopPromotedStores(t *dataset.Table, n int) ([]Pair[int64], error) {
	promoted, err := whereFloat(t, ColOnPromotion, func(v float64) bool { return v > 0 })
	if err != nil {
		return nil, fmt.Errorf("top promoted stores: %w", err)
	}
	pairs, err := sumByInt(promoted, ColStore, ColSales)
	if err != nil {
		return nil, fmt.Errorf("top promoted stores: %w", err)
	}
	return topN(pairs, n), nil
}

// MeanSalesByWeekday averages sales per weekday in Monday..Sunday order.
// Labels outside the canonical seven and days without rows are omitted.
func MeanSalesByWeekday(t *dataset.Table) ([]Pair[string], error) {
	pairs, err := meanByString(t, ColDayOfWeek, ColSales)
	if err != nil {
		return nil, fmt.Errorf("mean sales by weekday: %w", err)
	}
	byDay := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		byDay[p.Key] = p.Value
	}
	out := make([]Pair[string], 0, len(Weekdays))
	for _, d := range Weekdays {
		if v, ok := byDay[d]; ok {
			out = append(out, Pair[string]{Key: d, Value: v})
		}
	}
	return out, nil
}

// MeanSalesByWeek averages sales per week number, ascending.
func MeanSalesByWeek(t *dataset.Table) ([]Pair[int64], error) {
	pairs, err := meanByInt(t, ColWeek, ColSales)
	if err != nil {
		return nil, fmt.Errorf("mean sales by week: %w", err)
	}
	return pairs, nil
}

// MeanSalesByMonth averages sales per month, ascending, keyed by short month name.
// Months outside 1..12 are dropped.
func MeanSalesByMonth(t *dataset.Table) ([]Pair[string], error) {
	pairs, err := meanByInt(t, ColMonth, ColSales)
	if err != nil {
		return nil, fmt.Errorf("mean sales by month: %w", err)
	}
	out := make([]Pair[string], 0, len(pairs))
	for _, p := range pairs {
		if p.Key < 1 || p.Key > 12 {
			continue
		}
		out = append(out, Pair[string]{Key: MonthNames[p.Key-1], Value: p.Value})
	}
	return out, nil
}

// StoreSummary is the drill-down for one store.
type StoreSummary struct {
	Store         int64
	TotalSales    float64
	PromotedSales float64
	// PromoRatio is promoted/total*100 in [0,100]; zero when TotalSales <= 0.
	PromoRatio float64
	Yearly     []Pair[int64]
}

// HasSales reports whether the store sold anything, which decides ratio formatting.
func (s StoreSummary) HasSales() bool { return s.TotalSales > 0 }

// StoreSummaryOf computes totals, promotion dependency and the yearly trend of a store.
func StoreSummaryOf(t *dataset.Table, store int64) (StoreSummary, error) {
	rows, err := whereInt(t, ColStore, store)
	if err != nil {
		return StoreSummary{}, fmt.Errorf("store summary: %w", err)
	}
	sales, err := rows.Floats(ColSales)
	if err != nil {
		return StoreSummary{}, fmt.Errorf("store summary: %w", err)
	}
	promo, err := rows.Floats(ColOnPromotion)
	if err != nil {
		return StoreSummary{}, fmt.Errorf("store summary: %w", err)
	}

	s := StoreSummary{Store: store}
	for i, v := range sales {
		if math.IsNaN(v) {
			continue
		}
		s.TotalSales += v
		if promo[i] > 0 {
			s.PromotedSales += v
		}
	}
	s.PromoRatio = PromoRatio(s.PromotedSales, s.TotalSales)

	s.Yearly, err = sumByInt(rows, ColYear, ColSales)
	if err != nil {
		return StoreSummary{}, fmt.Errorf("store summary: %w", err)
	}
	return s, nil
}

// PromoRatio returns promoted/total*100 clamped to [0,100], or 0 when total <= 0.
func PromoRatio(promoted, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(100, math.Max(0, promoted/total*100))
}

// FamilyShare is one slice of a state's family mix.
type FamilyShare struct {
	Family string
	Sales  float64
	// Share is the slice's percentage of the listed slices.
	Share float64
}

// StateSummary is the drill-down for one state.
type StateSummary struct {
	State              string
	YearlyTransactions []Pair[int64]
	TopStores          []Pair[int64]
	TopFamily          string
	FamilyMix          []FamilyShare
}

// StateSummaryOf computes the regional view of a state.
func StateSummaryOf(t *dataset.Table, state string) (StateSummary, error) {
	rows, err := whereString(t, ColState, state)
	if err != nil {
		return StateSummary{}, fmt.Errorf("state summary: %w", err)
	}

	s := StateSummary{State: state}
	years, yearOK, err := intKeys(rows, ColYear)
	if err != nil {
		return StateSummary{}, fmt.Errorf("state summary: %w", err)
	}
	tx, err := rows.Ints(ColTransactions)
	if err != nil {
		return StateSummary{}, fmt.Errorf("state summary: %w", err)
	}
	s.YearlyTransactions = aggregate(years, yearOK, intsAsFloats(tx), reduceSum)

	stores, err := sumByInt(rows, ColStore, ColSales)
	if err != nil {
		return StateSummary{}, fmt.Errorf("state summary: %w", err)
	}
	s.TopStores = topN(stores, TopStoresN)

	families, err := sumByString(rows, ColFamily, ColSales)
	if err != nil {
		return StateSummary{}, fmt.Errorf("state summary: %w", err)
	}
	if s.TopFamily, err = argmax(families); err != nil {
		return StateSummary{}, fmt.Errorf("state summary %q top family: %w", state, err)
	}

	top := topN(families, FamilyMixN)
	var total float64
	for _, p := range top {
		total += p.Value
	}
	s.FamilyMix = make([]FamilyShare, len(top))
	for i, p := range top {
		share := 0.0
		if total > 0 {
			share = p.Value / total * 100
		}
		s.FamilyMix[i] = FamilyShare{Family: p.Key, Sales: p.Value, Share: share}
	}
	return s, nil
}

// EfficiencyPoint places a family by total sales and mean promotion intensity.
type EfficiencyPoint struct {
	Family        string
	Sales         float64
	MeanPromotion float64
}

// Efficiency returns one point per family, ascending by family.
func Efficiency(t *dataset.Table) ([]EfficiencyPoint, error) {
	sales, err := sumByString(t, ColFamily, ColSales)
	if err != nil {
		return nil, fmt.Errorf("efficiency: %w", err)
	}
	promo, err := meanByString(t, ColFamily, ColOnPromotion)
	if err != nil {
		return nil, fmt.Errorf("efficiency: %w", err)
	}
	out := make([]EfficiencyPoint, len(sales))
	for i := range sales {
		out[i] = EfficiencyPoint{Family: sales[i].Key, Sales: sales[i].Value, MeanPromotion: promo[i].Value}
	}
	return out, nil
}

// Heatmap is the weekday x cluster matrix of mean sales. Cells[d][c] is NaN
// when the pair has no rows. Days always holds the seven canonical weekdays.
type Heatmap struct {
	Days     []string
	Clusters []int64
	Cells    [][]float64
}

// ClusterHeatmap pivots mean sales by (day_of_week, cluster).
func ClusterHeatmap(t *dataset.Table) (Heatmap, error) {
	days, err := t.Strings(ColDayOfWeek)
	if err != nil {
		return Heatmap{}, fmt.Errorf("cluster heatmap: %w", err)
	}
	clusters, err := t.Ints(ColCluster)
	if err != nil {
		return Heatmap{}, fmt.Errorf("cluster heatmap: %w", err)
	}
	sales, err := t.Floats(ColSales)
	if err != nil {
		return Heatmap{}, fmt.Errorf("cluster heatmap: %w", err)
	}

	dayIndex := make(map[string]int, len(Weekdays))
	for i, d := range Weekdays {
		dayIndex[d] = i
	}

	type cell struct {
		day     int
		cluster int64
	}
	acc := make(map[cell]*accumulator)
	seen := make(map[int64]struct{})
	for i, d := range days {
		if d == "" || !clusters.Valid[i] {
			continue
		}
		seen[clusters.Values[i]] = struct{}{}
		di, ok := dayIndex[d]
		if !ok {
			continue
		}
		k := cell{day: di, cluster: clusters.Values[i]}
		a, ok := acc[k]
		if !ok {
			a = &accumulator{}
			acc[k] = a
		}
		if v := sales[i]; !math.IsNaN(v) {
			a.sum += v
			a.n++
		}
	}

	h := Heatmap{Days: Weekdays[:]}
	for c := range seen {
		h.Clusters = append(h.Clusters, c)
	}
	slices.Sort(h.Clusters)

	h.Cells = make([][]float64, len(Weekdays))
	for di := range Weekdays {
		row := make([]float64, len(h.Clusters))
		for ci, c := range h.Clusters {
			row[ci] = math.NaN()
			if a, ok := acc[cell{day: di, cluster: c}]; ok && a.n > 0 {
				row[ci] = a.sum / float64(a.n)
			}
		}
		h.Cells[di] = row
	}
	return h, nil
}

// StoreOptions lists distinct stores ascending.
func StoreOptions(t *dataset.Table) ([]int64, error) {
	stores, ok, err := intKeys(t, ColStore)
	if err != nil {
		return nil, fmt.Errorf("store options: %w", err)
	}
	seen := make(map[int64]struct{})
	var out []int64
	for i, s := range stores {
		if _, dup := seen[s]; ok[i] && !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out, nil
}

// StateOptions lists distinct states in first-seen order.
func StateOptions(t *dataset.Table) ([]string, error) {
	states, err := t.Strings(ColState)
	if err != nil {
		return nil, fmt.Errorf("state options: %w", err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, s := range states {
		if _, dup := seen[s]; s != "" && !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

// TotalSales sums the sales column.
func TotalSales(t *dataset.Table) (float64, error) {
	sales, err := t.Floats(ColSales)
	if err != nil {
		return 0, fmt.Errorf("total sales: %w", err)
	}
	return sumFloats(sales), nil
}

func sumByString(t *dataset.Table, key, measure string) ([]Pair[string], error) {
	return reduceByString(t, key, measure, reduceSum)
}

func meanByString(t *dataset.Table, key, measure string) ([]Pair[string], error) {
	return reduceByString(t, key, measure, reduceMean)
}

func sumByInt(t *dataset.Table, key, measure string) ([]Pair[int64], error) {
	return reduceByInt(t, key, measure, reduceSum)
}

func meanByInt(t *dataset.Table, key, measure string) ([]Pair[int64], error) {
	return reduceByInt(t, key, measure, reduceMean)
}

func reduceByString(t *dataset.Table, key, measure string, how reduction) ([]Pair[string], error) {
	keys, ok, err := stringKeys(t, key)
	if err != nil {
		return nil, err
	}
	vals, err := t.Floats(measure)
	if err != nil {
		return nil, err
	}
	return aggregate(keys, ok, vals, how), nil
}

func reduceByInt(t *dataset.Table, key, measure string, how reduction) ([]Pair[int64], error) {
	keys, ok, err := intKeys(t, key)
	if err != nil {
		return nil, err
	}
	vals, err := t.Floats(measure)
	if err != nil {
		return nil, err
	}
	return aggregate(keys, ok, vals, how), nil
}

func whereInt(t *dataset.Table, column string, want int64) (*dataset.Table, error) {
	keys, ok, err := intKeys(t, column)
	if err != nil {
		return nil, err
	}
	var rows []int
	for i, k := range keys {
		if ok[i] && k == want {
			rows = append(rows, i)
		}
	}
	return t.Subset(rows), nil
}

func whereString(t *dataset.Table, column, want string) (*dataset.Table, error) {
	keys, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	var rows []int
	for i, k := range keys {
		if k == want {
			rows = append(rows, i)
		}
	}
	return t.Subset(rows), nil
}
