// Package dashboard builds the per-tab view models: tiles, captions and
// rendered charts. Every Build function is pure over the table it is given.
package dashboard

import (
	"cmp"
	"errors"
	"fmt"
	"html/template"
	"slices"
	"strconv"

	"gonum.org/v1/plot/vg"

	"salesdash/internal/charts"
	"salesdash/internal/dataset"
	"salesdash/internal/metrics"
)

// Caption kinds.
const (
	CaptionInfo    = "info"
	CaptionNote    = "caption"
	CaptionWarning = "warning"
)

// Seasonality views.
const (
	ViewWeekday = "weekday"
	ViewWeek    = "week"
	ViewMonth   = "month"
)

// SeasonalityViews lists the seasonality sub-tabs in display order.
var SeasonalityViews = []Option{
	{Value: ViewWeekday, Label: "Day of Week"},
	{Value: ViewWeek, Label: "Weeks of the Year"},
	{Value: ViewMonth, Label: "Months of the Year"},
}

// Tile is a single headline metric.
type Tile struct {
	Label string
	Value string
}

// Caption is the explanatory text under a chart.
type Caption struct {
	Kind string
	Lead string
	Text string
}

// LegendEntry is one formatted donut legend line.
type LegendEntry struct {
	Label string
	Color string
	Share string
}

// Chart is a rendered chart. Empty charts carry no SVG.
type Chart struct {
	Title   string
	SVG     template.HTML
	Empty   bool
	Caption Caption
	Legend  []LegendEntry
}

// Option is a selector entry.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Global is the executive summary tab.
type Global struct {
	Tiles          []Tile
	TopCategories  Chart
	Stores         Chart
	PromotedStores Chart
	Seasonality    Seasonality
}

// Seasonality is the nested weekday / week / month view.
type Seasonality struct {
	Views    []Option
	View     string
	FellBack bool
	Chart    Chart
}

// Store is the per-store drill-down tab.
type Store struct {
	Options  []Option
	Selected int64
	FellBack bool
	Tiles    []Tile
	Yearly   Chart
	Insight  Caption
}

// State is the regional tab.
type State struct {
	Options      []Option
	Selected     string
	FellBack     bool
	Transactions Chart
	Ranking      Chart
	TopFamily    Tile
	Mix          Chart
	Conclusion   Caption
}

// Advanced is the strategic insights tab.
type Advanced struct {
	Efficiency Chart
	Note       Caption
	Heatmap    Chart
	Conclusion Caption
}

// BuildGlobal builds the Global tab with the given seasonality view.
func BuildGlobal(t *dataset.Table, view string) (Global, error) {
	ov, err := metrics.OverviewOf(t)
	if err != nil {
		return Global{}, err
	}
	g := Global{
		Tiles: []Tile{
			{Label: "Active Stores", Value: FormatCount(ov.Stores)},
			{Label: "Rows (Volume)", Value: FormatCount(ov.Rows)},
			{Label: "Geographic Presence", Value: fmt.Sprintf("%d States", ov.States)},
			{Label: "Period Analyzed", Value: fmt.Sprintf("%d Months", ov.Months)},
		},
	}

	top, err := metrics.TopCategories(t, metrics.TopCategoriesN)
	if err != nil {
		return Global{}, err
	}
	g.TopCategories, err = chart("Top 10 Product Categories by Sales",
		Caption{CaptionInfo, "Conclusion:", "These product families drive cash flow. Keeping the leading categories in stock is critical."},
	)(charts.HorizontalBars(bars(top, label), charts.Purples, charts.Options{XLabel: "sales"}))
	if err != nil {
		return Global{}, err
	}

	stores, err := metrics.SalesByStore(t)
	if err != nil {
		return Global{}, err
	}
	g.Stores, err = chart("Sales Distribution by Store",
		Caption{CaptionNote, "Contribution:", "Highlights performance gaps between stores so the practices of the leaders can be replicated in the laggards."},
	)(charts.VerticalBars(bars(stores, intLabel), charts.Purples, charts.Options{XLabel: "store_nbr", YLabel: "sales"}))
	if err != nil {
		return Global{}, err
	}

	promoted, err := metrics.TopPromotedStores(t, metrics.TopStoresN)
	if err != nil {
		return Global{}, err
	}
	g.PromotedStores, err = chart("Top 10 Stores: Promotion Effectiveness",
		Caption{CaptionInfo, "Analysis:", "These stores show the highest price sensitivity. They are the best candidates for inventory clearance campaigns."},
	)(charts.VerticalBars(bars(promoted, intLabel), charts.Blues, charts.Options{XLabel: "store_nbr", YLabel: "sales"}))
	if err != nil {
		return Global{}, err
	}

	if g.Seasonality, err = BuildSeasonality(t, view); err != nil {
		return Global{}, err
	}
	return g, nil
}

// BuildSeasonality builds one seasonality sub-tab. Unknown views fall back to weekday.
func BuildSeasonality(t *dataset.Table, view string) (Seasonality, error) {
	s := Seasonality{View: view}
	if !slices.ContainsFunc(SeasonalityViews, func(o Option) bool { return o.Value == view }) {
		s.View, s.FellBack = ViewWeekday, view != ""
	}
	s.Views = selectOptions(SeasonalityViews, s.View)

	var err error
	switch s.View {
	case ViewWeek:
		var weeks []metrics.Pair[int64]
		if weeks, err = metrics.MeanSalesByWeek(t); err != nil {
			return Seasonality{}, err
		}
		points := make([]charts.Point, len(weeks))
		for i, w := range weeks {
			points[i] = charts.Point{X: float64(w.Key), Y: w.Value}
		}
		s.Chart, err = chart("Mean Sales by Week of the Year",
			Caption{CaptionNote, "Analysis:", "Shows the yearly peaks (holidays) and valleys used to plan seasonal purchasing."},
		)(charts.Area(points, charts.Options{XLabel: "week", YLabel: "sales"}))
	case ViewMonth:
		var months []metrics.Pair[string]
		if months, err = metrics.MeanSalesByMonth(t); err != nil {
			return Seasonality{}, err
		}
		s.Chart, err = chart("Mean Sales by Month", Caption{})(
			charts.VerticalBars(bars(months, label), charts.Viridis, charts.Options{XLabel: "month", YLabel: "sales"}))
	default:
		var days []metrics.Pair[string]
		if days, err = metrics.MeanSalesByWeekday(t); err != nil {
			return Seasonality{}, err
		}
		s.Chart, err = chart("Mean Sales by Day of Week",
			Caption{CaptionNote, "Conclusion:", "Identifies the busiest days to optimize staffing and receiving logistics."},
		)(charts.VerticalBars(bars(days, label), charts.Purples, charts.Options{XLabel: "day_of_week", YLabel: "sales"}))
	}
	if err != nil {
		return Seasonality{}, err
	}
	return s, nil
}

// BuildStore builds the Store tab for the raw store selection. Unknown or empty
// selections resolve to the first store.
func BuildStore(t *dataset.Table, store string) (Store, error) {
	ids, err := metrics.StoreOptions(t)
	if err != nil {
		return Store{}, err
	}
	if len(ids) == 0 {
		return Store{}, fmt.Errorf("store options: %w", metrics.ErrEmptyGroup)
	}

	s := Store{Selected: ids[0]}
	if n, err := strconv.ParseInt(store, 10, 64); err == nil && slices.Contains(ids, n) {
		s.Selected = n
	} else {
		s.FellBack = store != ""
	}
	for _, id := range ids {
		v := intLabel(id)
		s.Options = append(s.Options, Option{Value: v, Label: v, Selected: id == s.Selected})
	}

	sum, err := metrics.StoreSummaryOf(t, s.Selected)
	if err != nil {
		return Store{}, err
	}
	ratio := "0%"
	if sum.HasSales() {
		ratio = FormatPercent(sum.PromoRatio)
	}
	s.Tiles = []Tile{
		{Label: "Store Total Sales", Value: FormatAmount(sum.TotalSales)},
		{Label: "Promoted Sales", Value: FormatAmount(sum.PromotedSales)},
		{Label: "Promo Dependency", Value: ratio},
	}

	s.Yearly, err = chart("Yearly Sales Trend", Caption{})(
		charts.VerticalBars(bars(sum.Yearly, intLabel), charts.Purples, charts.Options{XLabel: "year", YLabel: "sales"}))
	if err != nil {
		return Store{}, err
	}
	s.Insight = Caption{CaptionInfo, "Insight:", fmt.Sprintf("This chart shows the organic growth of Store %d year over year.", s.Selected)}
	return s, nil
}

// BuildState builds the State tab for the raw state selection. Unknown or empty
// selections resolve to the first state in table order.
func BuildState(t *dataset.Table, state string) (State, error) {
	names, err := metrics.StateOptions(t)
	if err != nil {
		return State{}, err
	}
	if len(names) == 0 {
		return State{}, fmt.Errorf("state options: %w", metrics.ErrEmptyGroup)
	}

	s := State{Selected: names[0]}
	if slices.Contains(names, state) {
		s.Selected = state
	} else {
		s.FellBack = state != ""
	}
	for _, n := range names {
		s.Options = append(s.Options, Option{Value: n, Label: n, Selected: n == s.Selected})
	}

	sum, err := metrics.StateSummaryOf(t, s.Selected)
	if err != nil {
		return State{}, err
	}

	s.Transactions, err = chart("Yearly Transaction Volume - "+s.Selected,
		Caption{CaptionNote, "Contribution:", "Measures customer loyalty and visit frequency in the region beyond monetary value."},
	)(charts.LineMarkers(bars(sum.YearlyTransactions, intLabel), charts.Options{XLabel: "year", YLabel: "transactions"}))
	if err != nil {
		return State{}, err
	}

	s.Ranking, err = chart("Store Ranking in the State", Caption{})(
		charts.HorizontalBars(bars(sum.TopStores, intLabel), charts.Purples, charts.Options{XLabel: "sales"}))
	if err != nil {
		return State{}, err
	}

	s.TopFamily = Tile{Label: "Top Selling Category", Value: sum.TopFamily}

	slicesIn := make([]charts.Slice, len(sum.FamilyMix))
	for i, f := range sum.FamilyMix {
		slicesIn[i] = charts.Slice{Label: f.Family, Value: f.Sales}
	}
	svg, legend, err := charts.Donut(slicesIn, charts.Purples, 0)
	s.Mix, err = chart("Leading Product Mix", Caption{})(svg, err)
	if err != nil {
		return State{}, err
	}
	for _, l := range legend {
		s.Mix.Legend = append(s.Mix.Legend, LegendEntry{Label: l.Label, Color: l.Color, Share: FormatPercent(l.Share)})
	}

	s.Conclusion = Caption{CaptionInfo, "Regional conclusion:", fmt.Sprintf(
		"In %s, the %s category dominates the market. The top 5 account for most of the local revenue.", s.Selected, sum.TopFamily)}
	return s, nil
}

// BuildAdvanced builds the efficiency scatter and the cluster heatmap.
func BuildAdvanced(t *dataset.Table) (Advanced, error) {
	points, err := metrics.Efficiency(t)
	if err != nil {
		return Advanced{}, err
	}
	bubbles := make([]charts.Bubble, len(points))
	for i, p := range points {
		bubbles[i] = charts.Bubble{Label: p.Family, X: p.MeanPromotion, Y: p.Sales, Size: p.Sales}
	}

	a := Advanced{
		Note: Caption{CaptionWarning, "Strategic note:", "Products at the top left are stars that sell well without discounts. Those to the right rely heavily on promotions to build volume."},
		Conclusion: Caption{CaptionInfo, "Conclusion:", "This map reveals which store clusters peak on specific days, enabling a smarter logistics distribution."},
	}
	a.Efficiency, err = chart("Efficiency Analysis: Sales vs. Promotion Intensity", Caption{})(
		charts.Bubbles(bubbles, charts.RdPu, charts.Options{XLabel: "mean onpromotion", YLabel: "sales", Height: 12 * vg.Centimeter}))
	if err != nil {
		return Advanced{}, err
	}

	hm, err := metrics.ClusterHeatmap(t)
	if err != nil {
		return Advanced{}, err
	}
	cols := make([]string, len(hm.Clusters))
	for i, c := range hm.Clusters {
		cols[i] = strconv.FormatInt(c, 10)
	}
	a.Heatmap, err = chart("Heatmap: Sales Concentration by Cluster", Caption{})(
		charts.HeatMap(charts.Grid{Rows: hm.Days, Cols: cols, Cells: hm.Cells}, charts.Purples, charts.Options{XLabel: "cluster", YLabel: "day_of_week"}))
	if err != nil {
		return Advanced{}, err
	}
	return a, nil
}

// chart wraps a render result, mapping ErrNoData to an empty chart.
func chart(title string, caption Caption) func(template.HTML, error) (Chart, error) {
	return func(svg template.HTML, err error) (Chart, error) {
		c := Chart{Title: title, SVG: svg, Caption: caption}
		if errors.Is(err, charts.ErrNoData) {
			c.Empty, c.SVG = true, ""
			return c, nil
		}
		if err != nil {
			return Chart{}, fmt.Errorf("%s: %w", title, err)
		}
		return c, nil
	}
}

func bars[K cmp.Ordered](pairs []metrics.Pair[K], name func(K) string) []charts.Bar {
	out := make([]charts.Bar, len(pairs))
	for i, p := range pairs {
		out[i] = charts.Bar{Label: name(p.Key), Value: p.Value}
	}
	return out
}

func label(s string) string { return s }

func intLabel(n int64) string { return strconv.FormatInt(n, 10) }

func selectOptions(opts []Option, value string) []Option {
	out := slices.Clone(opts)
	for i := range out {
		out[i].Selected = out[i].Value == value
	}
	return out
}
