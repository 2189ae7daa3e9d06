// Package export writes every dashboard aggregate to an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/xuri/excelize/v2"

	"salesdash/internal/dataset"
	"salesdash/internal/metrics"
)

// Sheet names in workbook order.
const (
	SheetTopCategories = "Top Categories"
	SheetStores        = "Stores"
	SheetPromoted      = "Promoted Stores"
	SheetWeekday       = "Weekday"
	SheetWeek          = "Week"
	SheetMonth         = "Month"
	SheetEfficiency    = "Efficiency"
	SheetHeatmap       = "Cluster Heatmap"
)

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

// Workbook builds the aggregate workbook for t. The caller must Close it.
func Workbook(t *dataset.Table) (*excelize.File, error) {
	sheets, err := collect(t)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			err = f.SetSheetName("Sheet1", s.name)
		} else {
			_, err = f.NewSheet(s.name)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %q: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %q: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for t to w.
func Write(w io.Writer, t *dataset.Table) error {
	f, err := Workbook(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(s.header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(s.name, "A", lastCol, 16); err != nil {
		return err
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func collect(t *dataset.Table) ([]sheet, error) {
	top, err := metrics.TopCategories(t, metrics.TopCategoriesN)
	if err != nil {
		return nil, err
	}
	stores, err := metrics.SalesByStore(t)
	if err != nil {
		return nil, err
	}
	promoted, err := metrics.TopPromotedStores(t, metrics.TopStoresN)
	if err != nil {
		return nil, err
	}
	weekday, err := metrics.MeanSalesByWeekday(t)
	if err != nil {
		return nil, err
	}
	week, err := metrics.MeanSalesByWeek(t)
	if err != nil {
		return nil, err
	}
	month, err := metrics.MeanSalesByMonth(t)
	if err != nil {
		return nil, err
	}
	efficiency, err := metrics.Efficiency(t)
	if err != nil {
		return nil, err
	}
	heat, err := metrics.ClusterHeatmap(t)
	if err != nil {
		return nil, err
	}

	effRows := make([][]any, len(efficiency))
	for i, p := range efficiency {
		effRows[i] = []any{p.Family, cellValue(p.Sales), cellValue(p.MeanPromotion)}
	}

	heatHeader := []any{metrics.ColDayOfWeek}
	for _, c := range heat.Clusters {
		heatHeader = append(heatHeader, "cluster "+strconv.FormatInt(c, 10))
	}
	heatRows := make([][]any, len(heat.Days))
	for i, d := range heat.Days {
		row := []any{d}
		for _, v := range heat.Cells[i] {
			row = append(row, cellValue(v))
		}
		heatRows[i] = row
	}

	return []sheet{
		{SheetTopCategories, []any{metrics.ColFamily, metrics.ColSales}, pairRows(top)},
		{SheetStores, []any{metrics.ColStore, metrics.ColSales}, pairRows(stores)},
		{SheetPromoted, []any{metrics.ColStore, metrics.ColSales}, pairRows(promoted)},
		{SheetWeekday, []any{metrics.ColDayOfWeek, "mean sales"}, pairRows(weekday)},
		{SheetWeek, []any{metrics.ColWeek, "mean sales"}, pairRows(week)},
		{SheetMonth, []any{metrics.ColMonth, "mean sales"}, pairRows(month)},
		{SheetEfficiency, []any{metrics.ColFamily, metrics.ColSales, "mean onpromotion"}, effRows},
		{SheetHeatmap, heatHeader, heatRows},
	}, nil
}

func pairRows[K string | int64](pairs []metrics.Pair[K]) [][]any {
	rows := make([][]any, len(pairs))
	for i, p := range pairs {
		rows[i] = []any{p.Key, cellValue(p.Value)}
	}
	return rows
}

// cellValue leaves missing values as blank cells.
func cellValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
