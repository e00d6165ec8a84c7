package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"namerank/internal/aggregation"
)

// Sheet names of the exported workbook
const (
	SheetTotals       = "Totals"
	SheetTopShare     = "TopShare"
	SheetDiversity    = "Diversity"
	SheetLastLetters  = "LastLetters"
	SheetLetterShares = "LetterShares"
	SheetLetterTrend  = "LetterTrend"
	SheetTopNames     = "TopNames"
)

// WorkbookExporter writes a report into a single .xlsx file
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger.With(slog.String("component", "workbook_exporter"))}
}

type sheet struct {
	name    string
	headers []string
	records [][]string
}

// Export writes report to path, one sheet per part of the report.
func (e *WorkbookExporter) Export(ctx context.Context, report *aggregation.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	var sheets []sheet
	add := func(name string, headers []string, records [][]string) {
		sheets = append(sheets, sheet{name: name, headers: headers, records: records})
	}
	if report.Totals != nil {
		h, r := FrameTable(report.Totals, "year")
		add(SheetTotals, h, r)
	}
	if report.TopShare != nil {
		h, r := FrameTable(report.TopShare, "year")
		add(SheetTopShare, h, r)
	}
	if report.DiversityTable != nil {
		h, r := FrameTable(report.DiversityTable, "year")
		add(SheetDiversity, h, r)
	}
	if report.Pivot != nil {
		h, r := FrameTable(report.Pivot, "letter")
		add(SheetLastLetters, h, r)
	}
	if report.YearSubset != nil {
		h, r := FrameTable(report.YearSubset, "letter")
		add(SheetLetterShares, h, r)
	}
	if report.TimeSeries != nil {
		h, r := FrameTable(report.TimeSeries, "year")
		add(SheetLetterTrend, h, r)
	}

	for _, s := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeSheet(f, s, header); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	if err := writeRankedSheet(ctx, f, report, header); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetTopNames, err)
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	e.logger.InfoContext(ctx, "workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(sheets)+1))
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return err
	}
	if err := setRow(f, s.name, 1, s.headers); err != nil {
		return err
	}
	if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, rec := range s.records {
		if err := setRow(f, s.name, i+2, rec); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes record at row, storing numeric cells as numbers.
func setRow(f *excelize.File, sheetName string, row int, record []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := cellValues(record)
	return f.SetSheetRow(sheetName, cell, &values)
}

func cellValues(record []string) []interface{} {
	values := make([]interface{}, len(record))
	for i, v := range record {
		if n, ok := parseNumber(v); ok {
			values[i] = n
		} else {
			values[i] = v
		}
	}
	return values
}

// writeRankedSheet streams the ranked names, which may run to hundreds of
// thousands of rows.
func writeRankedSheet(ctx context.Context, f *excelize.File, report *aggregation.Report, headerStyle int) error {
	if _, err := f.NewSheet(SheetTopNames); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetTopNames)
	if err != nil {
		return err
	}

	headers := make([]interface{}, len(RankedHeaders))
	for i, h := range RankedHeaders {
		headers[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	row := 2
	for _, g := range report.Ranked {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, r := range g.Records {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, []interface{}{g.Key.Year, g.Key.Category.String(), i + 1, r.Name, r.Count, r.Proportion}); err != nil {
				return err
			}
			row++
		}
	}
	return sw.Flush()
}
