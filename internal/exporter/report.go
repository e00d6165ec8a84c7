package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"namerank/internal/aggregation"
)

// Report file names written by WriteReport
const (
	TotalsFile       = "totals.csv"
	TopShareFile     = "top_share.csv"
	DiversityFile    = "diversity.csv"
	DiversityTable   = "diversity_table.csv"
	LastLettersFile  = "last_letters.csv"
	LetterSharesFile = "letter_shares.csv"
	LetterTrendFile  = "letter_trend.csv"
	TopNamesFile     = "top_names.csv"
)

// WriteReport writes every part of report as its own CSV file and returns
// the names written. Optional views that are nil are skipped.
func (w *CSVWriter) WriteReport(ctx context.Context, report *aggregation.Report) ([]string, error) {
	var written []string
	writeFrame := func(name string, headers []string, records [][]string) error {
		if err := w.WriteCSV(name, WriteOptions{Headers: headers, Records: records, BOMPrefix: true}); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	if report.Totals != nil {
		h, r := FrameTable(report.Totals, "year")
		if err := writeFrame(TotalsFile, h, r); err != nil {
			return written, err
		}
	}
	if report.TopShare != nil {
		h, r := FrameTable(report.TopShare, "year")
		if err := writeFrame(TopShareFile, h, r); err != nil {
			return written, err
		}
	}
	if report.Diversity != nil {
		if err := writeFrame(DiversityFile, DiversityHeaders, DiversityRecords(report.Diversity)); err != nil {
			return written, err
		}
	}
	if report.DiversityTable != nil {
		h, r := FrameTable(report.DiversityTable, "year")
		if err := writeFrame(DiversityTable, h, r); err != nil {
			return written, err
		}
	}
	if report.Pivot != nil {
		h, r := FrameTable(report.Pivot, "letter")
		if err := writeFrame(LastLettersFile, h, r); err != nil {
			return written, err
		}
	}
	if report.YearSubset != nil {
		h, r := FrameTable(report.YearSubset, "letter")
		if err := writeFrame(LetterSharesFile, h, r); err != nil {
			return written, err
		}
	}
	if report.TimeSeries != nil {
		h, r := FrameTable(report.TimeSeries, "year")
		if err := writeFrame(LetterTrendFile, h, r); err != nil {
			return written, err
		}
	}

	if err := w.writeRanked(ctx, report); err != nil {
		return written, err
	}
	written = append(written, TopNamesFile)

	w.logger.InfoContext(ctx, "report written",
		slog.String("dir", w.dir),
		slog.Int("files", len(written)))
	return written, nil
}

func (w *CSVWriter) writeRanked(ctx context.Context, report *aggregation.Report) error {
	sw, err := w.CreateStreamWriter(TopNamesFile, RankedHeaders)
	if err != nil {
		return fmt.Errorf("write %s: %w", TopNamesFile, err)
	}
	for _, g := range report.Ranked {
		if err := ctx.Err(); err != nil {
			sw.Close()
			return err
		}
		for i, r := range g.Records {
			if err := sw.WriteRecord(RankedRecord(g.Key, i+1, r)); err != nil {
				sw.Close()
				return fmt.Errorf("write %s: %w", TopNamesFile, err)
			}
		}
	}
	return sw.Close()
}
