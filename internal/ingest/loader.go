// Package ingest reads the per-year name count files into records.
//
// Each year lives in its own file named after Options.Pattern (yob1910.txt)
// holding "name,category,count" lines without a header. A file may instead be
// stored lz4-compressed with an extra ".lz4" suffix.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"namerank/internal/aggregation"
	"namerank/internal/config"
	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// CompressedSuffix marks an lz4-compressed year file
const CompressedSuffix = ".lz4"

// Options selects the files to read
type Options struct {
	Dir       string
	Pattern   string
	FirstYear int
	LastYear  int

	// Concurrency bounds parallel file reads; <= 0 means unbounded
	Concurrency int
}

// OptionsFrom maps the dataset section of the application config
func OptionsFrom(cfg config.DatasetConfig) Options {
	return Options{
		Dir:         cfg.Dir,
		Pattern:     cfg.Pattern,
		FirstYear:   cfg.FirstYear,
		LastYear:    cfg.LastYear,
		Concurrency: cfg.Concurrency,
	}
}

func (o Options) validate() error {
	if o.Dir == "" {
		return apperrors.NewConfigError("dataset directory is empty", nil)
	}
	if !strings.Contains(o.Pattern, "%d") {
		return apperrors.NewConfigError(fmt.Sprintf("file pattern %q has no year placeholder", o.Pattern), nil)
	}
	if o.FirstYear > o.LastYear {
		return apperrors.NewConfigError(fmt.Sprintf("first year %d is after last year %d", o.FirstYear, o.LastYear), nil)
	}
	return nil
}

// Path returns the uncompressed path of the file holding year
func (o Options) Path(year int) string {
	return filepath.Join(o.Dir, fmt.Sprintf(o.Pattern, year))
}

// Loader reads a range of year files
type Loader struct {
	opts    Options
	logger  *slog.Logger
	records metric.Int64Counter
}

// NewLoader creates a loader for opts
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	counter, err := otel.Meter("namerank.ingest").Int64Counter(
		"namerank_records_ingested_total",
		metric.WithDescription("Total number of records read from the dataset"),
	)
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &Loader{
		opts:    opts,
		logger:  logger.With(slog.String("component", "ingest")),
		records: counter,
	}
}

// Load reads every year from FirstYear to LastYear. Years are read
// concurrently but concatenated in year order, and Seq numbers the records in
// that order starting at 0.
func (l *Loader) Load(ctx context.Context) ([]domain.Record, error) {
	if err := l.opts.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	years := l.opts.LastYear - l.opts.FirstYear + 1
	perYear := make([][]domain.Record, years)

	g, gctx := errgroup.WithContext(ctx)
	if l.opts.Concurrency > 0 {
		g.SetLimit(l.opts.Concurrency)
	}
	for i := range perYear {
		year := l.opts.FirstYear + i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := l.loadYear(year)
			if err != nil {
				return err
			}
			perYear[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, rs := range perYear {
		total += len(rs)
	}
	out := make([]domain.Record, 0, total)
	for _, rs := range perYear {
		for _, r := range rs {
			r.Seq = int64(len(out))
			out = append(out, r)
		}
	}

	l.records.Add(ctx, int64(len(out)))
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dir", l.opts.Dir),
		slog.Int("years", years),
		slog.Int("records", len(out)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// LoadTable is Load followed by aggregation.NewTable
func (l *Loader) LoadTable(ctx context.Context) (*aggregation.Table, error) {
	records, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return aggregation.NewTable(records)
}

func (l *Loader) loadYear(year int) ([]domain.Record, error) {
	path := l.opts.Path(year)
	rc, source, err := openYear(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, err := ReadYear(rc, year, source)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("year file read",
		slog.String("file", source),
		slog.Int("year", year),
		slog.Int("records", len(records)))
	return records, nil
}

type lz4File struct {
	*lz4.Reader
	f *os.File
}

func (c lz4File) Close() error {
	return c.f.Close()
}

// openYear opens path, or path+".lz4" when only the compressed file exists.
func openYear(path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, path, apperrors.NewStorageError("open year file", err).WithContext("file", path)
	}

	compressed := path + CompressedSuffix
	f, err = os.Open(compressed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, path, apperrors.NewNotFoundError("year file " + filepath.Base(path)).WithContext("file", path)
		}
		return nil, compressed, apperrors.NewStorageError("open year file", err).WithContext("file", compressed)
	}
	return lz4File{Reader: lz4.NewReader(f), f: f}, compressed, nil
}

// ReadYear parses one year file. source names the input in errors.
func ReadYear(r io.Reader, year int, source string) ([]domain.Record, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = 3
	reader.ReuseRecord = true

	var records []domain.Record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, parseError(source, line, err)
		}

		line, _ := reader.FieldPos(0)
		rec, err := parseRecord(fields, year)
		if err != nil {
			return nil, parseError(source, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(fields []string, year int) (domain.Record, error) {
	name := strings.TrimSpace(fields[0])
	if name == "" {
		return domain.Record{}, errors.New("empty name")
	}
	category, err := domain.ParseCategory(fields[1])
	if err != nil {
		return domain.Record{}, err
	}
	count, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("invalid count %q", fields[2])
	}
	if count < 0 {
		return domain.Record{}, fmt.Errorf("negative count %d", count)
	}
	return domain.Record{Name: name, Category: category, Year: year, Count: count}, nil
}

func parseError(source string, line int, err error) error {
	return apperrors.NewParsingError(fmt.Sprintf("%s:%d", filepath.Base(source), line), err).
		WithContext("file", source).
		WithContext("line", line)
}
