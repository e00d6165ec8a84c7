package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

const (
	// TracerName identifies spans and instruments of the engine
	TracerName = "namerank.aggregation"

	// DefaultTopK is the number of names kept per (year, category)
	DefaultTopK = 1000
)

// AnalysisRequest selects what Engine.Analyze computes. Empty PivotYears or
// TrendKeys skip the corresponding cross-tabulation view.
type AnalysisRequest struct {
	TopK          int
	Quantile      float64
	PivotYears    []int
	TrendCategory domain.Category
	TrendKeys     []string

	// SecondaryKey defaults to LastLetter
	SecondaryKey SecondaryKeyFunc

	// Concurrency bounds per-group fan-out; <= 0 uses GOMAXPROCS
	Concurrency int
}

// DefaultRequest reproduces the classic baby-names analysis
func DefaultRequest() AnalysisRequest {
	return AnalysisRequest{
		TopK:          DefaultTopK,
		Quantile:      DefaultQuantile,
		PivotYears:    []int{1910, 1960, 2010},
		TrendCategory: domain.CategoryMale,
		TrendKeys:     []string{"d", "n", "y"},
	}
}

func (r AnalysisRequest) validate() error {
	if r.TopK < 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("top k must not be negative, got %d", r.TopK))
	}
	if math.IsNaN(r.Quantile) {
		return apperrors.NewAppValidationError("quantile is NaN")
	}
	if len(r.TrendKeys) > 0 && !r.TrendCategory.Valid() {
		return apperrors.NewAppValidationError("trend keys given without a valid trend category")
	}
	return nil
}

// Report is everything Analyze derives from one table
type Report struct {
	Groups         []domain.GroupKey            `json:"groups"`
	Totals         *Frame[int, domain.Category] `json:"totals"`
	Ranked         []domain.RankedGroup         `json:"ranked"`
	TopShare       *Frame[int, domain.Category] `json:"top_share"`
	Diversity      []domain.DiversityEntry      `json:"diversity"`
	DiversityTable *Frame[int, domain.Category] `json:"diversity_table"`
	Pivot          *PivotTable                  `json:"pivot"`
	YearSubset     *Frame[string, CategoryYear] `json:"year_subset,omitempty"`
	TimeSeries     *Frame[int, string]          `json:"time_series,omitempty"`
}

// Engine orchestrates the ranking and cross-tabulation branches
type Engine struct {
	logger          *slog.Logger
	tracer          trace.Tracer
	groupsProcessed metric.Int64Counter
	stageDuration   metric.Float64Histogram
}

// NewEngine creates an engine instrumented with the global OpenTelemetry
// providers.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "aggregation"))

	meter := otel.Meter(TracerName)
	groupsProcessed, err := meter.Int64Counter(
		"namerank_groups_processed_total",
		metric.WithDescription("Total number of groups processed per stage"),
	)
	if err != nil {
		logger.Warn("failed to create groups counter", slog.String("error", err.Error()))
		groupsProcessed = noop.Int64Counter{}
	}
	stageDuration, err := meter.Float64Histogram(
		"namerank_stage_duration_seconds",
		metric.WithDescription("Aggregation stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create stage histogram", slog.String("error", err.Error()))
		stageDuration = noop.Float64Histogram{}
	}

	return &Engine{
		logger:          logger,
		tracer:          otel.Tracer(TracerName),
		groupsProcessed: groupsProcessed,
		stageDuration:   stageDuration,
	}
}

// Analyze runs the ranking branch (group, normalize, rank, diversity) and the
// cross-tabulation branch (pivot and its views) concurrently.
func (e *Engine) Analyze(ctx context.Context, t *Table, req AnalysisRequest) (*Report, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Concurrency <= 0 {
		req.Concurrency = runtime.GOMAXPROCS(0)
	}

	ctx, span := e.tracer.Start(ctx, "aggregation.analyze",
		trace.WithAttributes(
			attribute.Int("records", t.Len()),
			attribute.Int("top_k", req.TopK),
			attribute.Float64("quantile", req.Quantile),
		),
	)
	defer span.End()

	start := time.Now()
	e.logger.InfoContext(ctx, "starting analysis",
		slog.Int("records", t.Len()),
		slog.Int("top_k", req.TopK),
		slog.Float64("quantile", req.Quantile),
		slog.Int("concurrency", req.Concurrency))

	report := &Report{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.rankingBranch(gctx, t, req, report)
	})
	g.Go(func() error {
		return e.crossTabBranch(gctx, t, req, report)
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.ErrorContext(ctx, "analysis failed", slog.String("error", err.Error()))
		return nil, err
	}

	e.logger.InfoContext(ctx, "analysis completed",
		slog.Int("groups", len(report.Groups)),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

// rankingBranch and crossTabBranch write disjoint fields of report.
func (e *Engine) rankingBranch(ctx context.Context, t *Table, req AnalysisRequest, report *Report) error {
	var ix *Index[domain.GroupKey]
	if err := e.stage(ctx, "group", 0, func(ctx context.Context) (int, error) {
		var err error
		ix, err = GroupByYearCategory(t)
		if err != nil {
			return 0, err
		}
		return ix.Len(), nil
	}); err != nil {
		return err
	}
	report.Groups = ix.Keys()
	report.Totals = Totals(ix)

	var groups []Group
	if err := e.stage(ctx, "normalize", ix.Len(), func(ctx context.Context) (int, error) {
		var err error
		groups, err = NormalizeAll(ctx, ix, req.Concurrency)
		return len(groups), err
	}); err != nil {
		return err
	}

	if err := e.stage(ctx, "top_k", len(groups), func(ctx context.Context) (int, error) {
		var err error
		report.Ranked, err = TopKAll(ctx, groups, req.TopK, req.Concurrency)
		return len(report.Ranked), err
	}); err != nil {
		return err
	}
	report.TopShare = TopShare(report.Ranked)

	if req.TopK == 0 {
		return nil
	}
	if err := e.stage(ctx, "diversity", len(report.Ranked), func(ctx context.Context) (int, error) {
		var err error
		report.Diversity, err = DiversityAll(ctx, report.Ranked, req.Quantile, req.Concurrency)
		return len(report.Diversity), err
	}); err != nil {
		return err
	}
	report.DiversityTable = UnstackDiversity(report.Diversity)
	return nil
}

func (e *Engine) crossTabBranch(ctx context.Context, t *Table, req AnalysisRequest, report *Report) error {
	return e.stage(ctx, "cross_tab", 0, func(ctx context.Context) (int, error) {
		pivot, err := BuildPivot(t, req.SecondaryKey)
		if err != nil {
			return 0, err
		}
		report.Pivot = pivot

		if len(req.PivotYears) > 0 {
			if report.YearSubset, err = YearSubsetView(pivot, req.PivotYears); err != nil {
				return 0, fmt.Errorf("year subset view: %w", err)
			}
		}
		if len(req.TrendKeys) > 0 {
			if report.TimeSeries, err = TimeSeriesView(pivot, req.TrendCategory, req.TrendKeys); err != nil {
				return 0, fmt.Errorf("time series view: %w", err)
			}
		}
		return len(pivot.Cols), nil
	})
}

// stage wraps fn in a span, records its duration and the number of groups it
// processed.
func (e *Engine) stage(ctx context.Context, name string, groups int, fn func(context.Context) (int, error)) error {
	ctx, span := e.tracer.Start(ctx, "aggregation."+name,
		trace.WithAttributes(attribute.Int("groups.in", groups)))
	defer span.End()

	start := time.Now()
	processed, err := fn(ctx)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("stage", name))
	e.stageDuration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	e.groupsProcessed.Add(ctx, int64(processed), attrs)
	span.SetAttributes(attribute.Int("groups.out", processed))

	e.logger.DebugContext(ctx, "stage completed",
		slog.String("stage", name),
		slog.Int("groups", processed),
		slog.Duration("duration", elapsed))
	return nil
}
