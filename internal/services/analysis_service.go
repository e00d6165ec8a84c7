package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"namerank/internal/aggregation"
	"namerank/internal/config"
	apperrors "namerank/internal/errors"
	"namerank/internal/infrastructure"
	"namerank/pkg/contracts/domain"
)

// SharedComputeTimeout bounds a cached computation. It runs detached from the
// caller that started it, since other callers may be waiting on the result.
var SharedComputeTimeout = 10 * time.Minute

// DatasetStats describes the loaded table
type DatasetStats struct {
	Records   int   `json:"records"`
	Groups    int   `json:"groups"`
	FirstYear int   `json:"first_year"`
	LastYear  int   `json:"last_year"`
	Total     int64 `json:"total"`
}

// DiversityResult is the diversity index per group and as a year by category table
type DiversityResult struct {
	Quantile float64                                  `json:"quantile"`
	Entries  []domain.DiversityEntry                  `json:"entries"`
	Table    *aggregation.Frame[int, domain.Category] `json:"table"`
}

// AnalysisService answers analysis queries over one immutable table. Results
// are deterministic for the table, so they are cached by query parameters.
type AnalysisService struct {
	table    *aggregation.Table
	index    *aggregation.Index[domain.GroupKey]
	engine   *aggregation.Engine
	defaults aggregation.AnalysisRequest
	maxGroup int
	cache    *gocache.Cache
	flight   singleflight.Group
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
}

// RequestFromConfig turns the analysis config section into engine parameters
func RequestFromConfig(cfg config.AnalysisConfig) (aggregation.AnalysisRequest, error) {
	category, err := domain.ParseCategory(cfg.TrendCategory)
	if err != nil {
		return aggregation.AnalysisRequest{}, apperrors.NewConfigError("invalid trend category", err)
	}
	return aggregation.AnalysisRequest{
		TopK:          cfg.TopK,
		Quantile:      cfg.Quantile,
		PivotYears:    cfg.PivotYears,
		TrendCategory: category,
		TrendKeys:     cfg.TrendLetters,
		Concurrency:   cfg.Concurrency,
	}, nil
}

// NewAnalysisService indexes table and prepares the cache. metrics may be nil.
func NewAnalysisService(
	table *aggregation.Table,
	engine *aggregation.Engine,
	defaults aggregation.AnalysisRequest,
	cacheCfg config.CacheConfig,
	metrics *infrastructure.Metrics,
	logger *slog.Logger,
) (*AnalysisService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	index, err := aggregation.GroupByYearCategory(table)
	if err != nil {
		return nil, fmt.Errorf("index table: %w", err)
	}

	s := &AnalysisService{
		table:    table,
		index:    index,
		engine:   engine,
		defaults: defaults,
		maxGroup: largestGroup(index),
		metrics:  metrics,
		logger:   logger.With(slog.String("service", "analysis")),
	}
	if cacheCfg.Enabled {
		s.cache = gocache.New(cacheCfg.TTL, cacheCfg.CleanupInterval)
	}
	return s, nil
}

// Defaults returns the configured analysis parameters
func (s *AnalysisService) Defaults() aggregation.AnalysisRequest {
	return s.defaults
}

// Stats summarizes the dataset
func (s *AnalysisService) Stats() DatasetStats {
	years := s.table.Years()
	stats := DatasetStats{
		Records: s.table.Len(),
		Groups:  s.index.Len(),
	}
	if len(years) > 0 {
		stats.FirstYear = years[0]
		stats.LastYear = years[len(years)-1]
	}
	for _, k := range s.index.Keys() {
		stats.Total += s.index.Total(k)
	}
	return stats
}

// Report runs the full engine. Requests with a custom secondary key are not
// cached.
func (s *AnalysisService) Report(ctx context.Context, req aggregation.AnalysisRequest) (*aggregation.Report, error) {
	if req.SecondaryKey != nil {
		return s.engine.Analyze(ctx, s.table, req)
	}
	key := fmt.Sprintf("report:%d:%g:%v:%s:%s", req.TopK, req.Quantile, req.PivotYears,
		req.TrendCategory, strings.Join(req.TrendKeys, ","))
	return cached(ctx, s, key, func(ctx context.Context) (*aggregation.Report, error) {
		return s.engine.Analyze(ctx, s.table, req)
	})
}

// Totals returns the summed count per year and category
func (s *AnalysisService) Totals(ctx context.Context) (*aggregation.Frame[int, domain.Category], error) {
	return cached(ctx, s, "totals", func(context.Context) (*aggregation.Frame[int, domain.Category], error) {
		return aggregation.Totals(s.index), nil
	})
}

// Ranked returns the k highest-count names of every group. k above the largest
// group size ranks whole groups and is reported as that size in Limit.
func (s *AnalysisService) Ranked(ctx context.Context, k int) ([]domain.RankedGroup, error) {
	if k < 1 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("k must be positive, got %d", k))
	}
	k = min(k, s.maxGroup)
	groups, err := s.normalized(ctx)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, fmt.Sprintf("ranked:%d", k), func(ctx context.Context) ([]domain.RankedGroup, error) {
		return aggregation.TopKAll(ctx, groups, k, s.defaults.Concurrency)
	})
}

// TopNames returns the ranked records of one group
func (s *AnalysisService) TopNames(ctx context.Context, key domain.GroupKey, k int) (domain.RankedGroup, error) {
	if !s.index.Has(key) {
		return domain.RankedGroup{}, apperrors.NewUnknownKeyError("group", key.String())
	}
	ranked, err := s.Ranked(ctx, k)
	if err != nil {
		return domain.RankedGroup{}, err
	}
	for _, g := range ranked {
		if g.Key == key {
			return g, nil
		}
	}
	return domain.RankedGroup{}, apperrors.NewUnknownKeyError("group", key.String())
}

// TopShare returns the share of each group covered by its top k names
func (s *AnalysisService) TopShare(ctx context.Context, k int) (*aggregation.Frame[int, domain.Category], error) {
	ranked, err := s.Ranked(ctx, k)
	if err != nil {
		return nil, err
	}
	return aggregation.TopShare(ranked), nil
}

// Diversity computes the diversity index at q over the default top-K groups
func (s *AnalysisService) Diversity(ctx context.Context, q float64) (*DiversityResult, error) {
	ranked, err := s.Ranked(ctx, s.defaults.TopK)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, fmt.Sprintf("diversity:%d:%g", s.defaults.TopK, q), func(ctx context.Context) (*DiversityResult, error) {
		entries, err := aggregation.DiversityAll(ctx, ranked, q, s.defaults.Concurrency)
		if err != nil {
			return nil, err
		}
		return &DiversityResult{
			Quantile: q,
			Entries:  entries,
			Table:    aggregation.UnstackDiversity(entries),
		}, nil
	})
}

// YearSubset returns the last-letter shares of the given years
func (s *AnalysisService) YearSubset(ctx context.Context, years []int) (*aggregation.Frame[string, aggregation.CategoryYear], error) {
	pivot, err := s.pivot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregation.YearSubsetView(pivot, years)
}

// LetterTrend returns the yearly share of each letter within category
func (s *AnalysisService) LetterTrend(ctx context.Context, category domain.Category, letters []string) (*aggregation.Frame[int, string], error) {
	pivot, err := s.pivot(ctx)
	if err != nil {
		return nil, err
	}
	return aggregation.TimeSeriesView(pivot, category, letters)
}

// NameTrend follows names through the default top-K groups. A valid category
// restricts the trend to that category; CategoryUnknown sums over both.
func (s *AnalysisService) NameTrend(ctx context.Context, names []string, category domain.Category) (*aggregation.Frame[int, string], error) {
	ranked, err := s.Ranked(ctx, s.defaults.TopK)
	if err != nil {
		return nil, err
	}
	if category.Valid() {
		ranked = aggregation.FilterCategory(ranked, category)
	}
	return aggregation.NameTrend(ranked, names)
}

func (s *AnalysisService) normalized(ctx context.Context) ([]aggregation.Group, error) {
	return cached(ctx, s, "normalized", func(ctx context.Context) ([]aggregation.Group, error) {
		return aggregation.NormalizeAll(ctx, s.index, s.defaults.Concurrency)
	})
}

func (s *AnalysisService) pivot(ctx context.Context) (*aggregation.PivotTable, error) {
	return cached(ctx, s, "pivot", func(context.Context) (*aggregation.PivotTable, error) {
		return aggregation.BuildPivot(s.table, s.defaults.SecondaryKey)
	})
}

func largestGroup(ix *aggregation.Index[domain.GroupKey]) int {
	largest := 0
	for _, k := range ix.Keys() {
		largest = max(largest, len(ix.Members(k)))
	}
	return largest
}

// cached returns the value stored under key or computes it once, sharing the
// computation between concurrent callers. The computation does not inherit the
// caller's cancellation; each caller stops waiting when its own ctx ends.
// Errors are not cached.
func cached[T any](ctx context.Context, s *AnalysisService, key string, compute func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return compute(ctx)
	}

	kind := key
	if i := strings.IndexByte(key, ':'); i >= 0 {
		kind = key[:i]
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))

	if v, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Add(ctx, 1, attrs)
		}
		return v.(T), nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Add(ctx, 1, attrs)
	}

	ch := s.flight.DoChan(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedComputeTimeout)
		defer cancel()
		result, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(key, result)
		s.logger.DebugContext(cctx, "analysis cached", slog.String("key", key))
		return result, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
