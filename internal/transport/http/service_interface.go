package http

import (
	"context"

	"namerank/internal/aggregation"
	"namerank/internal/services"
	"namerank/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the read operations served over HTTP
type AnalysisServiceInterface interface {
	Defaults() aggregation.AnalysisRequest
	Stats() services.DatasetStats
	Report(ctx context.Context, req aggregation.AnalysisRequest) (*aggregation.Report, error)
	Totals(ctx context.Context) (*aggregation.Frame[int, domain.Category], error)
	TopNames(ctx context.Context, key domain.GroupKey, k int) (domain.RankedGroup, error)
	TopShare(ctx context.Context, k int) (*aggregation.Frame[int, domain.Category], error)
	Diversity(ctx context.Context, q float64) (*services.DiversityResult, error)
	YearSubset(ctx context.Context, years []int) (*aggregation.Frame[string, aggregation.CategoryYear], error)
	LetterTrend(ctx context.Context, category domain.Category, letters []string) (*aggregation.Frame[int, string], error)
	NameTrend(ctx context.Context, names []string, category domain.Category) (*aggregation.Frame[int, string], error)
}

var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
