package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namerank/internal/aggregation"
	"namerank/internal/config"
	apperrors "namerank/internal/errors"
	"namerank/internal/infrastructure"
	"namerank/pkg/contracts/domain"
)

var (
	girls1910 = domain.GroupKey{Year: 1910, Category: domain.CategoryFemale}
	boys2010  = domain.GroupKey{Year: 2010, Category: domain.CategoryMale}
)

func testTable(t *testing.T) *aggregation.Table {
	t.Helper()
	rows := []struct {
		year  int
		cat   domain.Category
		name  string
		count int64
	}{
		{1910, domain.CategoryFemale, "Mary", 220},
		{1910, domain.CategoryFemale, "Helen", 100},
		{1910, domain.CategoryFemale, "Ruth", 80},
		{1910, domain.CategoryMale, "John", 300},
		{1910, domain.CategoryMale, "Edward", 120},
		{1910, domain.CategoryMale, "Henry", 80},
		{2010, domain.CategoryFemale, "Emma", 170},
		{2010, domain.CategoryFemale, "Sophia", 200},
		{2010, domain.CategoryMale, "Jacob", 220},
		{2010, domain.CategoryMale, "Ethan", 180},
		{2010, domain.CategoryMale, "Aiden", 100},
	}
	records := make([]domain.Record, len(rows))
	for i, r := range rows {
		records[i] = domain.Record{Name: r.name, Category: r.cat, Year: r.year, Count: r.count, Seq: int64(i)}
	}
	tbl, err := aggregation.NewTable(records)
	require.NoError(t, err)
	return tbl
}

func testDefaults() aggregation.AnalysisRequest {
	return aggregation.AnalysisRequest{
		TopK:          2,
		Quantile:      0.5,
		PivotYears:    []int{1910, 2010},
		TrendCategory: domain.CategoryMale,
		TrendKeys:     []string{"n", "y"},
	}
}

func newTestService(t *testing.T, cacheEnabled bool) *AnalysisService {
	t.Helper()
	svc, err := NewAnalysisService(
		testTable(t),
		aggregation.NewEngine(nil),
		testDefaults(),
		config.CacheConfig{Enabled: cacheEnabled, TTL: time.Minute, CleanupInterval: time.Minute},
		infrastructure.MustMetrics(),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func TestRequestFromConfig(t *testing.T) {
	req, err := RequestFromConfig(config.Default().Analysis)
	require.NoError(t, err)
	assert.Equal(t, aggregation.DefaultRequest().TopK, req.TopK)
	assert.Equal(t, domain.CategoryMale, req.TrendCategory)
	assert.Equal(t, []string{"d", "n", "y"}, req.TrendKeys)

	cfg := config.Default().Analysis
	cfg.TrendCategory = "X"
	_, err = RequestFromConfig(cfg)
	assert.Error(t, err)
}

func TestNewAnalysisService_EmptyTable(t *testing.T) {
	tbl, err := aggregation.NewTable(nil)
	require.NoError(t, err)

	_, err = NewAnalysisService(tbl, aggregation.NewEngine(nil), testDefaults(), config.CacheConfig{}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
}

func TestAnalysisService_Stats(t *testing.T) {
	stats := newTestService(t, false).Stats()

	assert.Equal(t, DatasetStats{Records: 11, Groups: 4, FirstYear: 1910, LastYear: 2010, Total: 1770}, stats)
}

func TestAnalysisService_TopNames(t *testing.T) {
	for _, cacheEnabled := range []bool{false, true} {
		svc := newTestService(t, cacheEnabled)

		group, err := svc.TopNames(context.Background(), boys2010, 2)
		require.NoError(t, err)
		require.Len(t, group.Records, 2)
		assert.Equal(t, "Jacob", group.Records[0].Name)
		assert.Equal(t, "Ethan", group.Records[1].Name)
		assert.InDelta(t, 0.44, group.Records[0].Proportion, 1e-12)

		_, err = svc.TopNames(context.Background(), domain.GroupKey{Year: 1960, Category: domain.CategoryMale}, 2)
		assert.ErrorIs(t, err, apperrors.ErrUnknownKey)

		_, err = svc.TopNames(context.Background(), boys2010, 0)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
}

func TestAnalysisService_CachesResults(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	first, err := svc.Ranked(ctx, 2)
	require.NoError(t, err)
	second, err := svc.Ranked(ctx, 2)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0], "second call is served from the cache")

	other, err := svc.Ranked(ctx, 3)
	require.NoError(t, err)
	assert.NotSame(t, &first[0], &other[0])
}

func TestAnalysisService_ConcurrentCallers(t *testing.T) {
	svc := newTestService(t, true)

	var wg sync.WaitGroup
	results := make([]*DiversityResult, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Diversity(context.Background(), 0.5)
			assert.NoError(t, err)
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Entries, r.Entries)
	}
}

func TestAnalysisService_Diversity(t *testing.T) {
	result, err := newTestService(t, false).Diversity(context.Background(), 0.5)
	require.NoError(t, err)

	assert.Equal(t, 0.5, result.Quantile)
	require.Len(t, result.Entries, 4)
	assert.Equal(t, []int{1910, 2010}, result.Table.Rows)
	// 1910/F: Mary 0.55; 2010/M: Jacob 0.44 then Ethan
	assert.Equal(t, [][]float64{{1, 1}, {1, 2}}, result.Table.Values)
}

func TestAnalysisService_Views(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	totals, err := svc.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{400, 500}, {370, 500}}, totals.Values)

	share, err := svc.TopShare(ctx, 1)
	require.NoError(t, err)
	got, ok := share.At(1910, domain.CategoryFemale)
	require.True(t, ok)
	assert.InDelta(t, 0.55, got, 1e-12)

	subset, err := svc.YearSubset(ctx, []int{1910})
	require.NoError(t, err)
	for j := range subset.Cols {
		assert.InDelta(t, 1.0, subset.ColumnSum(j), 1e-9)
	}

	trend, err := svc.LetterTrend(ctx, domain.CategoryMale, []string{"n"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6}, trend.Values[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.56}, trend.Values[1], 1e-12)

	names, err := svc.NameTrend(ctx, []string{"Mary", "Jacob"}, domain.CategoryUnknown)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{220, 0}, {0, 220}}, names.Values)

	_, err = svc.NameTrend(ctx, []string{"Mary", "Jacob"}, domain.CategoryFemale)
	assert.ErrorIs(t, err, apperrors.ErrUnknownKey, "Jacob is never ranked among girls")

	_, err = svc.YearSubset(ctx, []int{1960})
	assert.ErrorIs(t, err, apperrors.ErrUnknownKey)
}

func TestAnalysisService_Report(t *testing.T) {
	svc := newTestService(t, true)

	report, err := svc.Report(context.Background(), svc.Defaults())
	require.NoError(t, err)
	assert.Len(t, report.Ranked, 4)
	require.NotNil(t, report.YearSubset)
	require.NotNil(t, report.TimeSeries)

	again, err := svc.Report(context.Background(), svc.Defaults())
	require.NoError(t, err)
	assert.Same(t, report, again)

	custom := svc.Defaults()
	custom.SecondaryKey = func(r domain.Record) string { return r.Name[:1] }
	custom.TrendKeys = []string{"J"}
	fresh, err := svc.Report(context.Background(), custom)
	require.NoError(t, err)
	assert.NotSame(t, report, fresh)
}

func TestCached_CallerCancelDoesNotFailOthers(t *testing.T) {
	svc := newTestService(t, true)

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	compute := func(ctx context.Context) (int, error) {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-release:
			return 42, nil
		}
	}

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cached(ctx1, svc, "shared", compute)
		first <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := cached(context.Background(), svc, "shared", compute)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel1()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 42, got.v)

	v, ok := svc.cache.Get("shared")
	require.True(t, ok, "detached computation still fills the cache")
	assert.Equal(t, 42, v)
}

func TestRanked_OversizedKSharesCacheEntry(t *testing.T) {
	svc := newTestService(t, true)
	ctx := context.Background()

	for k := 1000; k < 1050; k++ {
		ranked, err := svc.Ranked(ctx, k)
		require.NoError(t, err)
		for _, g := range ranked {
			assert.Equal(t, 3, g.Limit)
		}
	}

	// "normalized" plus one ranking clamped to the largest group
	assert.Equal(t, 2, svc.cache.ItemCount())
	_, ok := svc.cache.Get("ranked:3")
	assert.True(t, ok)
}
