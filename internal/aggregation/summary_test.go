package aggregation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

func rankSample(t *testing.T, k int) ([]domain.RankedGroup, *Index[domain.GroupKey]) {
	t.Helper()
	ix, err := GroupByYearCategory(sampleTable(t))
	require.NoError(t, err)
	groups, err := NormalizeAll(context.Background(), ix, 0)
	require.NoError(t, err)
	ranked, err := TopKAll(context.Background(), groups, k, 0)
	require.NoError(t, err)
	return ranked, ix
}

func TestTotals(t *testing.T) {
	_, ix := rankSample(t, 1)

	totals := Totals(ix)
	assert.Equal(t, []int{1910, 1960, 2010}, totals.Rows)
	assert.Equal(t, []domain.Category{F, M}, totals.Cols)
	assert.Equal(t, [][]float64{{400, 500}, {400, 400}, {500, 500}}, totals.Values)
}

func TestTopShare(t *testing.T) {
	ranked, _ := rankSample(t, 1)

	share := TopShare(ranked)
	got, ok := share.At(1910, F)
	require.True(t, ok)
	assert.InDelta(t, 0.55, got, 1e-12)

	all, _ := rankSample(t, 10)
	share = TopShare(all)
	for i := range share.Rows {
		assert.InDeltaSlice(t, []float64{1, 1}, share.Values[i], 1e-9)
	}
}

func TestFilterCategory(t *testing.T) {
	ranked, _ := rankSample(t, 2)

	girls := FilterCategory(ranked, F)
	require.Len(t, girls, 3)
	for _, g := range girls {
		assert.Equal(t, F, g.Key.Category)
	}
	assert.Empty(t, FilterCategory(ranked, domain.CategoryUnknown))
}

func TestNameTrend(t *testing.T) {
	ranked, _ := rankSample(t, 3)

	trend, err := NameTrend(ranked, []string{"Mary", "Jacob"})
	require.NoError(t, err)
	assert.Equal(t, []int{1910, 1960, 2010}, trend.Rows)
	assert.Equal(t, [][]float64{{220, 0}, {120, 0}, {0, 220}}, trend.Values)
}

func TestNameTrend_Errors(t *testing.T) {
	ranked, _ := rankSample(t, 3)

	_, err := NameTrend(ranked, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NameTrend(ranked, []string{"Mary", "Mary"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = NameTrend(ranked, []string{"Mary", "Zed"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownKey)
}
