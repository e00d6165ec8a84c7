package aggregation

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// TieBreak orders two records whose primary ranking value is equal. It returns
// a negative number when a ranks higher.
type TieBreak func(a, b domain.DerivedRecord) int

// IngestionOrder ranks the record ingested first higher.
func IngestionOrder(a, b domain.DerivedRecord) int {
	return cmp.Compare(a.Index, b.Index)
}

// byCountDesc is a total order: count descending, then tb.
func byCountDesc(tb TieBreak) func(a, b domain.DerivedRecord) int {
	return func(a, b domain.DerivedRecord) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return tb(a, b)
	}
}

// TopK returns the k records with the largest count, ordered by descending
// count. The result has length min(k, len(group)); k <= 0 yields an empty
// slice. A nil tb means IngestionOrder. The input is not modified.
func TopK(group []domain.DerivedRecord, k int, tb TieBreak) []domain.DerivedRecord {
	if k <= 0 {
		return []domain.DerivedRecord{}
	}
	if tb == nil {
		tb = IngestionOrder
	}

	sorted := slices.Clone(group)
	slices.SortFunc(sorted, byCountDesc(tb))
	if k < len(sorted) {
		sorted = slices.Clip(sorted[:k])
	}
	return sorted
}

// TopKAll ranks every group. An empty group is an error rather than an empty
// ranking.
func TopKAll(ctx context.Context, groups []Group, k int, limit int) ([]domain.RankedGroup, error) {
	ranked := make([]domain.RankedGroup, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, group := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(group.Records) == 0 {
				return fmt.Errorf("top %d: %w", k, apperrors.NewEmptyGroupError(group.Key.String()))
			}
			ranked[i] = domain.RankedGroup{
				Key:     group.Key,
				Limit:   k,
				Records: TopK(group.Records, k, IngestionOrder),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(ranked, func(a, b domain.RankedGroup) int {
		return a.Key.Compare(b.Key)
	})
	return ranked, nil
}
