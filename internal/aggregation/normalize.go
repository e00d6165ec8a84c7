package aggregation

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// Group is one normalized partition.
type Group struct {
	Key     domain.GroupKey        `json:"key"`
	Records []domain.DerivedRecord `json:"records"`
}

// Normalize computes each member's share of the group total. Totals are exact
// integer sums; each proportion is a single division, so the members of a
// group sum to 1 within float rounding when accumulated in ingestion order.
func Normalize[K comparable](ix *Index[K], key K) ([]domain.DerivedRecord, error) {
	if !ix.Has(key) {
		return nil, apperrors.NewUnknownKeyError("group", fmt.Sprint(key))
	}
	total := ix.Total(key)
	if total == 0 {
		return nil, apperrors.NewZeroTotalError(fmt.Sprint(key))
	}

	members := ix.members[key]
	out := make([]domain.DerivedRecord, len(members))
	for i, pos := range members {
		r := ix.table.records[pos]
		out[i] = domain.DerivedRecord{
			Record:     r,
			Index:      pos,
			Proportion: float64(r.Count) / float64(total),
		}
	}
	return out, nil
}

// NormalizeAll normalizes every group of ix concurrently, at most limit at a
// time (no limit when limit <= 0). Groups come back in ix.Keys() order.
func NormalizeAll(ctx context.Context, ix *Index[domain.GroupKey], limit int) ([]Group, error) {
	keys := ix.Keys()
	groups := make([]Group, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := Normalize(ix, key)
			if err != nil {
				return fmt.Errorf("normalize %s: %w", key, err)
			}
			groups[i] = Group{Key: key, Records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

// SumProportions adds proportions in slice order in a single pass
func SumProportions(records []domain.DerivedRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.Proportion
	}
	return sum
}

func sortKeys(keys []domain.GroupKey) {
	slices.SortFunc(keys, domain.GroupKey.Compare)
}
