package aggregation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// DefaultQuantile is the share of a group's mass the diversity index covers
const DefaultQuantile = 0.5

// Diversity returns how many names, taken by descending proportion, it takes
// for their cumulative proportion to pass q.
//
// n counts the entries whose inclusive running sum is <= q and the result is
// n+1 clipped to the group size. When the running sum lands exactly on q this
// counts one name more than the smallest covering prefix; that matches the
// published figures and is kept.
//
// q <= 0 yields 1 and q >= 1 yields len(group). An empty group is an error.
func Diversity(group []domain.DerivedRecord, q float64) (int, error) {
	if len(group) == 0 {
		return 0, apperrors.NewEmptyGroupError("")
	}
	if math.IsNaN(q) {
		return 0, apperrors.NewAppValidationError("diversity threshold is NaN")
	}
	if q <= 0 {
		return 1, nil
	}
	if q >= 1 {
		return len(group), nil
	}

	sorted := slices.Clone(group)
	slices.SortFunc(sorted, func(a, b domain.DerivedRecord) int {
		if c := cmp.Compare(b.Proportion, a.Proportion); c != 0 {
			return c
		}
		return IngestionOrder(a, b)
	})

	var cumsum float64
	n := 0
	for _, r := range sorted {
		cumsum += r.Proportion
		if cumsum <= q {
			n++
		}
	}
	return min(n+1, len(sorted)), nil
}

// DiversityAll computes the diversity index of every ranked group.
func DiversityAll(ctx context.Context, ranked []domain.RankedGroup, q float64, limit int) ([]domain.DiversityEntry, error) {
	entries := make([]domain.DiversityEntry, len(ranked))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, group := range ranked {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := Diversity(group.Records, q)
			if err != nil {
				var appErr *apperrors.AppError
				if errors.As(err, &appErr) {
					appErr.WithContext("group", group.Key.String()).WithContext("threshold", q)
				}
				return fmt.Errorf("diversity of %s at q=%g: %w", group.Key, q, err)
			}
			entries[i] = domain.DiversityEntry{Key: group.Key, Threshold: q, N: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UnstackDiversity lays entries out as year rows by category columns. Cells
// without an entry are 0.
func UnstackDiversity(entries []domain.DiversityEntry) *Frame[int, domain.Category] {
	years, cats := axesOf(entries, func(e domain.DiversityEntry) domain.GroupKey { return e.Key })
	f := NewFrame(years, cats)
	for _, e := range entries {
		f.Set(e.Key.Year, e.Key.Category, float64(e.N))
	}
	return f
}
