package aggregation

import (
	"fmt"
	"slices"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// Totals returns the summed count of every group as year rows by category
// columns.
func Totals(ix *Index[domain.GroupKey]) *Frame[int, domain.Category] {
	keys := ix.Keys()
	years, cats := axesOf(keys, func(k domain.GroupKey) domain.GroupKey { return k })
	f := NewFrame(years, cats)
	for _, k := range keys {
		f.Set(k.Year, k.Category, float64(ix.Total(k)))
	}
	return f
}

// TopShare returns, per year and category, the share of the group total
// covered by its ranked records.
func TopShare(ranked []domain.RankedGroup) *Frame[int, domain.Category] {
	years, cats := axesOf(ranked, func(g domain.RankedGroup) domain.GroupKey { return g.Key })
	f := NewFrame(years, cats)
	for _, g := range ranked {
		f.Set(g.Key.Year, g.Key.Category, SumProportions(g.Records))
	}
	return f
}

// FilterCategory keeps the ranked groups of one category
func FilterCategory(ranked []domain.RankedGroup, c domain.Category) []domain.RankedGroup {
	out := make([]domain.RankedGroup, 0, len(ranked)/2+1)
	for _, g := range ranked {
		if g.Key.Category == c {
			out = append(out, g)
		}
	}
	return out
}

// NameTrend follows the counts of the given names across years within the
// ranked records, summing over categories. Years in which a name is not
// ranked are 0; a name never ranked is an error.
func NameTrend(ranked []domain.RankedGroup, names []string) (*Frame[int, string], error) {
	if len(names) == 0 {
		return nil, apperrors.NewAppValidationError("name trend needs at least one name")
	}
	if dup, ok := firstDuplicate(names); ok {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("name %q requested twice", dup))
	}

	years, _ := axesOf(ranked, func(g domain.RankedGroup) domain.GroupKey { return g.Key })
	f := NewFrame(years, slices.Clone(names))
	yearPos := positions(years)
	namePos := positions(names)
	found := make([]bool, len(names))
	for _, g := range ranked {
		for _, r := range g.Records {
			j, ok := namePos[r.Name]
			if !ok {
				continue
			}
			f.Values[yearPos[g.Key.Year]][j] += float64(r.Count)
			found[j] = true
		}
	}
	for j, ok := range found {
		if !ok {
			return nil, apperrors.NewUnknownKeyError("name", names[j])
		}
	}
	return f, nil
}
