package aggregation

import (
	"cmp"
	"fmt"
	"slices"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// Table is an immutable arena of records. Position in the arena is the
// canonical ingestion order: records sorted by Seq, ties kept in the order they
// were handed to NewTable.
type Table struct {
	records []domain.Record
}

type nameKey struct {
	name string
	key  domain.GroupKey
}

// NewTable validates records and builds the arena. Duplicate
// (name, year, category) rows are merged by summing their counts; the merged
// record keeps the earliest position.
func NewTable(records []domain.Record) (*Table, error) {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(records[a].Seq, records[b].Seq)
	})

	seen := make(map[nameKey]int, len(records))
	merged := make([]domain.Record, 0, len(records))
	for _, i := range order {
		r := records[i]
		if err := validateRecord(r); err != nil {
			return nil, err.WithContext("record", i)
		}

		k := nameKey{name: r.Name, key: r.Key()}
		if pos, ok := seen[k]; ok {
			merged[pos].Count += r.Count
			continue
		}
		seen[k] = len(merged)
		merged = append(merged, r)
	}

	return &Table{records: merged}, nil
}

func validateRecord(r domain.Record) *apperrors.AppError {
	switch {
	case r.Name == "":
		return apperrors.NewAppValidationError("record has an empty name")
	case !r.Category.Valid():
		return apperrors.NewAppValidationError(fmt.Sprintf("record %q has an invalid category", r.Name))
	case r.Count < 0:
		return apperrors.NewAppValidationError(fmt.Sprintf("record %q has a negative count %d", r.Name, r.Count))
	}
	return nil
}

// Len returns the number of logical records
func (t *Table) Len() int {
	return len(t.records)
}

// At returns the record at arena position i
func (t *Table) At(i int) domain.Record {
	return t.records[i]
}

// Records returns a copy of the arena
func (t *Table) Records() []domain.Record {
	return slices.Clone(t.records)
}

// Years returns the distinct years in ascending order
func (t *Table) Years() []int {
	set := make(map[int]struct{})
	for _, r := range t.records {
		set[r.Year] = struct{}{}
	}
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}
