package aggregation

import (
	"fmt"
	"slices"
	"unicode/utf8"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// SecondaryKeyFunc derives the cross-tabulation row of a record
type SecondaryKeyFunc func(domain.Record) string

// LastLetter keys a record by the final character of its name
func LastLetter(r domain.Record) string {
	_, size := utf8.DecodeLastRuneInString(r.Name)
	return r.Name[len(r.Name)-size:]
}

// PivotTable holds summed counts by secondary key (rows) and (year, category)
// (columns). Rows are sorted, columns ordered by GroupKey.Compare. A
// (key, column) pair without records is 0.
type PivotTable = Frame[string, domain.GroupKey]

// CategoryYear is a pivot column with the nesting swapped: category first.
type CategoryYear struct {
	Category domain.Category `json:"category"`
	Year     int             `json:"year"`
}

// String formats the column as "M/1910"
func (c CategoryYear) String() string {
	return fmt.Sprintf("%s/%d", c.Category, c.Year)
}

// BuildPivot cross-tabulates t by fn against (year, category).
func BuildPivot(t *Table, fn SecondaryKeyFunc) (*PivotTable, error) {
	if t.Len() == 0 {
		return nil, apperrors.NewEmptyInputError("build_pivot")
	}
	if fn == nil {
		fn = LastLetter
	}

	rowKeys := make([]string, t.Len())
	rowSet := make(map[string]struct{})
	colSet := make(map[domain.GroupKey]struct{})
	for i, r := range t.records {
		rowKeys[i] = fn(r)
		rowSet[rowKeys[i]] = struct{}{}
		colSet[r.Key()] = struct{}{}
	}

	rows := make([]string, 0, len(rowSet))
	for k := range rowSet {
		rows = append(rows, k)
	}
	slices.Sort(rows)
	cols := make([]domain.GroupKey, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sortKeys(cols)

	rowPos := positions(rows)
	colPos := positions(cols)
	p := NewFrame(rows, cols)
	for i, r := range t.records {
		p.Values[rowPos[rowKeys[i]]][colPos[r.Key()]] += float64(r.Count)
	}
	return p, nil
}

// YearSubsetView keeps the columns of the listed years, divides each column by
// its own sum and regroups the columns by category: all years of the first
// category in request order, then the next category.
func YearSubsetView(p *PivotTable, years []int) (*Frame[string, CategoryYear], error) {
	if len(years) == 0 {
		return nil, apperrors.NewAppValidationError("year subset needs at least one year")
	}
	if dup, ok := firstDuplicate(years); ok {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("year %d requested twice", dup))
	}

	present := make(map[int]bool)
	for _, c := range p.Cols {
		present[c.Year] = true
	}
	for _, y := range years {
		if !present[y] {
			return nil, apperrors.NewUnknownKeyError("year", y)
		}
	}

	var cols []CategoryYear
	var src []int
	for _, cat := range domain.Categories {
		for _, y := range years {
			j := p.ColIndex(domain.GroupKey{Year: y, Category: cat})
			if j < 0 {
				continue
			}
			cols = append(cols, CategoryYear{Category: cat, Year: y})
			src = append(src, j)
		}
	}

	view := NewFrame(slices.Clone(p.Rows), cols)
	for j, from := range src {
		sum := p.ColumnSum(from)
		if sum == 0 {
			return nil, apperrors.NewZeroTotalError(p.Cols[from].String())
		}
		for i := range p.Rows {
			view.Values[i][j] = p.Values[i][from] / sum
		}
	}
	return view, nil
}

// TimeSeriesView divides every column of category by its own sum and returns
// one series per requested key: rows are years ascending, columns the keys in
// request order.
func TimeSeriesView(p *PivotTable, category domain.Category, keys []string) (*Frame[int, string], error) {
	if len(keys) == 0 {
		return nil, apperrors.NewAppValidationError("time series needs at least one key")
	}
	if dup, ok := firstDuplicate(keys); ok {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("key %q requested twice", dup))
	}

	var years []int
	var src []int
	for j, c := range p.Cols {
		if c.Category == category {
			years = append(years, c.Year)
			src = append(src, j)
		}
	}
	if len(src) == 0 {
		return nil, apperrors.NewUnknownKeyError("category", category.String())
	}

	rowIdx := make([]int, len(keys))
	for k, key := range keys {
		rowIdx[k] = p.RowIndex(key)
		if rowIdx[k] < 0 {
			return nil, apperrors.NewUnknownKeyError("key", key)
		}
	}

	view := NewFrame(years, slices.Clone(keys))
	for yi, from := range src {
		sum := p.ColumnSum(from)
		if sum == 0 {
			return nil, apperrors.NewZeroTotalError(p.Cols[from].String())
		}
		for k, i := range rowIdx {
			view.Values[yi][k] = p.Values[i][from] / sum
		}
	}
	return view, nil
}

func positions[T comparable](items []T) map[T]int {
	pos := make(map[T]int, len(items))
	for i, it := range items {
		pos[it] = i
	}
	return pos
}

func firstDuplicate[T comparable](items []T) (T, bool) {
	seen := make(map[T]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			return it, true
		}
		seen[it] = struct{}{}
	}
	var zero T
	return zero, false
}
