package aggregation

import (
	"slices"

	"namerank/pkg/contracts/domain"
)

// Frame is a dense row-major matrix with labelled axes. Frames returned by this
// package are never modified afterwards.
type Frame[R comparable, C comparable] struct {
	Rows   []R         `json:"rows"`
	Cols   []C         `json:"columns"`
	Values [][]float64 `json:"values"`
}

// NewFrame allocates a zero-filled frame
func NewFrame[R comparable, C comparable](rows []R, cols []C) *Frame[R, C] {
	values := make([][]float64, len(rows))
	for i := range values {
		values[i] = make([]float64, len(cols))
	}
	return &Frame[R, C]{Rows: rows, Cols: cols, Values: values}
}

// RowIndex returns the position of row r or -1
func (f *Frame[R, C]) RowIndex(r R) int {
	return slices.Index(f.Rows, r)
}

// ColIndex returns the position of column c or -1
func (f *Frame[R, C]) ColIndex(c C) int {
	return slices.Index(f.Cols, c)
}

// At returns the cell at (r, c)
func (f *Frame[R, C]) At(r R, c C) (float64, bool) {
	i, j := f.RowIndex(r), f.ColIndex(c)
	if i < 0 || j < 0 {
		return 0, false
	}
	return f.Values[i][j], true
}

// Set stores v at (r, c). Unknown labels are ignored.
func (f *Frame[R, C]) Set(r R, c C, v float64) {
	i, j := f.RowIndex(r), f.ColIndex(c)
	if i < 0 || j < 0 {
		return
	}
	f.Values[i][j] = v
}

// ColumnSum adds column j top to bottom
func (f *Frame[R, C]) ColumnSum(j int) float64 {
	var sum float64
	for i := range f.Rows {
		sum += f.Values[i][j]
	}
	return sum
}

// axesOf collects the sorted distinct years and categories of items.
func axesOf[T any](items []T, key func(T) domain.GroupKey) ([]int, []domain.Category) {
	years := make(map[int]struct{})
	cats := make(map[domain.Category]struct{})
	for _, it := range items {
		k := key(it)
		years[k.Year] = struct{}{}
		cats[k.Category] = struct{}{}
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	slices.Sort(yearList)

	catList := make([]domain.Category, 0, len(cats))
	for _, c := range domain.Categories {
		if _, ok := cats[c]; ok {
			catList = append(catList, c)
		}
	}
	return yearList, catList
}
