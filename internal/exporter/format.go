package exporter

import (
	"fmt"
	"strconv"

	"namerank/internal/aggregation"
	"namerank/pkg/contracts/domain"
)

// RankedHeaders are the columns of a flattened ranking
var RankedHeaders = []string{"year", "category", "rank", "name", "count", "proportion"}

// DiversityHeaders are the columns of a diversity listing
var DiversityHeaders = []string{"year", "category", "threshold", "n"}

// FormatFloat renders v with the fewest digits that round-trip
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FrameTable flattens a frame into a header line and one record per row.
// corner names the row label column.
func FrameTable[R comparable, C comparable](f *aggregation.Frame[R, C], corner string) ([]string, [][]string) {
	headers := make([]string, 0, len(f.Cols)+1)
	headers = append(headers, corner)
	for _, c := range f.Cols {
		headers = append(headers, fmt.Sprint(c))
	}

	records := make([][]string, len(f.Rows))
	for i, r := range f.Rows {
		rec := make([]string, 0, len(f.Cols)+1)
		rec = append(rec, fmt.Sprint(r))
		for _, v := range f.Values[i] {
			rec = append(rec, FormatFloat(v))
		}
		records[i] = rec
	}
	return headers, records
}

// RankedRecord renders one ranked name; rank starts at 1
func RankedRecord(key domain.GroupKey, rank int, r domain.DerivedRecord) []string {
	return []string{
		strconv.Itoa(key.Year),
		key.Category.String(),
		strconv.Itoa(rank),
		r.Name,
		strconv.FormatInt(r.Count, 10),
		FormatFloat(r.Proportion),
	}
}

// DiversityRecords renders diversity entries
func DiversityRecords(entries []domain.DiversityEntry) [][]string {
	out := make([][]string, len(entries))
	for i, e := range entries {
		out[i] = []string{
			strconv.Itoa(e.Key.Year),
			e.Key.Category.String(),
			FormatFloat(e.Threshold),
			strconv.Itoa(e.N),
		}
	}
	return out
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
