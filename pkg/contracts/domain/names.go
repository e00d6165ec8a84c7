package domain

import (
	"cmp"
	"fmt"
	"strings"
)

// Category is the closed set of partitions a name count belongs to (sex in the
// baby-names dataset). The zero value is invalid.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryFemale
	CategoryMale
)

// Categories lists every valid category in column order.
var Categories = []Category{CategoryFemale, CategoryMale}

// String returns the dataset code of the category ("F" or "M")
func (c Category) String() string {
	switch c {
	case CategoryFemale:
		return "F"
	case CategoryMale:
		return "M"
	default:
		return "?"
	}
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	return c == CategoryFemale || c == CategoryMale
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory converts a dataset code into a Category
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "F":
		return CategoryFemale, nil
	case "M":
		return CategoryMale, nil
	default:
		return CategoryUnknown, fmt.Errorf("unknown category %q", s)
	}
}

// Record is one ingested row: how many times a name was given in a year
// within a category. Records are immutable once ingested.
type Record struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Year     int      `json:"year"`
	Count    int64    `json:"count"`

	// Seq is the ingestion sequence number assigned by the loader. It orders
	// records for tie-breaking regardless of the order they are handed over in.
	Seq int64 `json:"seq"`
}

// Key returns the partition the record belongs to
func (r Record) Key() GroupKey {
	return GroupKey{Year: r.Year, Category: r.Category}
}

// GroupKey identifies one (year, category) partition of a record table.
type GroupKey struct {
	Year     int      `json:"year"`
	Category Category `json:"category"`
}

// Compare orders keys by year, then category
func (k GroupKey) Compare(other GroupKey) int {
	if c := cmp.Compare(k.Year, other.Year); c != 0 {
		return c
	}
	return cmp.Compare(k.Category, other.Category)
}

// String formats the key as "2000/M"
func (k GroupKey) String() string {
	return fmt.Sprintf("%d/%s", k.Year, k.Category)
}

// DerivedRecord is a Record with its share of the group total.
type DerivedRecord struct {
	Record

	// Index is the record's position in the canonical ingestion order.
	Index int `json:"index"`

	// Proportion is Count divided by the summed count of the record's group.
	Proportion float64 `json:"proportion"`
}

// RankedGroup holds the Limit highest-count records of a group, ordered by
// descending count.
type RankedGroup struct {
	Key     GroupKey        `json:"key"`
	Limit   int             `json:"limit"`
	Records []DerivedRecord `json:"records"`
}

// DiversityEntry is the number of top-ranked names whose cumulative
// proportion first passes Threshold within the group.
type DiversityEntry struct {
	Key       GroupKey `json:"key"`
	Threshold float64  `json:"threshold"`
	N         int      `json:"n"`
}
