package aggregation

import (
	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

// KeyFunc derives the partition key of a record. Composite keys are plain
// comparable structs.
type KeyFunc[K comparable] func(domain.Record) K

// Index partitions a table. Each arena position belongs to exactly one key.
type Index[K comparable] struct {
	table   *Table
	keys    []K
	members map[K][]int
	totals  map[K]int64
}

type groupOptions struct {
	allowEmpty bool
}

// GroupOption configures GroupBy
type GroupOption func(*groupOptions)

// AllowEmpty lets GroupBy return an empty index for an empty table instead of
// failing.
func AllowEmpty() GroupOption {
	return func(o *groupOptions) {
		o.allowEmpty = true
	}
}

// GroupBy partitions t by key. Keys are kept in order of first appearance and
// members in ingestion order.
func GroupBy[K comparable](t *Table, key KeyFunc[K], opts ...GroupOption) (*Index[K], error) {
	var o groupOptions
	for _, opt := range opts {
		opt(&o)
	}
	if t.Len() == 0 && !o.allowEmpty {
		return nil, apperrors.NewEmptyInputError("group_by")
	}

	ix := &Index[K]{
		table:   t,
		members: make(map[K][]int),
		totals:  make(map[K]int64),
	}
	for i, r := range t.records {
		k := key(r)
		if _, ok := ix.members[k]; !ok {
			ix.keys = append(ix.keys, k)
		}
		ix.members[k] = append(ix.members[k], i)
		ix.totals[k] += r.Count
	}
	return ix, nil
}

// GroupByYearCategory partitions t by (year, category) with keys sorted by
// year, then category.
func GroupByYearCategory(t *Table, opts ...GroupOption) (*Index[domain.GroupKey], error) {
	ix, err := GroupBy[domain.GroupKey](t, domain.Record.Key, opts...)
	if err != nil {
		return nil, err
	}
	sortKeys(ix.keys)
	return ix, nil
}

// Table returns the indexed table
func (ix *Index[K]) Table() *Table {
	return ix.table
}

// Len returns the number of groups
func (ix *Index[K]) Len() int {
	return len(ix.keys)
}

// Keys returns the group keys
func (ix *Index[K]) Keys() []K {
	out := make([]K, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Has reports whether key names a group
func (ix *Index[K]) Has(key K) bool {
	_, ok := ix.members[key]
	return ok
}

// Members returns the arena positions of the group, in ingestion order
func (ix *Index[K]) Members(key K) []int {
	m := ix.members[key]
	out := make([]int, len(m))
	copy(out, m)
	return out
}

// Records returns the group's records in ingestion order
func (ix *Index[K]) Records(key K) []domain.Record {
	m := ix.members[key]
	out := make([]domain.Record, len(m))
	for i, pos := range m {
		out[i] = ix.table.records[pos]
	}
	return out
}

// Total returns the summed count of the group
func (ix *Index[K]) Total(key K) int64 {
	return ix.totals[key]
}
