package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"namerank/pkg/contracts/domain"
)

const (
	F = domain.CategoryFemale
	M = domain.CategoryMale
)

// recBuilder assigns Seq in call order.
type recBuilder struct {
	seq int64
}

func (b *recBuilder) rec(year int, c domain.Category, name string, count int64) domain.Record {
	b.seq++
	return domain.Record{Name: name, Category: c, Year: year, Count: count, Seq: b.seq}
}

func mustTable(t *testing.T, records ...domain.Record) *Table {
	t.Helper()
	tbl, err := NewTable(records)
	require.NoError(t, err)
	return tbl
}

func names(records []domain.DerivedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func proportions(ps ...float64) []domain.DerivedRecord {
	out := make([]domain.DerivedRecord, len(ps))
	for i, p := range ps {
		out[i] = domain.DerivedRecord{
			Record:     domain.Record{Name: string(rune('A' + i)), Category: M, Year: 2000},
			Index:      i,
			Proportion: p,
		}
	}
	return out
}

// sampleTable is a small two-decade dataset used across tests.
func sampleTable(t *testing.T) *Table {
	t.Helper()
	var b recBuilder
	return mustTable(t,
		b.rec(1910, F, "Mary", 220),
		b.rec(1910, F, "Helen", 100),
		b.rec(1910, F, "Ruth", 80),
		b.rec(1910, M, "John", 300),
		b.rec(1910, M, "Edward", 120),
		b.rec(1910, M, "Henry", 80),
		b.rec(1960, F, "Lisa", 150),
		b.rec(1960, F, "Mary", 120),
		b.rec(1960, F, "Susan", 130),
		b.rec(1960, M, "David", 200),
		b.rec(1960, M, "Michael", 180),
		b.rec(1960, M, "Gary", 20),
		b.rec(2010, F, "Emma", 170),
		b.rec(2010, F, "Sophia", 200),
		b.rec(2010, F, "Olivia", 130),
		b.rec(2010, M, "Jacob", 220),
		b.rec(2010, M, "Ethan", 180),
		b.rec(2010, M, "Aiden", 100),
	)
}
