// Package aggregation implements grouped aggregation and ranking over an
// immutable table of per-year name counts.
//
// # Architecture
//
// The package is organized leaf to root:
//
//  1. Table: immutable arena of records in canonical ingestion order
//  2. Index: partitions a table by a composite key
//  3. Normalize: converts counts into within-group proportions
//  4. TopK: ranks and truncates each group
//  5. Diversity: cumulative-threshold distinct-name count per group
//  6. BuildPivot and its views: secondary-key cross-tabulation re-normalized per column
//
// Engine.Analyze runs the ranking branch (3-5) and the cross-tabulation branch
// (6) concurrently. Every function is pure; the table is shared read-only.
//
// # Usage
//
//	table, err := aggregation.NewTable(records)
//	if err != nil {
//	    return err
//	}
//	report, err := aggregation.NewEngine(logger).Analyze(ctx, table, aggregation.DefaultRequest())
//
// # Ordering
//
// Ties are never left to sort stability. Records carry their position in the
// canonical ingestion order (DerivedRecord.Index) and every ranking compares it
// explicitly after the primary key.
//
// # Error Handling
//
// Failures are *errors.AppError values from internal/errors and
// match the sentinels ErrEmptyInput, ErrZeroTotal, ErrEmptyGroup and
// ErrUnknownKey through errors.Is. The error context names the group, year or
// key that triggered it.
package aggregation
