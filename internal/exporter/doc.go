// Package exporter writes analysis results as CSV files and Excel workbooks.
//
// Frames are written with their row labels in the first column and one
// column per frame column. Ranked groups are flattened to one line per name,
// ordered by year, category and rank.
//
// Files are created under the writer's output directory; relative names are
// resolved against it. CSV output optionally carries a UTF-8 BOM so that
// spreadsheet programs detect the encoding.
package exporter
