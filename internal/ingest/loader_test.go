package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "namerank/internal/errors"
	"namerank/pkg/contracts/domain"
)

func writeYear(t *testing.T, dir string, year int, content string) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("yob%d.txt", year))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeCompressedYear(t *testing.T, dir string, year int, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("yob%d.txt.lz4", year)))
	require.NoError(t, err)
	defer f.Close()

	zw := lz4.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func testOptions(dir string, first, last int) Options {
	return Options{Dir: dir, Pattern: "yob%d.txt", FirstYear: first, LastYear: last, Concurrency: 2}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2000, "Emma,F,80\nNoah,M,100\nLiam,M,50\n")
	writeCompressedYear(t, dir, 2001, "Olivia,F,70\r\nNoah,M,90\r\n")
	writeYear(t, dir, 2002, "")

	records, err := NewLoader(testOptions(dir, 2000, 2002), nil).Load(context.Background())
	require.NoError(t, err)

	want := []domain.Record{
		{Name: "Emma", Category: domain.CategoryFemale, Year: 2000, Count: 80, Seq: 0},
		{Name: "Noah", Category: domain.CategoryMale, Year: 2000, Count: 100, Seq: 1},
		{Name: "Liam", Category: domain.CategoryMale, Year: 2000, Count: 50, Seq: 2},
		{Name: "Olivia", Category: domain.CategoryFemale, Year: 2001, Count: 70, Seq: 3},
		{Name: "Noah", Category: domain.CategoryMale, Year: 2001, Count: 90, Seq: 4},
	}
	assert.Equal(t, want, records)
}

func TestLoader_LoadTable(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 1910, "Mary,F,220\nJohn,M,300\n")

	tbl, err := NewLoader(testOptions(dir, 1910, 1910), nil).LoadTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []int{1910}, tbl.Years())
}

func TestLoader_MissingYear(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2000, "Emma,F,80\n")

	_, err := NewLoader(testOptions(dir, 2000, 2001), nil).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "yob2001.txt")
}

func TestLoader_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no dir", Options{Pattern: "yob%d.txt", FirstYear: 2000, LastYear: 2000}},
		{"no placeholder", Options{Dir: "x", Pattern: "yob.txt", FirstYear: 2000, LastYear: 2000}},
		{"reversed range", Options{Dir: "x", Pattern: "yob%d.txt", FirstYear: 2001, LastYear: 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(tt.opts, nil).Load(context.Background())
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
		})
	}
}

func TestLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2000, "Emma,F,80\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(testOptions(dir, 2000, 2000), nil).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadYear_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantMsg  string
	}{
		{"bad category", "Emma,F,80\nNoah,X,100\n", 2, "unknown category"},
		{"bad count", "Emma,F,eighty\n", 1, "invalid count"},
		{"negative count", "Emma,F,80\nLiam,M,1\nNoah,M,-4\n", 3, "negative count"},
		{"empty name", " ,F,3\n", 1, "empty name"},
		{"wrong field count", "Emma,F,80\nNoah,M\n", 2, "wrong number of fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadYear(strings.NewReader(tt.input), 2000, "data/yob2000.txt")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrParsing)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantLine, appErr.Context["line"])
			assert.Equal(t, "data/yob2000.txt", appErr.Context["file"])
		})
	}
}

func TestCompressYears(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2000, "Emma,F,80\nNoah,M,100\n")
	writeYear(t, dir, 2002, "Liam,M,50\n")

	loader := NewLoader(testOptions(dir, 2000, 2002), nil)
	n, err := loader.CompressYears(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = os.Stat(filepath.Join(dir, "yob2000.txt"))
	assert.True(t, os.IsNotExist(err))

	records, err := NewLoader(testOptions(dir, 2000, 2000), nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Noah", records[1].Name)
}
