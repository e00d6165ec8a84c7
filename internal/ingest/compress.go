package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pierrec/lz4/v4"

	apperrors "namerank/internal/errors"
)

// CompressYears writes an lz4 copy next to every plain year file in the
// range and returns how many files were compressed. Years without a plain
// file are skipped. With remove set the plain file is deleted afterwards.
func (l *Loader) CompressYears(ctx context.Context, remove bool) (int, error) {
	if err := l.opts.validate(); err != nil {
		return 0, err
	}

	n := 0
	for year := l.opts.FirstYear; year <= l.opts.LastYear; year++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		src := l.opts.Path(year)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := compressFile(src, src+CompressedSuffix); err != nil {
			return n, apperrors.NewStorageError("compress year file", err).WithContext("file", src)
		}
		if remove {
			if err := os.Remove(src); err != nil {
				return n, apperrors.NewStorageError("remove year file", err).WithContext("file", src)
			}
		}
		n++
	}

	l.logger.InfoContext(ctx, "year files compressed",
		slog.String("dir", l.opts.Dir),
		slog.Int("files", n),
		slog.Bool("removed", remove))
	return n, nil
}

func compressFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := lz4.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return zw.Close()
}
