package eop

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/eop/internal/fs"
)

// SaveFile writes an Encode snapshot of the region to path. The file is
// replaced atomically; on failure an existing file at path is left intact.
// Recognized options: those of Encode.
func (r *Region[T]) SaveFile(ctx context.Context, path string, opts ...Option) error {
	o := applyOptions(opts)
	return fs.WriteAtomic(o.fs, path, func(w io.Writer) error {
		_, err := r.Encode(ctx, w, opts...)
		return err
	})
}

// LoadRegionFile reads a snapshot written by SaveFile.
// Recognized options: those of DecodeRegion.
func LoadRegionFile[T any](ctx context.Context, path string, a *Arena, opts ...Option) (*Region[T], error) {
	o := applyOptions(opts)
	f, err := o.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("eop: open snapshot: %w", err)
	}
	defer f.Close()

	return DecodeRegion[T](ctx, f, a, opts...)
}
