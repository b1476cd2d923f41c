package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// File is an open file.
type File interface {
	io.ReadWriteCloser
	Sync() error
}

// FileSystem abstracts file system operations for testability.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string, perm os.FileMode) error
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm) //nolint:gosec // caller-chosen path
}

func (LocalFS) Remove(name string) error             { return os.Remove(name) }
func (LocalFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Default is the default local file system.
var Default FileSystem = LocalFS{}

// tmpSuffix marks files that WriteAtomic has not renamed into place yet.
const tmpSuffix = ".tmp"

var tmpSeq atomic.Uint64

// tempName returns a sibling of name unique to this process and call, so
// concurrent writers of the same file never share a temporary file.
func tempName(name string) string {
	return name + "." + strconv.Itoa(os.Getpid()) + "-" + strconv.FormatUint(tmpSeq.Add(1), 10) + tmpSuffix
}

// WriteAtomic creates name by writing through fn into a uniquely named
// temporary file in the same directory, syncing it and renaming it over
// name. On any failure the temporary file is removed and name is left as it
// was.
func WriteAtomic(fsys FileSystem, name string, fn func(w io.Writer) error) (err error) {
	if fsys == nil {
		fsys = Default
	}
	if err := fsys.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("fs: create directory: %w", err)
	}

	tmp := tempName(name)
	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("fs: create %s: %w", tmp, err)
	}

	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	if err := fn(f); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("fs: sync %s: %w", tmp, err), f.Close())
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fs: close %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, name); err != nil {
		return fmt.Errorf("fs: rename %s: %w", tmp, err)
	}
	return nil
}
