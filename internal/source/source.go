// Package source provides the file-read capability used to load raw email
// messages before they are decoded.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound is returned when the requested email file does not exist.
	ErrNotFound = errors.New("email file not found")

	// ErrTooLarge is returned when the email file exceeds the size limit.
	ErrTooLarge = errors.New("email file too large")

	// ErrOutsideBaseDir is returned when a path leaves the configured base
	// directory.
	ErrOutsideBaseDir = errors.New("email path outside base directory")
)

// Reader loads the raw bytes of an email message.
type Reader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// FileSystem reads email files from local disk.
type FileSystem struct {
	// BaseDir, when set, is joined with relative paths and confines every
	// read, including absolute paths and symlinks, to that directory.
	BaseDir string

	// MaxSize caps the number of bytes read. Zero means no limit.
	MaxSize int64
}

// NewFileSystem creates a FileSystem reader rooted at baseDir.
func NewFileSystem(baseDir string, maxSize int64) *FileSystem {
	return &FileSystem{BaseDir: baseDir, MaxSize: maxSize}
}

// ReadFile reads the file at path. A missing file wraps ErrNotFound.
func (f *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved := f.Resolve(path)

	file, err := f.open(resolved)
	if err != nil {
		if errors.Is(err, ErrOutsideBaseDir) {
			return nil, err
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, resolved)
		}
		return nil, fmt.Errorf("failed to open email file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat email file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", resolved)
	}

	var r io.Reader = file
	if f.MaxSize > 0 {
		if info.Size() > f.MaxSize {
			return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, info.Size(), f.MaxSize)
		}
		r = io.LimitReader(file, f.MaxSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read email file: %w", err)
	}
	if f.MaxSize > 0 && int64(len(data)) > f.MaxSize {
		return nil, fmt.Errorf("%w: exceeds limit of %d bytes", ErrTooLarge, f.MaxSize)
	}

	return data, nil
}

// Resolve returns the absolute path that ReadFile would open for path.
func (f *FileSystem) Resolve(path string) string {
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// open opens resolved, through an os.Root on BaseDir when one is set.
func (f *FileSystem) open(resolved string) (*os.File, error) {
	if f.BaseDir == "" {
		return os.Open(resolved)
	}

	base, err := filepath.Abs(f.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	rel, err := filepath.Rel(base, resolved)
	if err != nil || !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideBaseDir, resolved)
	}

	root, err := os.OpenRoot(base)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	// Root.Open also refuses symlinks that point outside base.
	return root.Open(rel)
}
