package zag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Saver delivers a finished archive under a filename.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, filename string, data []byte) error

// Save calls fn.
func (fn SaverFunc) Save(ctx context.Context, filename string, data []byte) error {
	return fn(ctx, filename, data)
}

// FileSaver writes archives into Dir.
//
// Uses atomic writes (temp file + rename) so a failed save never leaves a
// partial archive behind. Dir is created as needed.
type FileSaver struct {
	Dir string
}

// Save writes data to Dir/filename. Only the base name of filename is used.
func (s FileSaver) Save(_ context.Context, filename string, data []byte) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid filename %q", filename)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, name), data)
}

// WriterSaver streams archives to W and ignores the filename.
type WriterSaver struct {
	W io.Writer
}

// Save writes data to W.
func (s WriterSaver) Save(_ context.Context, _ string, data []byte) error {
	_, err := s.W.Write(data)
	return err
}

// writeFileAtomic writes data to a temp file then renames to target,
// ensuring atomic replacement of the target file.
func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".zag-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
