// Package fileutil holds the local filesystem operations used while
// synchronizing recordings.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/disk"
)

const dirPerms = 0o755

// ErrInvalidName is returned for filenames that cannot be placed inside a directory
var ErrInvalidName = errors.New("invalid file name")

// Store is the local filesystem the recordings are written to
type Store struct{}

// NewStore creates a new filesystem store
func NewStore() *Store {
	return &Store{}
}

// Join places filename inside dir, rejecting names that would escape it
func Join(dir, filename string) (string, error) {
	switch {
	case filename == "", filename == ".", filename == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	case strings.ContainsAny(filename, `/\`+"\x00"):
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return filepath.Join(dir, filename), nil
}

// Exists reports whether path exists
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dir and its parents if missing
func (s *Store) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	return nil
}

// Remove deletes path. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}

// Move renames src to dst. When both sit on different filesystems the
// content is copied next to dst first and renamed into place, so dst
// never holds a partial file.
func (s *Store) Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %q to %q: %w", src, dst, err)
	}

	if err := copyInto(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to delete %q after copy: %w", src, err)
	}
	return nil
}

func copyInto(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer in.Close()

	partial := dst + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(partial)
		return fmt.Errorf("failed to copy %q: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(partial)
		return fmt.Errorf("failed to sync %q: %w", partial, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return fmt.Errorf("failed to close %q: %w", partial, err)
	}

	if err := os.Rename(partial, dst); err != nil {
		os.Remove(partial)
		return fmt.Errorf("failed to move %q to %q: %w", partial, dst, err)
	}
	return nil
}

// FreeSpace returns the number of free bytes on the filesystem holding path
func FreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage of %q: %w", path, err)
	}
	return usage.Free, nil
}
