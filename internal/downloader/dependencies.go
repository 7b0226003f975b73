//go:generate go run go.uber.org/mock/mockgen -source=dependencies.go -destination=../../mocks/mock_dependencies.go -package=mocks
package downloader

import (
	"context"

	"github.com/takeshy/bvsync/internal/camera"
)

// Camera fetches the listing and recorded files from a dashcam
type Camera interface {
	Listing(ctx context.Context, address string) (string, error)
	Fetch(ctx context.Context, address, filename, dst string, progress camera.ProgressFunc) (int64, error)
}

// LocalStore is the filesystem the recordings are synchronized to
type LocalStore interface {
	Exists(path string) bool
	EnsureDir(dir string) error
	Remove(path string) error
	Move(src, dst string) error
}

// DiskSpace reports the free bytes of the filesystem holding path
type DiskSpace func(path string) (uint64, error)
