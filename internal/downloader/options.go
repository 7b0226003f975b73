package downloader

import (
	"os"
	"path/filepath"
)

const tempDirName = "blackvuedownloader"

// DownloadOptions configures one synchronization run
type DownloadOptions struct {
	CameraAddress   string
	OutputDirectory string
	// TempDirectory holds in-flight transfers. Empty selects <os temp>/blackvuedownloader.
	TempDirectory string
	// LastDays restricts the run to recordings of the last N days; zero or negative disables it
	LastDays       int
	UseDateFolders bool
	SkipVideo      bool
}

// DefaultTempDir returns the scratch directory used when none is configured
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), tempDirName)
}

func (o DownloadOptions) tempDir() string {
	if o.TempDirectory == "" {
		return DefaultTempDir()
	}
	return o.TempDirectory
}
