package downloader

import (
	"time"

	"github.com/takeshy/bvsync/internal/camera"
)

// Stats summarizes one synchronization run
type Stats struct {
	Copied      uint64
	Ignored     uint64
	Errored     uint64
	TempCleaned uint64
	TotalBytes  uint64

	DownloadDuration time.Duration
	TotalDuration    time.Duration
}

// Processed returns the number of files that reached a terminal state
func (s Stats) Processed() uint64 {
	return s.Copied + s.Ignored + s.Errored
}

// State is the terminal state of one file within a run
type State int

const (
	StateIgnored State = iota
	StateCommitted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIgnored:
		return "ignored"
	case StateCommitted:
		return "committed"
	default:
		return "errored"
	}
}

// Result is the outcome of downloading one file.
// Bytes is set once the stream completed, even if the final move failed.
type Result struct {
	Filename    string
	State       State
	Kind        camera.Kind
	StatusCode  int
	Bytes       int64
	TempCleaned bool
	Elapsed     time.Duration
	Err         error
}

func (s *Stats) record(r Result) {
	if r.TempCleaned {
		s.TempCleaned++
	}
	s.DownloadDuration += r.Elapsed
	if r.Bytes > 0 {
		s.TotalBytes += uint64(r.Bytes)
	}

	switch r.State {
	case StateIgnored:
		s.Ignored++
	case StateCommitted:
		s.Copied++
	case StateErrored:
		s.Errored++
	}
}
