// Package downloader synchronizes the recordings of a dashcam into a local
// directory. Files are streamed into a scratch directory and moved into
// place only once complete.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/takeshy/bvsync/internal/camera"
	"github.com/takeshy/bvsync/internal/fileutil"
	"github.com/takeshy/bvsync/internal/listing"
)

const dateFolderLayout = "2006-01-02"

var (
	// ErrListing is returned when the camera listing cannot be retrieved
	ErrListing = errors.New("failed to query camera for file list")
	// ErrErrorPage is returned when the camera answers a video request with an HTML page
	ErrErrorPage = errors.New("camera returned an html page instead of a recording")
)

// ProgressObserver receives transfer progress for the file being downloaded
type ProgressObserver func(filename string, p camera.Progress)

// Syncer downloads the recordings listed by a camera. It is not safe for concurrent use.
type Syncer struct {
	camera   Camera
	store    LocalStore
	log      *slog.Logger
	runLog   *slog.Logger
	progress ProgressObserver
	diskFree DiskSpace
	now      func() time.Time
	stats    Stats
}

// NewSyncer creates a new syncer
func NewSyncer(cam Camera, store LocalStore, log *slog.Logger) *Syncer {
	return &Syncer{
		camera:   cam,
		store:    store,
		log:      log,
		runLog:   log,
		diskFree: fileutil.FreeSpace,
		now:      time.Now,
	}
}

// SetProgress sets the observer notified while a file is streamed
func (s *Syncer) SetProgress(fn ProgressObserver) {
	s.progress = fn
}

// SetDiskSpace replaces the free space probe. nil disables the preflight check.
func (s *Syncer) SetDiskSpace(fn DiskSpace) {
	s.diskFree = fn
}

// Stats returns the counters accumulated since the last reset
func (s *Syncer) Stats() Stats {
	return s.stats
}

// Reset clears the counters
func (s *Syncer) Reset() {
	s.stats = Stats{}
}

// Records fetches, parses and date filters the camera listing
func (s *Syncer) Records(ctx context.Context, address string, lastDays int) ([]listing.FileRecord, error) {
	body, err := s.camera.Listing(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListing, err)
	}

	records, err := listing.Parse(body)
	if err != nil {
		return nil, err
	}

	return listing.LastDays(records, lastDays, s.now()), nil
}

// Run synchronizes every listed recording into opts.OutputDirectory.
// Only listing failures, directory setup failures and context
// cancellation abort the run; per-file failures are counted in the returned stats.
func (s *Syncer) Run(ctx context.Context, opts DownloadOptions) (Stats, error) {
	s.Reset()
	started := time.Now()

	log := s.log.With("run_id", uuid.NewString(), "camera", opts.CameraAddress)
	s.runLog = log
	defer func() { s.runLog = s.log }()

	records, err := s.Records(ctx, opts.CameraAddress, opts.LastDays)
	if err != nil {
		return s.stats, err
	}
	log.Info("Retrieved file list", "records", len(records), "last_days", opts.LastDays)

	tempDir := opts.tempDir()
	if err := s.store.EnsureDir(tempDir); err != nil {
		return s.stats, err
	}
	if err := s.store.EnsureDir(opts.OutputDirectory); err != nil {
		return s.stats, err
	}

	s.checkDiskSpace(log, opts, records)

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		s.processRecord(ctx, log, opts, tempDir, rec)
	}

	s.stats.TotalDuration = time.Since(started)
	if err := ctx.Err(); err != nil {
		log.Warn("Sync interrupted", "error", err)
		s.logSummary(log)
		return s.stats, err
	}
	s.logSummary(log)

	return s.stats, nil
}

// processRecord downloads a recording and, for front-camera videos, its gps and 3gf companions
func (s *Syncer) processRecord(ctx context.Context, log *slog.Logger, opts DownloadOptions, tempDir string, rec listing.FileRecord) {
	log.Info("Processing file", "file", rec.Name, "timestamp", rec.Timestamp)

	destDir := opts.OutputDirectory
	if opts.UseDateFolders {
		destDir = filepath.Join(opts.OutputDirectory, rec.Timestamp.Format(dateFolderLayout))
		if err := s.store.EnsureDir(destDir); err != nil {
			log.Error("Cannot create date folder", "dir", destDir, "error", err)
			s.stats.Errored++
			return
		}
	}

	if !opts.SkipVideo {
		s.DownloadFile(ctx, opts.CameraAddress, rec.Name, listing.Video, tempDir, destDir)
	}

	// rear recordings have no companions
	if !listing.HasCompanions(rec.Name) || ctx.Err() != nil {
		return
	}

	gps, gforce := listing.Companions(rec.Name)
	s.DownloadFile(ctx, opts.CameraAddress, gps, listing.Gps, tempDir, destDir)
	s.DownloadFile(ctx, opts.CameraAddress, gforce, listing.ThreeGf, tempDir, destDir)
}

// DownloadFile fetches one file into destDir through tempDir unless it is
// already there. Failures are never returned as errors: they are counted,
// logged and reported in the Result.
func (s *Syncer) DownloadFile(ctx context.Context, address, filename string, fileType listing.FileType, tempDir, destDir string) Result {
	r := s.download(ctx, address, filename, fileType, tempDir, destDir)
	s.stats.record(r)
	s.logResult(r, address, fileType)
	return r
}

func (s *Syncer) download(ctx context.Context, address, filename string, fileType listing.FileType, tempDir, destDir string) Result {
	r := Result{Filename: filename}

	destPath, err := fileutil.Join(destDir, filename)
	if err != nil {
		return failed(r, camera.KindPath, err)
	}
	tempPath, err := fileutil.Join(tempDir, filename)
	if err != nil {
		return failed(r, camera.KindPath, err)
	}

	if s.store.Exists(destPath) {
		r.State = StateIgnored
		return r
	}

	if s.store.Exists(tempPath) {
		s.runLog.Info("File exists in temp directory, deleting", "path", tempPath)
		if err := s.store.Remove(tempPath); err != nil {
			return failed(r, camera.KindPath, err)
		}
		r.TempCleaned = true
	}

	s.runLog.Info("Downloading file", "type", fileType.String(), "url", camera.FileURL(address, filename))

	started := time.Now()
	n, err := s.camera.Fetch(ctx, address, filename, tempPath, s.progressFor(filename))
	r.Elapsed = time.Since(started)
	if err != nil {
		r = failed(r, camera.KindOf(err), err)
		r.StatusCode = camera.StatusCode(err)
		return r
	}

	if fileType == listing.Video {
		if err := rejectErrorPage(tempPath); err != nil {
			return failed(r, camera.KindOther, err)
		}
	}

	r.Bytes = n

	// commit point
	if err := s.store.Move(tempPath, destPath); err != nil {
		return failed(r, camera.KindPath, err)
	}

	r.State = StateCommitted
	return r
}

func failed(r Result, kind camera.Kind, err error) Result {
	r.State = StateErrored
	r.Kind = kind
	r.Err = err
	return r
}

func rejectErrorPage(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to inspect %q: %w", path, err)
	}
	if mtype.Is("text/html") {
		return ErrErrorPage
	}
	return nil
}

func (s *Syncer) progressFor(filename string) camera.ProgressFunc {
	if s.progress == nil {
		return nil
	}
	return func(p camera.Progress) {
		s.progress(filename, p)
	}
}

func (s *Syncer) checkDiskSpace(log *slog.Logger, opts DownloadOptions, records []listing.FileRecord) {
	if s.diskFree == nil {
		return
	}

	free, err := s.diskFree(opts.OutputDirectory)
	if err != nil {
		log.Warn("Cannot read free disk space", "dir", opts.OutputDirectory, "error", err)
		return
	}

	var needed uint64
	if !opts.SkipVideo {
		needed = listing.TotalSize(records)
	}

	log.Info("Destination free space", "dir", opts.OutputDirectory, "free", humanize.Bytes(free))
	if needed > free {
		log.Warn("Listed recordings exceed free disk space",
			"needed", humanize.Bytes(needed), "free", humanize.Bytes(free))
	}
}

func (s *Syncer) logResult(r Result, address string, fileType listing.FileType) {
	url := camera.FileURL(address, r.Filename)

	switch r.State {
	case StateIgnored:
		s.runLog.Info("File exists, ignoring", "file", r.Filename)
	case StateCommitted:
		s.runLog.Info("Downloaded file", "type", fileType.String(), "url", url,
			"size", humanize.Bytes(uint64(r.Bytes)), "elapsed", r.Elapsed)
	case StateErrored:
		attrs := []any{"type", fileType.String(), "url", url, "kind", r.Kind.String(), "error", r.Err}
		if r.StatusCode != 0 {
			attrs = append(attrs, "status", r.StatusCode)
		}
		s.runLog.Error("Download failed", attrs...)
	}
}

func (s *Syncer) logSummary(log *slog.Logger) {
	st := s.stats
	log.Info("Sync summary",
		"copied", st.Copied,
		"ignored", st.Ignored,
		"errored", st.Errored,
		"temp_cleaned", st.TempCleaned,
		"total_time", st.TotalDuration,
	)
	log.Info("Transfer summary",
		"downloaded", humanize.Bytes(st.TotalBytes),
		"download_time", st.DownloadDuration,
	)
}
