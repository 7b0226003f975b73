package downloader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/takeshy/bvsync/internal/camera"
	"github.com/takeshy/bvsync/internal/fileutil"
	"github.com/takeshy/bvsync/internal/listing"
	"github.com/takeshy/bvsync/mocks"
	"go.uber.org/mock/gomock"
)

const (
	cameraAddr = "192.168.1.99"

	twoEntryListing = "v:1.00\r\nn:/Record/20160404_120101_NF.mp4,s:1000000\r\nn:/Record/20160404_120101_NR.mp4,s:1000000\r\n"
)

type fetchFunc = func(ctx context.Context, address, filename, dst string, progress camera.ProgressFunc) (int64, error)

func newTestSyncer(cam Camera) *Syncer {
	s := NewSyncer(cam, fileutil.NewStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.SetDiskSpace(nil)
	return s
}

func testOptions(t *testing.T) DownloadOptions {
	t.Helper()
	root := t.TempDir()
	return DownloadOptions{
		CameraAddress:   cameraAddr,
		OutputDirectory: filepath.Join(root, "dest"),
		TempDirectory:   filepath.Join(root, "tmp"),
	}
}

// writeContent simulates a complete transfer of content
func writeContent(content string) fetchFunc {
	return func(_ context.Context, _, _, dst string, progress camera.ProgressFunc) (int64, error) {
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			return 0, err
		}
		if progress != nil {
			progress(camera.Progress{Transferred: int64(len(content)), Total: int64(len(content))})
		}
		return int64(len(content)), nil
	}
}

// writePartial simulates a transfer interrupted after some bytes reached the disk
func writePartial(content string, err error) fetchFunc {
	return func(_ context.Context, _, _, dst string, _ camera.ProgressFunc) (int64, error) {
		if werr := os.WriteFile(dst, []byte(content), 0o644); werr != nil {
			return 0, werr
		}
		return int64(len(content)), err
	}
}

func expectFetch(cam *mocks.MockCamera, filename string, fn fetchFunc) *gomock.Call {
	return cam.EXPECT().
		Fetch(gomock.Any(), cameraAddr, filename, gomock.Any(), gomock.Any()).
		DoAndReturn(fn)
}

func TestRun_DownloadsVideosAndCompanions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(twoEntryListing, nil)
	gomock.InOrder(
		expectFetch(cam, "20160404_120101_NF.mp4", writeContent("front")),
		expectFetch(cam, "20160404_120101_N.gps", writeContent("gps")),
		expectFetch(cam, "20160404_120101_N.3gf", writeContent("3gf")),
	)
	expectFetch(cam, "20160404_120101_NR.mp4", writeContent("rear"))

	stats, err := newTestSyncer(cam).Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(4), stats.Copied)
	req.Zero(stats.Ignored)
	req.Zero(stats.Errored)
	req.Zero(stats.TempCleaned)
	req.Equal(uint64(len("front")+len("gps")+len("3gf")+len("rear")), stats.TotalBytes)
	req.Positive(stats.TotalDuration)

	for _, name := range []string{"20160404_120101_NF.mp4", "20160404_120101_NR.mp4", "20160404_120101_N.gps", "20160404_120101_N.3gf"} {
		req.FileExists(filepath.Join(opts.OutputDirectory, name))
		req.NoFileExists(filepath.Join(opts.TempDirectory, name))
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(twoEntryListing, nil).Times(2)
	cam.EXPECT().
		Fetch(gomock.Any(), cameraAddr, gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(writeContent("data")).
		Times(4)

	s := newTestSyncer(cam)
	first, err := s.Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(4), first.Copied)

	second, err := s.Run(context.Background(), opts)
	req.NoError(err)
	req.Zero(second.Copied)
	req.Equal(first.Processed(), second.Ignored)
	req.Zero(second.TotalBytes)
}

func TestRun_InterruptedTransferNeverReachesDestination(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)
	rear := "20160404_120101_NR.mp4"

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(twoEntryListing, nil).Times(2)
	expectFetch(cam, "20160404_120101_NF.mp4", writeContent("front"))
	expectFetch(cam, "20160404_120101_N.gps", writeContent("gps"))
	expectFetch(cam, "20160404_120101_N.3gf", writeContent("3gf"))

	timeout := &camera.Error{Kind: camera.KindTimeout, URL: camera.FileURL(cameraAddr, rear), Err: context.DeadlineExceeded}
	gomock.InOrder(
		expectFetch(cam, rear, writePartial("re", timeout)),
		expectFetch(cam, rear, writeContent("rear")),
	)

	s := newTestSyncer(cam)
	stats, err := s.Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(3), stats.Copied)
	req.Equal(uint64(1), stats.Errored)
	req.NoFileExists(filepath.Join(opts.OutputDirectory, rear))
	req.FileExists(filepath.Join(opts.TempDirectory, rear))

	stats, err = s.Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(1), stats.Copied)
	req.Equal(uint64(3), stats.Ignored)
	req.Equal(uint64(1), stats.TempCleaned)
	req.Zero(stats.Errored)

	got, err := os.ReadFile(filepath.Join(opts.OutputDirectory, rear))
	req.NoError(err)
	req.Equal("rear", string(got))
}

func TestRun_SkipVideo(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)
	opts.SkipVideo = true

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(twoEntryListing, nil)
	expectFetch(cam, "20160404_120101_N.gps", writeContent("gps"))
	expectFetch(cam, "20160404_120101_N.3gf", writeContent("3gf"))

	stats, err := newTestSyncer(cam).Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(2), stats.Copied)
	req.NoFileExists(filepath.Join(opts.OutputDirectory, "20160404_120101_NF.mp4"))
}

func TestRun_DateFolders(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)
	opts.UseDateFolders = true

	body := "v:1.00\r\nn:/Record/20160404_120101_NR.mp4,s:10\r\nn:/Record/20160405_080000_NR.mp4,s:10\r\n"
	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(body, nil)
	expectFetch(cam, "20160404_120101_NR.mp4", writeContent("a"))
	expectFetch(cam, "20160405_080000_NR.mp4", writeContent("b"))

	stats, err := newTestSyncer(cam).Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(2), stats.Copied)
	req.FileExists(filepath.Join(opts.OutputDirectory, "2016-04-04", "20160404_120101_NR.mp4"))
	req.FileExists(filepath.Join(opts.OutputDirectory, "2016-04-05", "20160405_080000_NR.mp4"))
}

func TestRun_LastDays(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)
	opts.LastDays = 2

	body := "v:2.00\r\n" +
		"n:/Record/20240101_100000_NR.mp4,s:10\r\n" +
		"n:/Record/20240109_100000_NR.mp4,s:10\r\n" +
		"n:/Record/20240110_100000_NR.mp4,s:10\r\n"
	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(body, nil)
	expectFetch(cam, "20240109_100000_NR.mp4", writeContent("a"))
	expectFetch(cam, "20240110_100000_NR.mp4", writeContent("b"))

	s := newTestSyncer(cam)
	s.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local) }

	stats, err := s.Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(2), stats.Copied)
}

func TestRun_ListingFailureAbortsRun(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).
		Return("", &camera.Error{Kind: camera.KindHTTP, StatusCode: http.StatusInternalServerError, URL: camera.ListingURL(cameraAddr)})

	stats, err := newTestSyncer(cam).Run(context.Background(), opts)
	req.ErrorIs(err, ErrListing)
	req.Equal(camera.KindHTTP, camera.KindOf(err))
	req.Equal(Stats{}, stats)
	req.NoDirExists(opts.OutputDirectory)
}

func TestRun_InvalidTimestampAbortsRun(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return("v:1.00\r\nn:/Record/2016x404_120101_NF.mp4,s:1\r\n", nil)

	_, err := newTestSyncer(cam).Run(context.Background(), testOptions(t))
	req.ErrorIs(err, listing.ErrInvalidTimestamp)
}

func TestRun_ContextCancelledStopsLoop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := "v:1.00\r\nn:/Record/20160404_120101_NR.mp4,s:10\r\nn:/Record/20160405_080000_NR.mp4,s:10\r\n"
	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return(body, nil)
	expectFetch(cam, "20160404_120101_NR.mp4", func(ctx context.Context, _, _, _ string, _ camera.ProgressFunc) (int64, error) {
		cancel()
		return 0, ctx.Err()
	})

	stats, err := newTestSyncer(cam).Run(ctx, opts)
	req.ErrorIs(err, context.Canceled)
	req.Equal(uint64(1), stats.Errored)
	req.Zero(stats.Copied)
}

func TestRun_ContextCancelledDuringLastRecord(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return("v:1.00\r\nn:/Record/20160404_120101_NF.mp4,s:10\r\n", nil)
	expectFetch(cam, "20160404_120101_NF.mp4", func(ctx context.Context, _, _, _ string, _ camera.ProgressFunc) (int64, error) {
		cancel()
		return 0, ctx.Err()
	})

	stats, err := newTestSyncer(cam).Run(ctx, testOptions(t))
	req.ErrorIs(err, context.Canceled)
	req.Equal(uint64(1), stats.Errored)
}

func TestRun_ReportsProgressAndDiskSpace(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)

	cam.EXPECT().Listing(gomock.Any(), cameraAddr).Return("v:1.00\r\nn:/Record/20160404_120101_NR.mp4,s:1000000\r\n", nil)
	expectFetch(cam, "20160404_120101_NR.mp4", writeContent("rear"))

	s := newTestSyncer(cam)
	var probed string
	s.SetDiskSpace(func(path string) (uint64, error) {
		probed = path
		return 10, nil
	})
	var seen []string
	s.SetProgress(func(filename string, p camera.Progress) {
		seen = append(seen, filename)
		req.Equal(100, p.Percent())
	})

	stats, err := s.Run(context.Background(), opts)
	req.NoError(err)
	req.Equal(uint64(1), stats.Copied)
	req.Equal(opts.OutputDirectory, probed)
	req.Equal([]string{"20160404_120101_NR.mp4"}, seen)
}

func TestDownloadFile_InvalidName(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)

	s := newTestSyncer(cam)
	r := s.DownloadFile(context.Background(), cameraAddr, "../escape.mp4", listing.Video, opts.TempDirectory, opts.OutputDirectory)
	req.Equal(StateErrored, r.State)
	req.Equal(camera.KindPath, r.Kind)
	req.ErrorIs(r.Err, fileutil.ErrInvalidName)
	req.Equal(uint64(1), s.Stats().Errored)
}

func TestDownloadFile_HTTPError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)
	req.NoError(os.MkdirAll(opts.TempDirectory, 0o755))
	req.NoError(os.MkdirAll(opts.OutputDirectory, 0o755))

	name := "20160404_120101_N.gps"
	cam.EXPECT().Fetch(gomock.Any(), cameraAddr, name, gomock.Any(), gomock.Any()).
		Return(int64(0), &camera.Error{Kind: camera.KindHTTP, StatusCode: http.StatusNotFound, URL: camera.FileURL(cameraAddr, name)})

	s := newTestSyncer(cam)
	r := s.DownloadFile(context.Background(), cameraAddr, name, listing.Gps, opts.TempDirectory, opts.OutputDirectory)
	req.Equal(StateErrored, r.State)
	req.Equal(camera.KindHTTP, r.Kind)
	req.Equal(http.StatusNotFound, r.StatusCode)
	req.Equal(uint64(1), s.Stats().Errored)
	req.Zero(s.Stats().Copied)
	req.Zero(s.Stats().TotalBytes)
}

func TestDownloadFile_RejectsErrorPage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	opts := testOptions(t)
	req.NoError(os.MkdirAll(opts.TempDirectory, 0o755))
	req.NoError(os.MkdirAll(opts.OutputDirectory, 0o755))

	name := "20160404_120101_NF.mp4"
	expectFetch(cam, name, writeContent("<!DOCTYPE html><html><body>404 Not Found</body></html>"))

	s := newTestSyncer(cam)
	r := s.DownloadFile(context.Background(), cameraAddr, name, listing.Video, opts.TempDirectory, opts.OutputDirectory)
	req.Equal(StateErrored, r.State)
	req.ErrorIs(r.Err, ErrErrorPage)
	req.NoFileExists(filepath.Join(opts.OutputDirectory, name))
}

func TestDownloadFile_MoveFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cam := mocks.NewMockCamera(ctrl)
	store := mocks.NewMockLocalStore(ctrl)

	name := "20160404_120101_N.3gf"
	dest := filepath.Join("/dest", name)
	temp := filepath.Join("/tmp/bv", name)

	store.EXPECT().Exists(dest).Return(false)
	store.EXPECT().Exists(temp).Return(true)
	store.EXPECT().Remove(temp).Return(nil)
	cam.EXPECT().Fetch(gomock.Any(), cameraAddr, name, temp, gomock.Any()).Return(int64(128), nil)
	store.EXPECT().Move(temp, dest).Return(errors.New("disk full"))

	s := NewSyncer(cam, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := s.DownloadFile(context.Background(), cameraAddr, name, listing.ThreeGf, "/tmp/bv", "/dest")
	req.Equal(StateErrored, r.State)
	req.Equal(camera.KindPath, r.Kind)
	req.True(r.TempCleaned)

	st := s.Stats()
	req.Equal(uint64(1), st.Errored)
	req.Equal(uint64(1), st.TempCleaned)
	req.Equal(uint64(128), st.TotalBytes)
	req.Zero(st.Copied)
}

func TestDownloadOptions_DefaultTempDir(t *testing.T) {
	req := require.New(t)
	req.Equal(filepath.Join(os.TempDir(), "blackvuedownloader"), DownloadOptions{}.tempDir())
	req.Equal("/scratch", DownloadOptions{TempDirectory: "/scratch"}.tempDir())
}
