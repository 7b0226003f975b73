package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"github.com/takeshy/bvsync/internal/camera"
	"github.com/takeshy/bvsync/internal/downloader"
	"github.com/takeshy/bvsync/internal/fileutil"
	"github.com/takeshy/bvsync/internal/metrics"
)

var (
	dateFolders bool
	noVideo     bool
	metricsFile string
	noProgress  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download new recordings from the camera",
	Long: `Download every recording listed by the camera that is not yet present
in the destination directory. Each video is followed by its gps and 3gf
telemetry files. Transfers go through a temp directory and are moved into
place only once complete, so an interrupted run never leaves partial files
in the destination.

Examples:
  # Download everything
  bvsync sync -i 192.168.1.99 -d /media/dashcam

  # Download the last 3 days into YYYY-MM-DD folders
  bvsync sync -i 192.168.1.99 -d /media/dashcam -l 3 --datefolders

  # Telemetry only
  bvsync sync -i 192.168.1.99 -d /media/dashcam --novideo`,
	RunE: runSync,
}

func init() {
	addCameraFlags(syncCmd)
	addDestinationFlags(syncCmd)
	syncCmd.Flags().BoolVarP(&dateFolders, "datefolders", "f", false, "Store files in YYYY-MM-DD sub folders")
	syncCmd.Flags().BoolVar(&noVideo, "novideo", false, "Skip videos, only download gps and 3gf files")
	syncCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run statistics to this Prometheus textfile")
	syncCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not print transfer progress")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("datefolders") {
		cfg.DateFolders = dateFolders
	}
	if flags.Changed("novideo") {
		cfg.NoVideo = noVideo
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncer := downloader.NewSyncer(newCameraClient(), fileutil.NewStore(), logger)
	line := &progressLine{}
	if !noProgress {
		syncer.SetProgress(line.update)
	}

	stats, err := syncer.Run(ctx, downloader.DownloadOptions{
		CameraAddress:   cfg.CameraAddress,
		OutputDirectory: cfg.DestDir,
		TempDirectory:   cfg.TempDir,
		LastDays:        cfg.LastDays,
		UseDateFolders:  cfg.DateFolders,
		SkipVideo:       cfg.NoVideo,
	})
	line.finish()

	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}

	printSummary(stats)

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile, cfg.CameraAddress, stats); werr != nil {
			logger.Warn("Failed to write metrics", "path", cfg.MetricsFile, "error", werr)
		}
	}

	if interrupted {
		return fmt.Errorf("sync interrupted")
	}
	return nil
}

func printSummary(stats downloader.Stats) {
	fmt.Printf("\nSync complete:\n")
	fmt.Printf("  Copied:       %s\n", color.Green.Sprint(stats.Copied))
	fmt.Printf("  Ignored:      %d\n", stats.Ignored)
	if stats.Errored > 0 {
		fmt.Printf("  Errored:      %s\n", color.Red.Sprint(stats.Errored))
	} else {
		fmt.Printf("  Errored:      %d\n", stats.Errored)
	}
	if stats.TempCleaned > 0 {
		fmt.Printf("  Temp cleaned: %s\n", color.Yellow.Sprint(stats.TempCleaned))
	}
	fmt.Printf("  Downloaded:   %s in %s\n", humanize.Bytes(stats.TotalBytes), stats.DownloadDuration.Round(time.Second))
	fmt.Printf("  Total time:   %s\n", stats.TotalDuration.Round(time.Second))
}

// progressLine renders the transfer of the current file on a single terminal line
type progressLine struct {
	current string
	active  bool
}

func (p *progressLine) update(filename string, prog camera.Progress) {
	if p.active && filename != p.current {
		fmt.Fprintln(os.Stderr)
	}
	p.current = filename
	p.active = true

	if pct := prog.Percent(); pct >= 0 {
		fmt.Fprintf(os.Stderr, "\r  %s %3d%% (%s / %s)", filename, pct,
			humanize.Bytes(uint64(prog.Transferred)), humanize.Bytes(uint64(prog.Total)))
		return
	}
	fmt.Fprintf(os.Stderr, "\r  %s %s", filename, humanize.Bytes(uint64(prog.Transferred)))
}

func (p *progressLine) finish() {
	if p.active {
		fmt.Fprintln(os.Stderr)
		p.active = false
	}
}
