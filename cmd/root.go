package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
	"github.com/takeshy/bvsync/internal/camera"
	"github.com/takeshy/bvsync/internal/config"
)

var (
	Version  = "dev"
	logLevel string

	cameraAddress string
	destFolder    string
	tempDir       string
	lastDays      int

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "bvsync",
	Short:   "BlackVue dashcam downloader",
	Version: Version,
	Long: `bvsync downloads the recordings of a BlackVue dashcam over its
local network interface. Files already present in the destination are
skipped, so it can be run repeatedly to keep a local copy in sync.

Settings can also be provided through BLACKVUE_* environment variables
or a .env file in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR (or set BLACKVUE_LOG_LEVEL env var)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("ipaddress") {
		cfg.CameraAddress = cameraAddress
	}
	if flags.Changed("destfolder") {
		cfg.DestDir = destFolder
	}
	if flags.Changed("temp-dir") {
		cfg.TempDir = tempDir
	}
	if flags.Changed("lastdays") {
		cfg.LastDays = lastDays
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger = logs.GetLoggerFromString(cfg.LogLevel)
	return nil
}

// stderrLogger returns a logger that leaves stdout free for a protocol stream
func stderrLogger() *slog.Logger {
	return newTextLogger(os.Stderr, cfg.LogLevel)
}

func newTextLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func newCameraClient() *camera.Client {
	return camera.NewClient(cfg.ListTimeout, cfg.DownloadTimeout)
}

func addCameraFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cameraAddress, "ipaddress", "i", "", "IP address of the camera (or set BLACKVUE_CAMERA_ADDRESS env var)")
	cmd.Flags().IntVarP(&lastDays, "lastdays", "l", 0, fmt.Sprintf("Only consider recordings from the last N days (1-%d)", config.MaxLastDays))
}

func addDestinationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&destFolder, "destfolder", "d", "", "Destination directory, must exist (or set BLACKVUE_DEST_DIR env var)")
	cmd.Flags().StringVar(&tempDir, "temp-dir", "", "Scratch directory for transfers in progress (default: <os temp>/blackvuedownloader)")
}
