package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/takeshy/bvsync/internal/config"
	"github.com/takeshy/bvsync/internal/downloader"
	"github.com/takeshy/bvsync/internal/fileutil"
	"github.com/takeshy/bvsync/internal/listing"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recordings stored on the camera",
	Long: `Query the camera for its recordings and print them oldest first,
with their type, recording time and advertised size.`,
	RunE: runList,
}

func init() {
	addCameraFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateCamera(); err != nil {
		return err
	}
	if cfg.LastDays < 0 || cfg.LastDays > config.MaxLastDays {
		return fmt.Errorf("last days must be between 1 and %d", config.MaxLastDays)
	}

	syncer := downloader.NewSyncer(newCameraClient(), fileutil.NewStore(), logger)
	records, err := syncer.Records(cmd.Context(), cfg.CameraAddress, cfg.LastDays)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No recordings found")
		return nil
	}

	renderRecords(os.Stdout, records)
	return nil
}

func renderRecords(w io.Writer, records []listing.FileRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Type", "Recorded", "Size"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, rec := range records {
		table.Append([]string{
			rec.Name,
			listing.TypeOf(rec.Name).String(),
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(rec.Size)),
		})
	}
	table.SetFooter([]string{fmt.Sprintf("%d files", len(records)), "", "", humanize.Bytes(listing.TotalSize(records))})
	table.Render()
}
