package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/takeshy/bvsync/internal/downloader"
	"github.com/takeshy/bvsync/internal/listing"
)

// handleListRecordings handles the list_recordings tool
func (s *Server) handleListRecordings(ctx context.Context, req *mcp.CallToolRequest, input ListRecordingsInput) (*mcp.CallToolResult, ListRecordingsOutput, error) {
	output := ListRecordingsOutput{Recordings: []RecordingInfo{}}

	address, err := s.getCameraAddress(input.CameraAddress)
	if err != nil {
		return nil, output, err
	}
	if err := checkLastDays(input.LastDays); err != nil {
		return nil, output, err
	}

	records, err := downloader.NewSyncer(s.camera, s.store, s.log).Records(ctx, address, input.LastDays)
	if err != nil {
		output.Error = err.Error()
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Listing failed: %v", err)},
			},
		}, output, nil
	}

	for _, rec := range records {
		output.Recordings = append(output.Recordings, RecordingInfo{
			Name:      rec.Name,
			Type:      listing.TypeOf(rec.Name).String(),
			Timestamp: rec.Timestamp.Format(time.RFC3339),
			Size:      rec.Size,
		})
	}
	output.Total = len(records)
	output.TotalSize = humanize.Bytes(listing.TotalSize(records))

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Found %d recordings (%s) on %s", output.Total, output.TotalSize, address)},
		},
	}, output, nil
}

// handleSync handles the sync tool
func (s *Server) handleSync(ctx context.Context, req *mcp.CallToolRequest, input SyncInput) (*mcp.CallToolResult, SyncOutput, error) {
	output := SyncOutput{}

	address, err := s.getCameraAddress(input.CameraAddress)
	if err != nil {
		return nil, output, err
	}
	if err := checkLastDays(input.LastDays); err != nil {
		return nil, output, err
	}

	if !s.mu.TryLock() {
		return nil, output, errors.New("a sync is already running")
	}
	defer s.mu.Unlock()

	syncer := downloader.NewSyncer(s.camera, s.store, s.log)
	stats, err := syncer.Run(ctx, downloader.DownloadOptions{
		CameraAddress:   address,
		OutputDirectory: s.config.DestDir,
		TempDirectory:   s.config.TempDir,
		LastDays:        input.LastDays,
		UseDateFolders:  input.DateFolders,
		SkipVideo:       input.NoVideo,
	})

	output.Copied = stats.Copied
	output.Ignored = stats.Ignored
	output.Errored = stats.Errored
	output.TempCleaned = stats.TempCleaned
	output.TotalBytes = stats.TotalBytes
	output.DownloadSeconds = stats.DownloadDuration.Seconds()
	output.TotalSeconds = stats.TotalDuration.Seconds()

	if err != nil {
		output.Error = err.Error()
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Sync failed: %v", err)},
			},
		}, output, nil
	}

	message := fmt.Sprintf("Copied %d, ignored %d, errored %d (%s in %s)",
		stats.Copied, stats.Ignored, stats.Errored,
		humanize.Bytes(stats.TotalBytes), stats.TotalDuration.Round(time.Millisecond))
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
	}, output, nil
}
