package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/takeshy/bvsync/internal/config"
	"github.com/takeshy/bvsync/internal/downloader"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	// CameraAddress is used when a tool call does not name a camera
	CameraAddress string
	DestDir       string
	TempDir       string
}

// Server wraps the MCP server with bvsync-specific functionality
type Server struct {
	mcpServer *mcp.Server
	camera    downloader.Camera
	store     downloader.LocalStore
	log       *slog.Logger
	config    ServerConfig

	// serializes sync runs, a Syncer is not safe for concurrent use
	mu sync.Mutex
}

// NewServer creates a new MCP server for bvsync
func NewServer(cfg ServerConfig, cam downloader.Camera, store downloader.LocalStore, log *slog.Logger, version string) (*Server, error) {
	if cfg.DestDir == "" {
		return nil, fmt.Errorf("destination directory is required")
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "bvsync",
		Version: version,
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		camera:    cam,
		store:     store,
		log:       log,
		config:    cfg,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_recordings",
		Description: "List the recordings stored on a BlackVue dashcam, optionally restricted to the last N days.",
	}, s.handleListRecordings)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sync",
		Description: "Download the recordings of a BlackVue dashcam that are not yet present in the destination directory.",
	}, s.handleSync)
}

// RunStdio runs the server using stdio transport
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler creates an HTTP handler for SSE transport
func (s *Server) NewHTTPHandler() http.Handler {
	return mcp.NewSSEHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// NewStreamableHTTPHandler creates a streamable HTTP handler
func (s *Server) NewStreamableHTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// getCameraAddress returns the camera address from input, falling back to the configured one
func (s *Server) getCameraAddress(inputAddress string) (string, error) {
	cfg := config.Config{CameraAddress: inputAddress}
	if cfg.CameraAddress == "" {
		cfg.CameraAddress = s.config.CameraAddress
	}
	if cfg.CameraAddress == "" {
		return "", fmt.Errorf("camera_address is required")
	}
	if err := cfg.ValidateCamera(); err != nil {
		return "", err
	}
	return cfg.CameraAddress, nil
}

func checkLastDays(days int) error {
	if days < 0 || days > config.MaxLastDays {
		return fmt.Errorf("last_days must be between 1 and %d", config.MaxLastDays)
	}
	return nil
}
