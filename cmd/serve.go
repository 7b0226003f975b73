package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/takeshy/bvsync/internal/fileutil"
	mcpserver "github.com/takeshy/bvsync/internal/mcp"
)

var (
	serveTransport string
	servePort      int
	serveAPIKey    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server for AI assistant integration",
	Long: `Start a Model Context Protocol (MCP) server that exposes the camera
listing and sync to AI assistants like Claude Desktop, Cline, etc.

Transport options:
  stdio: Standard input/output (default, for local CLI integration)
  sse:   Server-Sent Events over HTTP (for remote connections, requires API key)
  http:  Streamable HTTP (for bidirectional HTTP communication, requires API key)

Examples:
  # Start stdio server (for Claude Desktop config)
  bvsync serve -i 192.168.1.99 -d /media/dashcam

  # Start HTTP/SSE server on port 8080 (API key required)
  bvsync serve --transport sse --port 8080 --serve-api-key mysecretkey -d /media/dashcam

  # Or use environment variables
  export BLACKVUE_SERVE_API_KEY=mysecretkey
  export BLACKVUE_DEST_DIR=/media/dashcam
  bvsync serve --transport http --port 8080

Claude Desktop Configuration (~/.config/claude/claude_desktop_config.json):
  {
    "mcpServers": {
      "bvsync": {
        "command": "/path/to/bvsync",
        "args": ["serve"],
        "env": {
          "BLACKVUE_CAMERA_ADDRESS": "192.168.1.99",
          "BLACKVUE_DEST_DIR": "/media/dashcam"
        }
      }
    }
  }`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&cameraAddress, "ipaddress", "i", "", "Default camera address for tool calls (or set BLACKVUE_CAMERA_ADDRESS env var)")
	addDestinationFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "stdio", "Transport type: stdio, sse, or http")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port for HTTP/SSE server")
	serveCmd.Flags().StringVar(&serveAPIKey, "serve-api-key", "", "API key for HTTP authentication (or BLACKVUE_SERVE_API_KEY env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateDestination(); err != nil {
		return err
	}
	if cfg.CameraAddress != "" {
		if err := cfg.ValidateCamera(); err != nil {
			return err
		}
	}

	config := mcpserver.ServerConfig{
		CameraAddress: cfg.CameraAddress,
		DestDir:       cfg.DestDir,
		TempDir:       cfg.TempDir,
	}

	// stdout carries the stdio protocol
	log := stderrLogger()

	server, err := mcpserver.NewServer(config, newCameraClient(), fileutil.NewStore(), log, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch serveTransport {
	case "stdio":
		go func() {
			<-sigChan
			cancel()
		}()
		log.Info("Starting MCP server on stdio")
		return server.RunStdio(ctx)

	case "sse":
		return runHTTPServerWithShutdown(server.NewHTTPHandler(), "SSE", sigChan)

	case "http":
		return runHTTPServerWithShutdown(server.NewStreamableHTTPHandler(), "HTTP", sigChan)

	default:
		return fmt.Errorf("unknown transport: %s (must be stdio, sse, or http)", serveTransport)
	}
}

func runHTTPServerWithShutdown(handler http.Handler, transportName string, sigChan chan os.Signal) error {
	httpAPIKey := serveAPIKey
	if httpAPIKey == "" {
		httpAPIKey = cfg.ServeAPIKey
	}

	// Require API key for HTTP server
	if httpAPIKey == "" {
		return fmt.Errorf("API key required for HTTP server. Use --serve-api-key or set BLACKVUE_SERVE_API_KEY environment variable")
	}

	handler = mcpserver.APIKeyMiddleware(httpAPIKey, handler)

	addr := fmt.Sprintf(":%d", servePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on signal
	go func() {
		<-sigChan
		logger.Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Info("Starting MCP server", "transport", transportName, "addr", addr, "auth", "api-key")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
