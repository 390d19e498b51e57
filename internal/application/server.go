package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "linear-mcp-server"

const shutdownTimeout = 5 * time.Second

// Server exposes the router's tool catalog over MCP.
// The protocol itself (initialize, tools/list, tools/call) is handled by
// mcp-go; every tools/call lands in handleToolCall.
type Server struct {
	mcp    *server.MCPServer
	router *RequestRouter
	config *domain.Config
	logger zerolog.Logger
	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server and registers every tool of router.
func NewServer(router *RequestRouter, config *domain.Config, version string, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		router: router,
		config: config,
		logger: logger.With().Str("component", "server").Logger(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	for _, def := range router.ListAllTools() {
		schema, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema for %s: %w", def.Name, err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(def.Name, def.Description, schema), s.handleToolCall)
	}

	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Start serves MCP on the configured transport until ctx is cancelled or
// the transport fails.
func (s *Server) Start(ctx context.Context) error {
	switch s.config.Transport.Type {
	case "http":
		return s.serveHTTP(ctx)
	default:
		return s.serveStdio(ctx)
	}
}

func (s *Server) serveStdio(ctx context.Context) error {
	s.logger.Info().Str("transport_type", "stdio").Msg("server started")

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.logger, "", 0))

	err := stdio.Listen(ctx, s.stdin, s.stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport failed: %w", err)
	}
	s.logger.Info().Msg("server shutting down")
	return nil
}

func (s *Server) serveHTTP(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Transport.HTTP.Host, strconv.Itoa(s.config.Transport.HTTP.Port))
	httpServer := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()
	s.logger.Info().Str("transport_type", "http").Str("addr", addr).Msg("server started")

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http transport failed: %w", err)
	}
}

// handleToolCall adapts an MCP tools/call to the router.
func (s *Server) handleToolCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.router.Route(ctx, &domain.ToolRequest{
		Name:      request.Params.Name,
		Arguments: request.GetArguments(),
	})
	if err != nil {
		return nil, err
	}
	return toCallToolResult(resp), nil
}

// toCallToolResult converts a tool response into MCP text content.
func toCallToolResult(resp *domain.ToolResponse) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(resp.Content))
	for _, block := range resp.Content {
		content = append(content, mcp.NewTextContent(block.Text))
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: resp.IsError,
	}
}
