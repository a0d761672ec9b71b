// Package mcpserver exposes the wizards as MCP tools, so an agent can fill
// in and submit the same records the web and terminal front ends use.
package mcpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/wizard"
)

// Options configures the tool server.
type Options struct {
	Flows    *flows.Registry
	Store    *wizard.Store
	API      preload.API
	Loader   *preload.Loader
	Notifier func(context.Context, wizard.Notice)
}

// Server manages an embedded MCP HTTP server that exposes the wizard tools.
type Server struct {
	flows    *flows.Registry
	store    *wizard.Store
	api      preload.API
	loader   *preload.Loader
	notify   func(context.Context, wizard.Notice)
	inflight *wizard.InFlight
	log      *logger.Logger

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
	stdServer  *http.Server
	port       int
	mu         sync.Mutex
}

// New creates a server. It is not listening until Start is called.
func New(o Options) *Server {
	if o.Loader == nil {
		o.Loader = preload.NewLoader(catalog.Default())
	}
	return &Server{
		flows:    o.Flows,
		store:    o.Store,
		api:      o.API,
		loader:   o.Loader,
		notify:   o.Notifier,
		inflight: wizard.NewInFlight(),
		log:      logger.With("mcp"),
	}
}

// Start listens on addr ("127.0.0.1:0" when empty) and serves the tools
// at /mcp in the background. It returns the bound port.
func (s *Server) Start(ctx context.Context, addr string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return 0, fmt.Errorf("server already started")
	}
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	s.mcpServer = server.NewMCPServer(
		"farmwiz",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	// Listen first so the port is known before serving, with no TOCTOU race.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mcpHandler := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateLess(true),
	)
	mux.Handle("/mcp", mcpHandler)

	s.stdServer = &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.httpServer = mcpHandler

	s.log.Info("MCP server listening on port %d", s.port)

	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("MCP server error: %v", err)
		}
	}()

	return s.port, nil
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}

	s.log.Debug("Stopping MCP server")
	if err := s.stdServer.Shutdown(context.Background()); err != nil {
		s.log.Warn("Error stopping MCP server: %v", err)
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.httpServer = nil
	s.stdServer = nil
	s.mcpServer = nil
	return nil
}

// URL returns the HTTP URL of the MCP endpoint.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("http://localhost:%d/mcp", s.port)
}
