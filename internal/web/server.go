// Package web serves the farmwiz wizards as server-rendered HTML pages.
// Every step is a URL; the step graph, preconditions and persistence come
// from the wizard package, the web layer only maps them onto redirects.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/journal"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/wizard"
)

// API is the part of the farm API client the pages read from.
type API interface {
	preload.API
	Login(ctx context.Context, username, password string) (string, error)
}

// Options configures a Server.
type Options struct {
	Flows   *flows.Registry
	Store   *wizard.Store
	API     API
	Loader  *preload.Loader
	Journal journal.Journal // optional
	// CookieSecure marks the session cookie Secure; enable behind TLS.
	CookieSecure bool
}

// Server renders wizard steps and list views.
type Server struct {
	flows        *flows.Registry
	store        *wizard.Store
	api          API
	loader       *preload.Loader
	journal      journal.Journal
	inflight     *wizard.InFlight
	pages        *pages
	cookieSecure bool
	log          *logger.Logger

	mu        sync.Mutex
	stdServer *http.Server
}

// New creates a server. It does not listen until Start or Serve.
func New(o Options) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	return &Server{
		flows:        o.Flows,
		store:        o.Store,
		api:          o.API,
		loader:       o.Loader,
		journal:      o.Journal,
		inflight:     wizard.NewInFlight(),
		pages:        p,
		cookieSecure: o.CookieSecure,
		log:          logger.With("web"),
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.withSession)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.Handle("/dashboard", s.requireAuth(http.HandlerFunc(s.handleDashboard))).Methods(http.MethodGet)

	for _, lv := range listViews {
		r.Handle(lv.Path, s.requireAuth(s.handleList(lv))).Methods(http.MethodGet)
	}

	for _, f := range s.flows.All() {
		h, reset := s.handleStep(f), s.handleReset(f)
		if f.Key != flows.Registration {
			h, reset = s.requireAuth(h), s.requireAuth(reset)
		}
		r.Handle(f.Base, h).Methods(http.MethodGet)
		r.Handle(f.Base+"/", h).Methods(http.MethodGet)
		r.Handle(f.Base+"/reset", reset).Methods(http.MethodPost)
		r.Handle(f.Base+"/{step}", h).Methods(http.MethodGet, http.MethodPost)
		// Deeper paths are unknown steps and go back to the start.
		r.PathPrefix(f.Base + "/").Handler(h)
	}
	return r
}

// Start listens on addr in the background and returns the bound address.
func (s *Server) Start(addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer != nil {
		return "", errors.New("server already started")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.stdServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	stdServer := s.stdServer
	go func() {
		if err := stdServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Web server error: %v", err)
		}
	}()

	bound := listener.Addr().String()
	s.log.Info("Serving wizards on http://%s", bound)
	return bound, nil
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.stdServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping web server: %w", err)
	}
	s.stdServer = nil
	s.log.Debug("Web server stopped")
	return nil
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if _, err := s.Start(addr); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identity(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
