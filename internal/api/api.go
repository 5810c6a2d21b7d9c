// Package api provides the HTTP server for Healora.
//
// It exposes session, conversation, journal, scheduling and emergency endpoints
// over the workflow packages, and read-only catalog endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/Healora/internal/archive"
	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/compose"
	"github.com/BTreeMap/Healora/internal/emergency"
	"github.com/BTreeMap/Healora/internal/journal"
	"github.com/BTreeMap/Healora/internal/scheduling"
	"github.com/BTreeMap/Healora/internal/session"
	"github.com/BTreeMap/Healora/internal/store"
)

// DefaultAddr is the default listen address.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Services bundles the workflow components the server routes to.
type Services struct {
	Sessions   *session.Manager
	Catalog    *catalog.Catalog
	Composer   *compose.Composer
	Archiver   *archive.Archiver
	Journal    *journal.Journal
	Scheduling *scheduling.Workflow
	Emergency  *emergency.Workflow
	Store      store.Store
}

// Opts holds configuration options for the Server.
type Opts struct {
	Addr            string
	ShutdownTimeout time.Duration
	// AdminAPI mounts the cross-session admin routes. Off by default.
	AdminAPI bool
}

// Option defines a configuration option for the Server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.ShutdownTimeout = d
	}
}

// WithAdminAPI mounts GET /admin/failed-notifications, which lists queued
// failures for every session.
func WithAdminAPI(enabled bool) Option {
	return func(o *Opts) {
		o.AdminAPI = enabled
	}
}

// Server serves the Healora HTTP API.
type Server struct {
	svc  Services
	opts Opts
}

// NewServer creates a Server. Nil components are replaced with defaults so the
// server is always routable.
func NewServer(svc Services, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if svc.Sessions == nil {
		svc.Sessions = session.NewManager()
	}
	if svc.Catalog == nil {
		svc.Catalog = catalog.New()
	}
	if svc.Composer == nil {
		svc.Composer = compose.New(svc.Catalog, nil)
	}
	if svc.Archiver == nil {
		svc.Archiver = archive.New()
	}
	if svc.Journal == nil {
		svc.Journal = journal.New()
	}
	if svc.Scheduling == nil {
		svc.Scheduling = scheduling.New(svc.Catalog, nil)
	}
	if svc.Emergency == nil {
		svc.Emergency = emergency.New(svc.Catalog, nil)
	}
	return &Server{svc: svc, opts: cfg}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("DELETE /sessions/{id}", s.endSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.sendMessageHandler)
	mux.HandleFunc("POST /sessions/{id}/clear", s.clearHandler)
	mux.HandleFunc("POST /sessions/{id}/conversations", s.startNewConversationHandler)
	mux.HandleFunc("GET /sessions/{id}/conversations", s.listConversationsHandler)
	mux.HandleFunc("GET /sessions/{id}/conversations/view", s.viewConversationHandler)
	mux.HandleFunc("POST /sessions/{id}/moods", s.logMoodHandler)
	mux.HandleFunc("GET /sessions/{id}/moods/trends", s.moodTrendsHandler)
	mux.HandleFunc("POST /sessions/{id}/appointments", s.scheduleAppointmentHandler)
	mux.HandleFunc("POST /sessions/{id}/emergency", s.requestEmergencyHandler)
	mux.HandleFunc("POST /sessions/{id}/emergency/confirm", s.confirmEmergencyHandler)
	mux.HandleFunc("GET /sessions/{id}/failed-notifications", s.sessionFailedNotificationsHandler)

	mux.HandleFunc("GET /resources", s.resourcesHandler)
	mux.HandleFunc("GET /resources/emergency", s.emergencyResourcesHandler)
	mux.HandleFunc("GET /therapists", s.listTherapistsHandler)
	mux.HandleFunc("GET /therapists/{id}", s.getTherapistHandler)

	if s.opts.AdminAPI {
		slog.Warn("Server.Handler: admin API enabled, failed notifications of all sessions are exposed")
		mux.HandleFunc("GET /admin/failed-notifications", s.failedNotificationsHandler)
	}

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: Healora API listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	return nil
}
