// Package server provides the local HTTP API: status, live updates, the
// camera preview and CRUD for bindings and templates.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/log"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Controller is the running application as seen by the API.
type Controller interface {
	api.TemplateListener
	PreviewSource

	Status() dispatch.Status
	IsEnabled() bool
	SetEnabled(enabled bool)
	ReloadBindings() error
}

// Config holds the server configuration. Every field is optional; routes
// whose collaborator is missing are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       Controller
	Hub       *StatusHub
	Plugins   *plugin.Manager
	Logger    *slog.Logger

	// TemplateTolerance is applied to templates posted without a tolerance.
	TemplateTolerance float64
}

// Server is the HTTP API.
type Server struct {
	config Config
	logger *slog.Logger
	router chi.Router
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.L()
	}

	s := &Server{
		config: config,
		logger: logger.With("component", "server"),
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(localOrigin)
	r.Use(middleware.AllowContentType("application/json"))

	r.Get("/api/health", s.handleHealth)

	if s.config.App != nil {
		r.Get("/api/status", s.handleStatus)
		r.Put("/api/enabled", s.handleEnabled)
		r.Method(http.MethodGet, "/api/stream", NewStreamHandler(s.config.App, 0))
	}
	if s.config.Hub != nil {
		r.Method(http.MethodGet, "/api/status/ws", s.config.Hub)
	}
	if s.config.Plugins != nil {
		r.Get("/api/plugins", s.handlePlugins)
	}

	if s.config.Store != nil {
		var (
			onChange  func()
			templates api.TemplateListener
		)
		if s.config.App != nil {
			templates = s.config.App
			onChange = func() {
				if err := s.config.App.ReloadBindings(); err != nil {
					s.logger.Error("reload bindings", "err", err)
				}
			}
		}

		r.Route("/api/bindings", api.NewBindingHandler(s.config.Store, onChange).Routes)
		r.Route("/api/templates", api.NewTemplateHandler(s.config.Store, templates).WithDefaultTolerance(s.config.TemplateTolerance).Routes)
		r.Route("/api/history", api.NewHistoryHandler(s.config.Store).Routes)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// localOrigin rejects browser requests sent from pages not served by this
// machine, so a foreign site cannot rebind gestures or toggle recognition.
func localOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsLocalOrigin(r.Header.Get("Origin")) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Cross-origin requests are not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsLocalOrigin reports whether an Origin header names a loopback host.
// Requests without an Origin header come from non-browser clients and pass.
func IsLocalOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

type statusResponse struct {
	Enabled bool            `json:"enabled"`
	Status  dispatch.Status `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Enabled: s.config.App.IsEnabled(),
		Status:  s.config.App.Status(),
	})
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `Body must be {"enabled": true|false}`})
		return
	}
	s.config.App.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.App.IsEnabled()})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	plugins := s.config.Plugins.List()
	manifests := make([]plugin.Manifest, 0, len(plugins))
	for _, p := range plugins {
		manifests = append(manifests, p.Manifest)
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": manifests})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
