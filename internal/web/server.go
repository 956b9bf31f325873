// Package web exposes the HTTP surface: stateless profile/generate endpoints,
// a saved-profile CRUD API backed by the store, a Prometheus scrape endpoint,
// and a small embedded upload form for manual testing.
//
// Routes:
//
//	GET    /                            → upload form
//	GET    /health                      → liveness probe
//	POST   /api/profile                 → profile an upload, return JSON
//	POST   /api/generate                → profile an upload, return synthetic CSV
//	POST   /api/profiles                → profile an upload and persist it
//	GET    /api/profiles                → list saved profiles
//	GET    /api/profiles/{id}           → fetch one saved profile
//	DELETE /api/profiles/{id}           → delete one saved profile
//	POST   /api/profiles/{id}/generate  → synthetic CSV from a saved profile
//	GET    /metrics                     → Prometheus scrape endpoint
package web

import (
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"scrambler/internal/logging"
	"scrambler/internal/profile"
	"scrambler/internal/store"
	"scrambler/internal/synth"
)

//go:embed index.tmpl.html
var indexHTML string

// Config controls server startup.
type Config struct {
	Addr string

	// CORSOrigins is the allowed-origin list; empty means same-origin only.
	CORSOrigins []string

	// DefaultMode applies when a request omits the parse mode.
	DefaultMode profile.Mode

	// Store enables the saved-profile endpoints; nil returns 503 for them.
	Store *store.Store

	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server wires the engines to the router.
type Server struct {
	cfg      Config
	profiler *profile.Engine
	synth    *synth.Engine
	tmpl     *template.Template
}

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config) *Server {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = profile.DefaultMode
	}
	return &Server{
		cfg:      cfg,
		profiler: profile.NewEngine(nil),
		synth:    synth.NewEngine(),
		tmpl:     template.Must(template.New("index").Parse(indexHTML)),
	}
}

// Router assembles the chi router with the standard middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{
				"X-Profile-Rows", "X-Profile-Encoding",
				"X-Profile-Delimiter", "X-Profile-Decimal-Separator",
				"Content-Disposition",
			},
		}))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/profile", s.handleProfile)
		r.Post("/generate", s.handleGenerate)

		r.Post("/profiles", s.handleSaveProfile)
		r.Get("/profiles", s.handleListProfiles)
		r.Get("/profiles/{id}", s.handleGetProfile)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)
		r.Post("/profiles/{id}/generate", s.handleGenerateSaved)
	})

	if s.cfg.Gatherer != nil {
		r.Get("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}

	return r
}

// Run serves until ctx is cancelled, then drains with a shutdown grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.FromContext(ctx).Info("http server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = s.tmpl.Execute(w, nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
