package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/quoteworks/internal/config"
	"github.com/Simplici0/quoteworks/internal/db"
	"github.com/Simplici0/quoteworks/internal/logger"
	"github.com/Simplici0/quoteworks/internal/metrics"
	"github.com/Simplici0/quoteworks/internal/migrations"
	"github.com/Simplici0/quoteworks/internal/quote"
	"github.com/Simplici0/quoteworks/internal/seed"
	"github.com/Simplici0/quoteworks/internal/store"
)

type server struct {
	log      *logger.Logger
	metrics  *metrics.Metrics
	engine   quote.Engine
	timeout  time.Duration
	db       *sql.DB
	material *store.MaterialRepo
	settings *store.SettingsRepo
	quotes   *store.QuoteRepo
}

func newServer(database *sql.DB, log *logger.Logger, m *metrics.Metrics, cfg config.Config) *server {
	return &server{
		log:      log,
		metrics:  m,
		engine:   quote.Engine{MaxDepth: cfg.MaxCompositionDepth},
		timeout:  cfg.RequestTimeout,
		db:       database,
		material: store.NewMaterialRepo(database),
		settings: store.NewSettingsRepo(database),
		quotes:   store.NewQuoteRepo(database),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		panic(err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", "path", cfg.DBPath, "error", err)
	}
	defer database.Close()

	if err := migrations.Up(database, cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run database migrations", "dir", cfg.MigrationsDir, "error", err)
	}

	stats, err := seed.Run(database, seed.Config{Currency: cfg.Currency, SampleMaterials: cfg.IsDev()})
	if err != nil {
		log.Fatal("failed to seed database", "error", err)
	}
	log.Info("seed complete", "inserts", stats.Inserts, "updates", stats.Updates)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	srv := newServer(database, log, m, cfg)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/materials", func(r chi.Router) {
		r.Get("/", s.handleMaterialsList)
		r.Post("/", s.handleMaterialsCreate)
		r.Get("/{id}", s.handleMaterialsGet)
		r.Put("/{id}", s.handleMaterialsUpdate)
		r.Delete("/{id}", s.handleMaterialsDelete)
	})

	r.Get("/settings", s.handleSettingsGet)
	r.Put("/settings", s.handleSettingsUpdate)

	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", s.handleQuotesList)
		r.Post("/", s.handleQuotesCreate)
		r.Post("/calc", s.handleQuotesCalc)
		r.Get("/{id}", s.handleQuoteDetail)
		r.Get("/{id}/text", s.handleQuoteText)
		r.Get("/{id}/xlsx", s.handleQuoteXLSX)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
