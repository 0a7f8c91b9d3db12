// Package api serves table lookups over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultMetricsInterval = 15 * time.Second
)

// Router returns the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderLength, HeaderBucket, HeaderProbes},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimitMiddleware(s.config.RateLimit, s.config.RateBurst))
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/tables", s.metrics.InstrumentHandler("GET", "/api/v1/tables", s.handleListTables))
		r.Get("/tables/{name}", s.metrics.InstrumentHandler("GET", "/api/v1/tables/{name}", s.handleGetTable))
		r.Get("/tables/{name}/keys/{key}", s.metrics.InstrumentHandler("GET", "/api/v1/tables/{name}/keys/{key}", s.handleLookup))
	})

	return r
}

// Run serves requests on the configured address until ctx is done, then
// shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting shredder API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.startMetricsUpdater(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("shutting down shredder API server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// startMetricsUpdater refreshes catalog gauges until ctx is done
func (s *Server) startMetricsUpdater(ctx context.Context) {
	interval := s.config.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.metrics.UpdateTables(len(s.tables.Loaded()))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
