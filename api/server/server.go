// Package server assembles the HTTP surface of the tipjar API: operation and
// query routes, health probes and Prometheus metrics, with graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solstream/tipjar/api/handlers"
	"github.com/solstream/tipjar/api/metrics"
)

type Server struct {
	log      *slog.Logger
	cfg      Config
	handlers *handlers.Handlers
	httpSrv  *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h, err := handlers.New(cfg.HandlersConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create handlers: %w", err)
	}

	s := &Server{
		log:      cfg.HandlersConfig.Logger,
		cfg:      cfg,
		handlers: h,
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", s.healthzHandler)
	router.Get("/readyz", s.readyzHandler)
	router.Get("/version", s.versionHandler)
	router.Handle("/metrics", promhttp.Handler())

	var opLimiter *handlers.RateLimiter
	if cfg.OperationRate > 0 {
		opLimiter = handlers.NewRateLimiter(cfg.OperationRate, cfg.OperationBurst)
	}

	router.Route("/v1", func(r chi.Router) {
		// Mutating operation endpoints, rate limited when configured.
		r.Group(func(r chi.Router) {
			if opLimiter != nil {
				r.Use(opLimiter.Middleware)
			}
			r.Post("/initialize", h.Initialize)
			r.Post("/pause", h.Pause)
			r.Post("/unpause", h.Unpause)
			r.Post("/streamers", h.RegisterStreamer)
			r.Post("/donations", h.Donate)
			r.Post("/donations/token", h.DonateToken)
		})

		r.Get("/config", h.GetConfig)
		r.Get("/streamers/{wallet}", h.GetStreamer)
		r.Get("/streamers/{wallet}/donations", h.ListDonations)
		r.Get("/streamers/{wallet}/donations/{id}", h.GetDonation)
		r.Get("/balances/{address}", h.GetBalance)
		r.Get("/token-accounts/{address}", h.GetTokenAccount)

		if cfg.HandlersConfig.Dev {
			r.Route("/dev", func(r chi.Router) {
				r.Post("/airdrop", h.Airdrop)
				r.Post("/mints", h.CreateMint)
				r.Post("/token-accounts", h.CreateTokenAccount)
				r.Post("/mint-to", h.MintTo)
			})
		}
	})

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	metrics.BuildInfo.WithLabelValues(
		cfg.VersionInfo.Version, cfg.VersionInfo.Commit, cfg.VersionInfo.Date,
	).Set(1)

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("server: http listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping", "reason", ctx.Err(), "address", s.cfg.ListenAddr)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("server: http server shutdown complete")
		return nil
	case err := <-serveErrCh:
		s.log.Error("server: http server error causing shutdown", "error", err, "address", s.cfg.ListenAddr)
		return err
	}
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write healthz response", "error", err)
	}
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(s.cfg.VersionInfo); err != nil {
		s.log.Error("failed to write version response", "error", err)
	}
}
