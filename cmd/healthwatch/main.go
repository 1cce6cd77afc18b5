// Command healthwatch keeps CredoSafe service instances awake. It polls each
// configured target's /health endpoint every three minutes (configurable),
// logs results, and serves its own /health and /metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/credosafe/credosafe-go/healthcheck"
	"github.com/credosafe/credosafe-go/internal/config"
	"github.com/credosafe/credosafe-go/internal/metrics"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	var targets []healthcheck.Target
	for _, t := range cfg.Targets() {
		targets = append(targets, healthcheck.Target{Name: t.Name, URL: t.URL})
	}
	if len(targets) == 0 {
		logger.Fatal().Msg("no health targets configured (CREDOSAFE_HEALTH_TARGETS)")
	}

	pinger, err := healthcheck.New(healthcheck.Config{
		Targets:  targets,
		Interval: cfg.HealthInterval,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create pinger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pinger.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start pinger")
	}
	defer pinger.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"targets":   pinger.Results(),
		})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.HealthListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HealthListenAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
