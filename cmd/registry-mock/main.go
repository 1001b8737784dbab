// Command registry-mock serves a stand-in DBT status registry for running the
// registry verifier locally (VERIFIER=registry REGISTRY_URL=http://localhost:8081).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"

	"dbtcheck/internal/platform/httpserver"
	"dbtcheck/internal/platform/logger"
	"dbtcheck/internal/platform/middleware"
	"dbtcheck/internal/status/registrymock"
)

type config struct {
	Addr     string `env:"REGISTRY_MOCK_ADDR" envDefault:":8081"`
	APIKey   string `env:"REGISTRY_API_KEY"`
	LogLevel string `env:"LOG_LEVEL"          envDefault:"info"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	mock, err := registrymock.New(log, registrymock.WithAPIKey(cfg.APIKey))
	if err != nil {
		log.Error("registry mock", "error", err)
		os.Exit(1)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	mock.Register(r)

	srv := httpserver.New(cfg.Addr, r, 10*time.Second)
	go func() {
		log.Info("starting registry mock", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
