// Package main runs the habitlog HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/momentum-labs/habitlog/internal/auth"
	"github.com/momentum-labs/habitlog/internal/config"
	"github.com/momentum-labs/habitlog/internal/database"
	"github.com/momentum-labs/habitlog/internal/logging"
	"github.com/momentum-labs/habitlog/internal/metrics"
	"github.com/momentum-labs/habitlog/internal/middleware"
	"github.com/momentum-labs/habitlog/services/habits"
	habitsupabase "github.com/momentum-labs/habitlog/services/habits/supabase"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.New(habits.ServiceID)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.NewClient(database.Config{
		URL:        cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseKey,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create store client")
	}

	svc, err := habits.New(habits.Config{
		DB:     habitsupabase.NewRepository(db),
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create habits service")
	}

	authMW := auth.New(auth.Config{
		SupabaseURL: cfg.SupabaseURL,
		APIKey:      cfg.SupabaseKey,
		Mode:        cfg.AuthMode,
		JWTSecret:   cfg.JWTSecret,
	}, logger)

	m := metrics.New(habits.ServiceID)

	r := mux.NewRouter()
	r.Use(middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.MetricsMiddleware(m))
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	svc.RegisterRoutes(api, authMW.Handler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (auth mode: %s)", cfg.ListenAddr, cfg.AuthMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}

	logger.Info("server stopped")
}
