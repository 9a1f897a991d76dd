// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aadil-qamri/event-management-api/internal/config"
	"github.com/aadil-qamri/event-management-api/internal/database"
	"github.com/aadil-qamri/event-management-api/internal/handler"
	"github.com/aadil-qamri/event-management-api/internal/repository"
	"github.com/aadil-qamri/event-management-api/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	// Schema first, then the pool.
	if err := database.RunMigrations(cfg.Database.URL(), cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	logger.Info().Msg("migrations applied")

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()
	logger.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("connected to postgres")

	// Wire up layers.
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	eventSvc := service.NewEventService(eventRepo, regRepo)
	eventHandler := handler.NewEventHandler(eventSvc)
	router := handler.NewRouter(eventHandler, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
