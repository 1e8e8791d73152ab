package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/app"
	"github.com/user/image-scraper-service/pkg/config"
	"github.com/user/image-scraper-service/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// --- Dependencies ---
	ctx := context.Background()
	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("could not build application", zap.Error(err))
	}
	defer container.Close()

	// --- Periodic sync ---
	var scheduler *app.SyncScheduler
	if cfg.SyncSchedule != "" {
		scheduler, err = app.NewSyncScheduler(cfg.SyncSchedule, container.Syncer, time.Hour, log)
		if err != nil {
			log.Fatal("could not schedule sync", zap.Error(err))
		}
		scheduler.Start()
		log.Info("periodic sync enabled", zap.String("schedule", cfg.SyncSchedule))
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      container.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout() + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}
