package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetgo/dispatch-api/internal/api"
	"github.com/fleetgo/dispatch-api/internal/config"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

func main() {
	// A .env file is a local development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogLevel)

	server, err := api.NewServer(cfg, log)
	if err != nil {
		log.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Dispatch API running", "port", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
