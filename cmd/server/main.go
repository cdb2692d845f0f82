package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dopple-server/configs"
	httpEngine "dopple-server/internal/app/http"
	"dopple-server/internal/logics"
	"dopple-server/internal/repositories"

	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&configPath, "config", "", "Path to config file (long)")
	flag.Parse()

	configs.Init(&configPath)
	defer configs.Logger.Sync()

	configs.Logger.Info("Configuration loaded.",
		zap.String("configPath", configPath),
	)

	repositories.Init()

	storageService := logics.NewStorageService(repositories.DBS.S3, configs.Configs.S3.BucketName)

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()

	cleanup := logics.NewCleanupService(storageService, 4, 256)
	cleanup.Start(cleanupCtx)

	httpServer := httpEngine.NewServer(cleanup)
	go func() {
		if err := httpServer.Start(); err != nil {
			if err.Error() != "http: Server closed" {
				configs.Logger.Fatal("HTTP server error", zap.Error(err))
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	configs.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		configs.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain queued blob deletions before exit.
	cleanup.Stop()

	configs.Logger.Info("Server exited")
}
