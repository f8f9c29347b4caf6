package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"weather-server/cache"
	"weather-server/confs"
	"weather-server/db"
	"weather-server/logging"
	"weather-server/server"
	"weather-server/services"
)

func main() {
	// load config
	cfg, err := confs.LoadConfig()
	if err != nil {
		slog.Error("error loading config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	if closer, ok := database.(io.Closer); ok {
		defer closer.Close()
	}

	store, err := cache.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to set up cache", "driver", cfg.CacheDriver, "err", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("public read cache ready", "driver", cfg.CacheDriver, "ttl", cfg.CacheTTL)

	srv := server.NewServer(cfg, database, store, logger)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := srv.Auth().EnsureUser(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			logger.Error("failed to seed admin user", "username", cfg.AdminUsername, "err", err)
			os.Exit(1)
		}
	}

	if cfg.MQTTBrokerURL != "" {
		ingestor := services.NewIngestor(cfg, srv.Readings(), logger)
		go func() {
			if err := ingestor.Connect(ctx); err != nil {
				logger.Error("mqtt ingest disabled", "broker", cfg.MQTTBrokerURL, "err", err)
			}
		}()
		defer ingestor.Disconnect()
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
