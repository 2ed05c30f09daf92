package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jetsocket/backend/internal/database"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/security"
	"github.com/jetsocket/backend/internal/server"
	"github.com/jetsocket/backend/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the metrics retention worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	secret, err := database.EnsureJWTSecret(db, cfg)
	if err != nil {
		return err
	}
	cfg.JWTSecret = secret

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Warn("redis unavailable, token revocation and caching disabled", err)
		rdb = nil
	}
	defer database.Close(db, rdb)
	cache := database.NewCache(rdb)

	cipher, err := security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	var uploader services.ArchiveUploader
	if cfg.Archive.FTPEnabled() {
		uploader = services.NewFTPUploader(cfg.Archive)
	}
	retention := services.NewMetricsRetentionService(db, uploader, cfg.Archive.RetentionDays, cfg.Archive.Interval)
	retention.Start()
	defer retention.Stop()

	app, err := server.New(server.Deps{Config: cfg, DB: db, Cache: cache, Cipher: cipher})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("starting server", "addr", addr, "db", cfg.DBDriver, "broker", cfg.Broker.Enabled())
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
