package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"helpcenter/api/internal/app"
	"helpcenter/api/internal/blob"
	"helpcenter/api/internal/config"
	"helpcenter/api/internal/email"
	"helpcenter/api/internal/export"
	"helpcenter/api/internal/gitrepo"
	"helpcenter/api/internal/search"
	"helpcenter/api/internal/session"
	"helpcenter/api/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Connects to PostgreSQL, applies pending migrations and serves the
console and public help-center API until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	if _, ok := reg.Variant(cfg.DefaultTheme); !ok {
		return fmt.Errorf("default theme %q is not in the catalog", cfg.DefaultTheme)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, store.Migrations())
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	logger.Info("migrations applied", "count", applied)

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		return fmt.Errorf("failed to create repos dir: %w", err)
	}

	sessions, closeSessions, err := openSessionStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
	}
	searchService := search.NewService(meili, search.NewPgFTS(db), logger)

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithRegistry(reg),
		app.WithSearch(searchService),
		app.WithExporter(export.NewService(export.ChromePDF{})),
		app.WithMailer(email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})),
	}
	if strings.TrimSpace(cfg.BlobEndpoint) != "" {
		images, err := blob.New(ctx, blob.Config{
			Endpoint:  cfg.BlobEndpoint,
			AccessKey: cfg.BlobAccessKey,
			SecretKey: cfg.BlobSecretKey,
			Bucket:    cfg.BlobBucket,
			UseSSL:    cfg.BlobUseSSL,
		})
		if err != nil {
			return fmt.Errorf("object storage unavailable: %w", err)
		}
		opts = append(opts, app.WithImages(images))
	} else {
		logger.Warn("blob_endpoint not set, image uploads disabled")
	}

	service := app.New(cfg, store.NewPostgresStore(db), sessions, gitrepo.New(cfg.ReposDir), opts...)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("help-center API listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	return nil
}

// openSessionStore picks the refresh-token and editing-session backend.
func openSessionStore(cfg config.Config, logger *slog.Logger) (app.SessionStore, func(), error) {
	if cfg.EditSessionStore != "redis" {
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
	redisStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info("using redis session store")
	return redisStore, func() { _ = redisStore.Close() }, nil
}
