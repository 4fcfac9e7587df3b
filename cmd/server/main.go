package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/UkralStul/media-posts-service/internal/blob"
	"github.com/UkralStul/media-posts-service/internal/blob/gcs"
	"github.com/UkralStul/media-posts-service/internal/blob/local"
	"github.com/UkralStul/media-posts-service/internal/config"
	"github.com/UkralStul/media-posts-service/internal/events"
	"github.com/UkralStul/media-posts-service/internal/httpapi"
	"github.com/UkralStul/media-posts-service/internal/service"
	"github.com/UkralStul/media-posts-service/internal/storage"
	"github.com/UkralStul/media-posts-service/internal/storage/firestore"
	"github.com/UkralStul/media-posts-service/internal/storage/inmemory"
	"github.com/UkralStul/media-posts-service/internal/storage/mongo"
	"github.com/UkralStul/media-posts-service/internal/storage/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	storageType := flag.String("storage", "in-memory", "Storage type (in-memory, postgres, mongo or firestore)")
	blobType := flag.String("blobs", "local", "Image storage (local or gcs)")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := newStorage(ctx, *storageType, cfg)
	if err != nil {
		cancel()
		logger.Error("failed to initialise post storage", "storage", *storageType, "err", err)
		os.Exit(1)
	}
	blobs, uploadDir, err := newBlobStore(ctx, *blobType, cfg)
	cancel()
	if err != nil {
		store.Close() //nolint:errcheck
		logger.Error("failed to initialise image storage", "blobs", *blobType, "err", err)
		os.Exit(1)
	}

	hub := events.NewHub(16)
	posts := service.New(store, blobs, hub, logger, service.Options{RequireImage: cfg.RequireImage})
	router := httpapi.NewRouter(posts, events.NewFeed(hub, logger), logger, httpapi.Options{
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port, "storage", *storageType, "blobs", *blobType, "require_image", cfg.RequireImage)
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)

	exitCode := 0
	if err := waitForStop(quit, serverErr); err != nil {
		logger.Error("server error", "err", err)
		exitCode = 1
	} else {
		logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	shutdownCancel()
	if err := blobs.Close(); err != nil {
		logger.Error("failed to close image storage", "err", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("failed to close post storage", "err", err)
	}
	logger.Info("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// waitForStop блокируется до сигнала остановки или падения сервера.
// Возвращает ошибку сервера; nil означает штатную остановку.
func waitForStop(quit <-chan os.Signal, serverErr <-chan error) error {
	select {
	case <-quit:
		return nil
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newStorage(ctx context.Context, kind string, cfg *config.Config) (storage.Storage, error) {
	switch kind {
	case "in-memory":
		return inmemory.New(), nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL must be set for postgres storage")
		}
		return postgres.New(cfg.DatabaseURL)
	case "mongo":
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGO_URI must be set for mongo storage")
		}
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "firestore":
		if cfg.FirestoreProject == "" {
			return nil, errors.New("FIRESTORE_PROJECT must be set for firestore storage")
		}
		return firestore.New(ctx, cfg.FirestoreProject, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage type %q", kind)
	}
}

// newBlobStore возвращает хранилище картинок и каталог для раздачи статики
// (пустой, если картинки лежат не на локальном диске).
func newBlobStore(ctx context.Context, kind string, cfg *config.Config) (blob.Store, string, error) {
	switch kind {
	case "local":
		s, err := local.New(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		return s, s.Root(), nil
	case "gcs":
		s, err := gcs.New(ctx, gcs.Config{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.GCSPrefix,
			PublicBaseURL:   cfg.GCSPublicBaseURL,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	default:
		return nil, "", fmt.Errorf("unknown image storage %q", kind)
	}
}
