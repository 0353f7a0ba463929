package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wardrobe-backend/internal/config"
	"wardrobe-backend/internal/handlers"
	"wardrobe-backend/internal/metrics"
	"wardrobe-backend/internal/repository"
	"wardrobe-backend/internal/services"
	"wardrobe-backend/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Open user store
	store, mode, err := repository.Open(context.Background(), cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open user store")
	}
	defer store.Close()
	metrics.SetStoreMode(mode)
	log.Info().Str("mode", mode).Msg("User store ready")

	// Initialize image storage and background removal
	images, imagesDir, err := newImageStore(cfg.Images)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}
	remover := newRemover(cfg.Remover)

	// Initialize services
	assets := services.NewAssetPipeline(remover, images, cfg.Remover.Timeout)
	wardrobe := services.NewWardrobeService(store, assets, cfg.Store.AutoProvision)

	// Setup router
	r := handlers.NewRouter(handlers.RouterConfig{
		Wardrobe:       wardrobe,
		StoreMode:      mode,
		ImagesDir:      imagesDir,
		Debug:          cfg.Server.Debug,
		RequestTimeout: 15 * time.Second,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Remover.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Bool("debug", cfg.Server.Debug).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// configPath returns the config file location, overridable with CONFIG_PATH
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// newImageStore creates the configured image store. The returned directory is
// non-empty when images should be served by this process.
func newImageStore(cfg config.ImagesConfig) (storage.ImageStore, string, error) {
	switch cfg.Driver {
	case "s3":
		s3Store, err := storage.NewS3Store(context.Background(), cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create s3 store: %w", err)
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Storing images in S3")
		return s3Store, "", nil
	default:
		local := storage.NewLocalStore(cfg.Dir)
		log.Info().Str("dir", local.Dir()).Msg("Storing images on local disk")
		return local, local.Dir(), nil
	}
}

// newRemover creates the configured background remover
func newRemover(cfg config.RemoverConfig) services.BackgroundRemover {
	client := &http.Client{Timeout: cfg.Timeout}

	if cfg.Driver == "passthrough" || cfg.APIToken == "" {
		log.Warn().Msg("Background removal disabled, storing source images unchanged")
		return services.NewPassthroughRemover(client)
	}
	return services.NewReplicateRemover(client, cfg.BaseURL, cfg.APIToken, cfg.ModelVersion, cfg.PollInterval)
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
