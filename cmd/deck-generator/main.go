package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	deckhandler "github.com/aliskhannn/deck-generator/internal/api/handlers/deck"
	"github.com/aliskhannn/deck-generator/internal/api/router"
	"github.com/aliskhannn/deck-generator/internal/api/server"
	"github.com/aliskhannn/deck-generator/internal/config"
	"github.com/aliskhannn/deck-generator/internal/infra/kafka/consumer"
	"github.com/aliskhannn/deck-generator/internal/infra/kafka/producer"
	"github.com/aliskhannn/deck-generator/internal/jobstore"
	jobmsg "github.com/aliskhannn/deck-generator/internal/kafka/handlers/job"
	"github.com/aliskhannn/deck-generator/internal/pipeline"
	"github.com/aliskhannn/deck-generator/internal/renderer"
	decksvc "github.com/aliskhannn/deck-generator/internal/service/deck"
	"github.com/aliskhannn/deck-generator/internal/storage/file"
	"github.com/aliskhannn/deck-generator/internal/storage/minio"
	"github.com/aliskhannn/deck-generator/internal/structurer"
	"github.com/aliskhannn/deck-generator/internal/visual"
)

// artifactStorage is the storage contract shared by the file and MinIO
// backends for finished decks.
type artifactStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
	Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error)
}

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Retry strategy for Kafka and outbound image downloads.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Connect to Redis: job snapshots and cancellation flags.
	store, err := jobstore.New(cfg.Redis)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to job store")
	}

	// Scratch storage for per-slide images, validated before any job runs.
	scratch, err := file.NewStorage(cfg.Storage.ScratchDir)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize scratch storage")
	}

	// Artifact storage for finished decks: local directory by default,
	// MinIO when configured.
	var artifacts artifactStorage
	switch cfg.Storage.Backend {
	case "s3":
		artifacts, err = minio.NewStorage(ctx, cfg.Storage.S3)
	default:
		artifacts, err = file.NewStorage(cfg.Storage.OutputDir)
	}
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize artifact storage")
	}

	// Slide structuring model client.
	structurerClient, err := structurer.New(cfg.Groq)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize structurer")
	}

	// Visual resolution chain: search first, then generation, then a
	// drawn placeholder inside the resolver.
	resolver := visual.NewResolver(
		scratch,
		strategy,
		visual.NewSerperSource(cfg.Serper),
		visual.NewRunwareSource(cfg.Runware),
	)

	// Initialize renderer, producer, pipeline, and service layer.
	rend := renderer.New(cfg.Storage.FontPath)
	p := producer.New(&cfg.Kafka, strategy)
	pipe := pipeline.New(store, structurerClient, resolver, rend, artifacts, cfg.Content)
	service := decksvc.NewService(store, p, pipe, artifacts)

	// Kafka message handler for submitted generation tasks.
	taskHandler := jobmsg.NewSubmittedHandler(service)

	// HTTP handler for deck generation routes.
	h := deckhandler.NewHandler(service, deckhandler.Upstreams{
		Groq:    cfg.Groq.APIKey != "",
		Serper:  cfg.Serper.APIKey != "",
		Runware: cfg.Runware.APIKey != "",
	})

	// Kafka consumer for processing submitted generation tasks.
	c := consumer.New(&cfg.Kafka, strategy, taskHandler)

	// Start Kafka consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}

	// Close the job store connection.
	if err = store.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close job store")
	}
}
