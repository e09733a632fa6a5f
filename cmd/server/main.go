package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/go-context-gateway/internal/adapter/ai"
	"github.com/arturoeanton/go-context-gateway/internal/adapter/memory"
	"github.com/arturoeanton/go-context-gateway/internal/adapter/store"
	"github.com/arturoeanton/go-context-gateway/internal/adapter/webhook"
	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/handler"
	"github.com/arturoeanton/go-context-gateway/internal/indexer"
	"github.com/arturoeanton/go-context-gateway/internal/middleware"
	"github.com/arturoeanton/go-context-gateway/internal/port"
	"github.com/arturoeanton/go-context-gateway/internal/service"
	"github.com/arturoeanton/go-context-gateway/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	logger := slog.Default()

	logger.Info("starting context gateway",
		"port", cfg.Port,
		"embed_model", cfg.EmbedModel,
		"chat_model", cfg.ChatModel,
		"dimension", cfg.EmbeddingDimension,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.EnsureSchema(ctx, cfg.EmbeddingDimension); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}
	vectorStore := store.NewVectorStore(pgStore, cfg.EmbeddingDimension)

	// ── Adapters ─────────────────────────────────────────────────────────
	openaiAI := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
		Dimension:  cfg.EmbeddingDimension,
		BatchSize:  cfg.EmbedBatchSize,
		RateLimit:  cfg.EmbedRateLimit,
		MaxRetries: cfg.EmbedMaxRetries,
		Timeout:    cfg.RequestTimeout,
	})

	parsers := port.WebhookParserRegistry{
		"github": webhook.NewGitHubParser(),
		"gitlab": webhook.NewGitLabParser(),
	}

	memoryClient := memory.NewClient(cfg.MemoryServiceURL, cfg.MemoryServiceToken)

	// ── Indexing pipeline ────────────────────────────────────────────────
	chunker, err := indexer.NewChunker(cfg.ChunkTokens, cfg.ChunkOverlap)
	if err != nil {
		logger.Error("failed to initialize chunker", "error", err)
		os.Exit(1)
	}
	tracker := indexer.NewTracker(cfg.MaxFileSize, logger)
	engine := indexer.NewEngine(vectorStore, pgStore, openaiAI, chunker, tracker, logger)

	queue := service.NewJobQueue(engine, cfg.JobRetention, logger)
	queue.Start(ctx)

	// ── Services ─────────────────────────────────────────────────────────
	retrieval := service.NewRetrievalService(openaiAI, vectorStore, logger)
	composer := service.NewComposer(openaiAI, logger)

	// ── Watcher (optional) ───────────────────────────────────────────────
	if cfg.WatchEnabled && len(cfg.WatchRepos) > 0 {
		targets := make([]indexer.WatchTarget, 0, len(cfg.WatchRepos))
		for _, repo := range cfg.WatchRepos {
			targets = append(targets, indexer.WatchTarget{
				Collection: domain.CollectionForRepo(repo),
				RepoPath:   filepath.Join(cfg.ReposBasePath, repo),
			})
		}
		watcher, err := indexer.NewWatcher(targets, cfg.WatchDebounce, func(collection, repoPath string, changed []string) {
			if _, err := queue.Enqueue(collection, repoPath, changed, nil, false); err != nil {
				logger.Warn("watch-triggered job rejected", "collection", collection, "error", err)
			}
		}, logger)
		if err != nil {
			logger.Error("failed to initialize watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// ── Public Routes ────────────────────────────────────────────────────
	// Webhooks carry their own provider signatures instead of the gateway token.
	webhookHandler := handler.NewWebhookHandler(parsers, queue, cfg.SecretFor, cfg.ReposBasePath, logger)
	webhookHandler.Register(app)

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("/api/v1", middleware.BearerAuth(cfg.GatewayToken))

	askHandler := handler.NewAskHandler(retrieval, composer)
	askHandler.Register(api)

	searchHandler := handler.NewSearchHandler(retrieval, queue, cfg.ReposBasePath)
	searchHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(queue)
	jobsHandler.Register(api)

	memoryHandler := handler.NewMemoryHandler(memoryClient)
	memoryHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
