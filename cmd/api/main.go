package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/biokg-agent/backend/internal/api/handlers"
	"github.com/biokg-agent/backend/internal/cache/redis"
	"github.com/biokg-agent/backend/internal/cypher"
	"github.com/biokg-agent/backend/internal/entities"
	"github.com/biokg-agent/backend/internal/graph/neo4j"
	"github.com/biokg-agent/backend/internal/intent"
	"github.com/biokg-agent/backend/internal/llm"
	"github.com/biokg-agent/backend/internal/metrics"
	"github.com/biokg-agent/backend/internal/middleware/ratelimit"
	"github.com/biokg-agent/backend/internal/middleware/security"
	"github.com/biokg-agent/backend/internal/middleware/validation"
	"github.com/biokg-agent/backend/internal/pipeline"
	"github.com/biokg-agent/backend/internal/storage/sqlite"
	"github.com/biokg-agent/backend/pkg/config"
	appLogger "github.com/biokg-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting BioKG Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	queryTimeout := time.Duration(cfg.Pipeline.QueryTimeoutSec) * time.Second

	neo4jClient, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
		queryTimeout,
	)
	if err != nil {
		appLogger.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer neo4jClient.Close(context.Background())

	// The answer cache is an optimization; the service runs without it.
	var cacheClient *redis.Client
	if cfg.Redis.Enabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without answer cache", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	var llmClient *llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewClient(
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			cfg.LLM.Temperature,
			cfg.LLM.MaxTokens,
			cfg.LLM.TimeoutSec,
		)
	}

	vocab := entities.NewVocabulary(neo4jClient)
	recognizer := entities.NewRecognizer(vocab)
	classifier := intent.NewClassifier()

	var strategy cypher.Strategy
	switch cfg.Pipeline.Strategy {
	case "synthesized":
		strategy = cypher.NewSynthesizedStrategy()
	case "llm":
		schema, err := neo4jClient.GetSchemaInfo(context.Background())
		if err != nil {
			appLogger.Fatal("Failed to discover graph schema for LLM strategy", zap.Error(err))
		}
		strategy = cypher.NewLLMStrategy(llmClient, schema, neo4jClient.ValidateQuery)
	default:
		strategy = cypher.NewTemplatedStrategy()
	}
	appLogger.Info("Query strategy selected", zap.String("strategy", cfg.Pipeline.Strategy))

	var summarizer pipeline.Summarizer
	if llmClient != nil && cfg.LLM.AnswerPhrasing {
		summarizer = llmClient
	}
	formatter := pipeline.NewFormatter(cfg.Pipeline.MaxAnswerRows, summarizer)

	pipe := pipeline.New(classifier, recognizer, strategy, neo4jClient, formatter, sqliteClient, queryTimeout)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.Headers(security.Config{}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		Logger: appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	var answerCache handlers.AnswerCache
	var cacheFlusher handlers.CacheFlusher
	if cacheClient != nil {
		answerCache = cacheClient
		cacheFlusher = cacheClient
	}

	answerTTL := time.Duration(cfg.Redis.AnswerTTL) * time.Second
	questionHandler := handlers.NewQuestionHandler(pipe, answerCache, sqliteClient, answerTTL)
	templatesHandler := handlers.NewTemplatesHandler(neo4jClient)
	schemaHandler := handlers.NewSchemaHandler(neo4jClient, vocab, cacheFlusher)
	wsHandler := handlers.NewWebSocketHandler(pipe)

	api := app.Group("/api/v1")

	api.Post("/question", questionHandler.HandleQuestion)
	api.Post("/question/explain", questionHandler.ExplainQuestion)
	api.Get("/question/history", questionHandler.GetHistory)
	api.Post("/feedback", questionHandler.HandleFeedback)

	api.Get("/templates", templatesHandler.ListTemplates)
	api.Get("/templates/:name", templatesHandler.ExecuteTemplate)

	api.Get("/schema", schemaHandler.GetSchema)
	api.Get("/schema/values", schemaHandler.GetPropertyValues)
	api.Post("/schema/refresh", schemaHandler.RefreshSchema)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if err := neo4jClient.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/question", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
