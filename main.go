package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"

	"learnon/config"
	"learnon/database"
	"learnon/query"
	"learnon/services"
)

func main() {
	// Load .env file
	config.LoadEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	dbCfg := database.Config{Driver: cfg.DBDriver, DSN: cfg.DSN()}

	// Check the store once at startup; lookups open their own connections.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := database.Connect(ctx, dbCfg)
	if err != nil {
		cancel()
		logger.Error("unable to connect to the database", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	if err := database.EnsureSchema(ctx, conn); err != nil {
		logger.Error("unable to prepare schema", "error", err)
		os.Exit(1)
	}
	conn.Close()
	logger.Info("successfully connected to the database", "driver", cfg.DBDriver)

	cache := services.NewScheduleCache(ctx, cfg.RedisAddr,
		services.StoreNamespace(cfg.DBDriver, cfg.DSN()), cfg.CacheTTL, logger)
	defer cache.Close()
	cancel()

	extractor, err := services.NewTeacherExtractor(cfg.LLMProvider, cfg.APIKey, cfg.LLMModel)
	if err != nil {
		logger.Error("invalid LLM configuration", "error", err)
		os.Exit(1)
	}

	if cfg.AllowUnsafe {
		logger.Warn("ALLOW_UNSAFE is set, /schedule/unsafe interpolates input into SQL")
	}

	h := &query.Handler{
		Lookup:      query.NewLookup(dbCfg, cache, logger),
		Extractor:   extractor,
		AllowUnsafe: cfg.AllowUnsafe,
		Logger:      logger,
	}

	// Create a CORS handler
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           c.Handler(h.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting", "addr", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
