// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/api"
	"github.com/swire-renewables/intelligence-assistant/internal/config"
	"github.com/swire-renewables/intelligence-assistant/internal/docproc"
	"github.com/swire-renewables/intelligence-assistant/internal/health"
	"github.com/swire-renewables/intelligence-assistant/internal/history"
	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
	"github.com/swire-renewables/intelligence-assistant/internal/logging"
	internalopenai "github.com/swire-renewables/intelligence-assistant/internal/openai"
	"github.com/swire-renewables/intelligence-assistant/internal/orchestrator"
	"github.com/swire-renewables/intelligence-assistant/internal/resilience"
	"github.com/swire-renewables/intelligence-assistant/internal/search"
	"github.com/swire-renewables/intelligence-assistant/internal/storage"
	"github.com/swire-renewables/intelligence-assistant/internal/telemetry"
	"github.com/swire-renewables/intelligence-assistant/internal/tools"
)

const serviceName = "assistant"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging, serviceName)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	masked := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", serviceName),
		zap.String("environment", cfg.Sentry.Environment),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("history_storage", cfg.History.StorageType),
		zap.String("catalog_path", cfg.Knowledge.CatalogPath),
		zap.String("search_endpoint", masked.Search.Endpoint),
		zap.String("openai_api_key", masked.OpenAI.APIKey),
	)

	flush := telemetry.InitSentry(cfg.Sentry, serviceName, logger)
	defer flush()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	} else if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthManager := health.NewManager(api.ServiceName, api.Version, cfg.Sentry.Environment, logger)
	healthManager.SetMessage("Swire Intelligence Assistant is running")

	store, err := history.NewStore(history.Config{
		StorageType: cfg.History.StorageType,
		Capacity:    cfg.History.Capacity,
		RedisAddr:   cfg.History.RedisAddr,
		RedisKey:    cfg.History.RedisKey,
	})
	if err != nil {
		logger.Fatal("Failed to create history store", zap.Error(err))
	}
	if redisStore, ok := store.(*history.RedisStore); ok {
		defer func() { _ = redisStore.Close() }()
		healthManager.AddChecker("history", health.PingChecker("redis", redisStore.Ping, false))
	}

	metrics := telemetry.NewMetrics()
	registry := tools.NewRegistry(logger)
	registry.SetObserver(metrics.ObserveTool)
	financeBreaker := resilience.NewBreaker(resilience.Config{
		Name:             "finance_source",
		FailureThreshold: cfg.Finance.FailureThreshold,
		OpenTimeout:      cfg.Finance.OpenTimeout,
	}, logger)
	registry.Register(tools.NewFinanceTool(cfg.Finance.SourceURL, cfg.Finance.Timeout, logger).WithBreaker(financeBreaker))
	registry.Register(tools.NewHSETool())
	registry.Register(tools.NewDatabaseTool())
	registry.Register(tools.NewLeadershipTool())
	healthManager.AddChecker("finance_source", health.PingChecker("finance_source", financeBreaker.Check, true))

	var (
		sources  []tools.DocumentSearcher
		docStore docproc.DocumentStore
	)

	searchClient, err := search.NewClient(cfg.Search, logger)
	switch {
	case err == nil:
		sources = append(sources, searchClient)
		healthManager.AddChecker("search", health.PingChecker("search", searchClient.HealthCheck, true))
	case errors.Is(err, search.ErrNotConfigured):
		logger.Info("Azure Cognitive Search not configured, using the local catalog only")
	default:
		logger.Fatal("Failed to create search client", zap.Error(err))
	}

	catalog, err := knowledge.NewCatalog(cfg.Knowledge.CatalogPath)
	if err != nil {
		logger.Warn("Knowledge catalog unavailable, knowledge answers fall back to defaults",
			zap.String("path", cfg.Knowledge.CatalogPath), zap.Error(err))
	} else {
		defer func() { _ = catalog.Close() }()
		sources = append(sources, catalog)
		docStore = catalog
		healthManager.AddChecker("catalog", health.PingChecker("sqlite", catalog.Ping, false))
	}
	registry.Register(tools.NewKnowledgeTool(cfg.Knowledge.SearchLimit, logger, sources...))

	var completer docproc.Completer
	llm, err := internalopenai.NewClient(cfg.OpenAI, logger)
	switch {
	case err == nil:
		completer = llm
		registry.Register(tools.NewAssistantTool(llm, internalopenai.BuildSystemPrompt()))
		logger.Info("Language model tool enabled", zap.String("model", llm.Model()))
	case errors.Is(err, internalopenai.ErrMissingAPIKey):
		logger.Info("No OpenAI API key configured, language model features disabled")
	default:
		logger.Fatal("Failed to initialize OpenAI client", zap.Error(err))
	}

	if cfg.Storage.Bucket != "" || cfg.Storage.Backend == storage.BackendLocal {
		objectStore, err := storage.NewObjectStore(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("Object storage unavailable", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
		} else {
			healthManager.AddChecker("object_storage", health.PingChecker(cfg.Storage.Backend, objectStore.Ping, true))
		}
	}

	orch := orchestrator.New(registry, store, orchestrator.Config{
		CollaborationCapacity: cfg.History.CollaborationCapacity,
	}, logger)

	server := api.NewServer(cfg.Server, api.Dependencies{
		Orchestrator: orch,
		Processor:    docproc.NewProcessor(completer, docStore, logger),
		Health:       healthManager,
		Metrics:      metrics,
		Logger:       logger,
	})

	if err := config.WatchConfig("", func(updated *config.Config) {
		logger.Info("Configuration file changed, restart to apply server settings",
			zap.String("log_level", updated.Logging.Level),
			zap.Int("port", updated.Server.Port),
		)
	}, func(err error) {
		logger.Warn("Configuration reload failed", zap.Error(err))
	}); err != nil {
		logger.Debug("Configuration hot reload disabled", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting assistant service",
			zap.String("addr", httpServer.Addr),
			zap.Strings("tools", registry.Names()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err, ok := <-errChan:
		if ok {
			logger.Error("Server failed", zap.Error(err))
			telemetry.CaptureError(context.Background(), err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Assistant service stopped")
}
