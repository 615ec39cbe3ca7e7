package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aletheia-labs/graphweave/internal/data/graph"
	"github.com/aletheia-labs/graphweave/internal/data/repos"
	"github.com/aletheia-labs/graphweave/internal/db"
	"github.com/aletheia-labs/graphweave/internal/engine/ingest"
	"github.com/aletheia-labs/graphweave/internal/engine/polarity"
	"github.com/aletheia-labs/graphweave/internal/engine/resolver"
	"github.com/aletheia-labs/graphweave/internal/engine/vocab"
	"github.com/aletheia-labs/graphweave/internal/http/handlers"
	"github.com/aletheia-labs/graphweave/internal/jobs/reembed"
	"github.com/aletheia-labs/graphweave/internal/observability"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/neo4jdb"
	"github.com/aletheia-labs/graphweave/internal/platform/openai"
	"github.com/aletheia-labs/graphweave/internal/platform/redisdb"
	"github.com/aletheia-labs/graphweave/internal/server"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing (no-op unless OTEL_ENABLED)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "graphweave",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	ontologyRepo := repos.NewOntologyRepo(thePG, log)
	conceptRepo := repos.NewConceptRepo(thePG, log)
	instanceRepo := repos.NewInstanceRepo(thePG, log)
	sourceRepo := repos.NewSourceRepo(thePG, log)
	relationshipRepo := repos.NewRelationshipRepo(thePG, log)
	vocabularyRepo := repos.NewVocabularyRepo(thePG, log)

	// Embedding provider
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init embedding client", "error", err)
		os.Exit(1)
	}
	openaiClient = openai.InstrumentClient(openaiClient)
	modelInfo := openaiClient.ModelInfo()
	log.Info("Embedding provider ready", "model", modelInfo.Model, "dims", modelInfo.Dims)

	// Graph mirror (optional)
	neoClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, running without graph mirror", "error", err)
		neoClient = nil
	}
	mirror := graph.NewMirror(neoClient, log)

	// Score cache (optional)
	redisClient, err := redisdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Redis init failed, running without score cache", "error", err)
		redisClient = nil
	}

	// Vocabulary
	seeds, err := vocab.LoadSeeds(os.Getenv("VOCAB_SEEDS_PATH"))
	if err != nil {
		log.Error("Could not load vocabulary seeds", "error", err)
		os.Exit(1)
	}
	vocabService := vocab.NewService(log, openaiClient, vocabularyRepo, vocab.ConfigFromEnv(log), seeds)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 60*time.Second)
	if err := vocabService.SeedBuiltins(startupCtx); err != nil {
		log.Error("Could not seed builtin vocabulary", "error", err)
		cancelStartup()
		os.Exit(1)
	}
	if err := vocabService.Load(startupCtx); err != nil {
		log.Error("Could not load vocabulary", "error", err)
		cancelStartup()
		os.Exit(1)
	}
	cancelStartup()

	// Engines
	resolverService := resolver.New(log, openaiClient, conceptRepo, instanceRepo, ontologyRepo, resolver.ConfigFromEnv(log))

	pairs, err := polarity.LoadSeedPairs(os.Getenv("POLARITY_SEEDS_PATH"))
	if err != nil {
		log.Error("Could not load polarity seed pairs", "error", err)
		os.Exit(1)
	}
	var expander polarity.NeighborhoodExpander
	if neoClient != nil {
		expander = mirror
	}
	var scoreCache polarity.ScoreCache
	if redisClient != nil {
		scoreCache = redisClient
	}
	polarityEngine := polarity.NewEngine(log, vocabService, relationshipRepo, conceptRepo, expander, scoreCache, modelInfo.Model, pairs, polarity.ConfigFromEnv(log))

	var graphSync ingest.GraphSync
	if neoClient != nil {
		graphSync = mirror
	}
	ingestService := ingest.NewService(log, openaiClient, resolverService, vocabService, ontologyRepo, sourceRepo, conceptRepo, instanceRepo, relationshipRepo, graphSync, polarityEngine)

	// Re-embedding migration, fired on startup when requested. It drains the
	// backlog of concepts embedded under a previous model and stops.
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	if envutil.GetEnvAsBool("REEMBED_ON_START", false, log) {
		migrator := reembed.NewMigrator(log, openaiClient, conceptRepo, resolverService, reembed.ConfigFromEnv(log))
		go func() {
			if _, err := migrator.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Re-embed migration failed", "error", err)
			}
		}()
	}

	// HTTP
	log.Info("Setting up handlers...")
	router := server.NewRouter(server.RouterConfig{
		OntologyHandler:   handlers.NewOntologyHandler(log, ontologyRepo),
		ResolveHandler:    handlers.NewResolveHandler(log, resolverService),
		IngestHandler:     handlers.NewIngestHandler(log, ingestService),
		VocabularyHandler: handlers.NewVocabularyHandler(log, vocabService, vocabularyRepo),
		ScoreHandler:      handlers.NewScoreHandler(log, polarityEngine),
	}, log)

	port := envutil.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err)
			cancelRoot()
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-rootCtx.Done():
	}
	log.Info("Shutting down...")
	cancelRoot()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := neoClient.Close(shutdownCtx); err != nil {
		log.Warn("Neo4j close failed", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Warn("Redis close failed", "error", err)
	}
	if otelShutdown != nil {
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Warn("Trace flush incomplete", "error", err)
		}
	}
	log.Info("Shutdown complete")
}
