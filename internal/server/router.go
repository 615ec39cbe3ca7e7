package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/aletheia-labs/graphweave/internal/http/handlers"
	"github.com/aletheia-labs/graphweave/internal/http/middleware"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type RouterConfig struct {
	OntologyHandler   *handlers.OntologyHandler
	ResolveHandler    *handlers.ResolveHandler
	IngestHandler     *handlers.IngestHandler
	VocabularyHandler *handlers.VocabularyHandler
	ScoreHandler      *handlers.ScoreHandler
}

func NewRouter(cfg RouterConfig, log *logger.Logger) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware("graphweave"))
	router.Use(middleware.AttachTraceContext())

	origins := strings.Split(envutil.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Ontologies
		api.POST("/ontologies", cfg.OntologyHandler.Create)
		api.GET("/ontologies", cfg.OntologyHandler.List)
		api.POST("/ontologies/:ontology/resolve", cfg.ResolveHandler.Resolve)

		// Ingestion
		api.POST("/ingest/:ontology", cfg.IngestHandler.Ingest)

		// Vocabulary
		api.POST("/vocabulary/normalize", cfg.VocabularyHandler.Normalize)
		api.GET("/vocabulary", cfg.VocabularyHandler.List)

		// Scores
		api.GET("/concepts/:id/grounding", cfg.ScoreHandler.Grounding)
		api.GET("/concepts/:id/diversity", cfg.ScoreHandler.Diversity)
	}

	return router
}
