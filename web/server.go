package web

import (
	"context"
	"net/http"
	"time"

	"legal-rag/config"
	"legal-rag/crossref"
	"legal-rag/ingest"
	"legal-rag/rag"
	"legal-rag/vecindex"
	"legal-rag/web/handlers"
	"legal-rag/web/middleware"
	"legal-rag/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	limiter *middleware.ClientRateLimiter
	logger  *zap.Logger
	config  *config.Config
}

// Dependencies carries the constructed singletons the handlers need.
type Dependencies struct {
	Orchestrator *rag.Orchestrator
	Searcher     *rag.HybridSearcher
	Index        vecindex.Index
	Manager      *ingest.Manager
	CrossRefs    *crossref.Engine
}

func NewServer(deps Dependencies, logger *zap.Logger, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	limiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
		QuestionsPerMinute: cfg.RateLimitQuestionsPerMin,
		UploadsPerHour:     cfg.RateLimitUploadsPerHour,
		BurstSize:          cfg.RateLimitBurstSize,
		CleanupInterval:    10 * time.Minute,
	}, logger)

	server := &Server{
		router:  router,
		limiter: limiter,
		logger:  logger,
		config:  cfg,
	}

	server.setupRoutes(deps)
	return server
}

func (s *Server) setupRoutes(deps Dependencies) {
	streams := services.NewStreamService(s.logger)
	chatHandler := handlers.NewChatHandler(deps.Orchestrator, streams, s.config.DefaultJurisdict, s.logger)
	docHandler := handlers.NewDocumentHandler(deps.Manager, deps.Index, deps.Searcher, deps.CrossRefs,
		int64(s.config.MaxUploadMB)<<20, s.logger)
	healthHandler := handlers.NewHealthHandler(deps.Index, s.logger)

	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group("/api")

	questionLimit := middleware.RateLimitMiddleware(s.limiter, "question")
	api.POST("/chat", questionLimit, chatHandler.Ask)
	api.POST("/chat/stream", questionLimit, chatHandler.AskStream)
	api.GET("/chat/history", chatHandler.History)
	api.DELETE("/chat/history", chatHandler.ClearHistory)

	uploadLimit := middleware.RateLimitMiddleware(s.limiter, "upload")
	api.POST("/documents/upload", uploadLimit, docHandler.Upload)
	api.POST("/documents/search", docHandler.Search)
	api.GET("/documents/list", docHandler.ListDocuments)
	api.GET("/documents/:id/related", docHandler.RelatedDocuments)
	api.DELETE("/documents/:id", docHandler.DeleteDocument)

	api.GET("/tasks", docHandler.ListTasks)
	api.GET("/tasks/:id", docHandler.TaskStatus)
	api.POST("/tasks/:id/cancel", docHandler.CancelTask)
	api.DELETE("/tasks/:id", docHandler.DeleteTask)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	s.limiter.Stop()
	return srv.Shutdown(context.Background())
}
