// Package server exposes the intake and auth services over HTTP.
//
// All routes live under /v1 and answer with a JSON envelope:
// {"status": "success", "data": ...} or {"status": "error", "error": ...}.
// Upload endpoints require a bearer token issued by POST /v1/auth/login.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intake-go/internal/auth"
	"intake-go/internal/config"
	"intake-go/internal/intake"
)

// Server wires the intake and auth services into a gin engine.
type Server struct {
	engine         *gin.Engine
	intake         *intake.IntakeService
	auth           *auth.Service
	logger         intake.Logger
	addr           string
	maxUploadBytes int64
}

// NewServer builds the HTTP surface: middleware, routes and metrics.
func NewServer(intakeSvc *intake.IntakeService, authSvc *auth.Service, logger intake.Logger, cfg config.ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		intake:         intakeSvc,
		auth:           authSvc,
		logger:         logger,
		addr:           cfg.Addr,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metricsMiddleware())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	engine.Use(cors.New(corsCfg))

	engine.GET("/v1/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/v1/auth/login", s.handleLogin)

	uploads := engine.Group("/v1/uploads")
	uploads.Use(s.authMiddleware())
	{
		uploads.POST("", s.handleStartUpload)
		uploads.GET("", s.handleListUploads)
		uploads.GET("/:id", s.handleGetUpload)
		uploads.GET("/:id/events", s.handleUploadEvents)
		uploads.GET("/:id/archive", s.handleExportArchive)
		uploads.POST("/:id/dedup", s.handleResolveDedup)
		uploads.POST("/:id/classifications", s.handleSubmitClassifications)
		uploads.POST("/:id/project-types", s.handleSubmitProjectTypes)
		uploads.POST("/:id/file-roles", s.handleSubmitFileRoles)
		uploads.POST("/:id/summaries", s.handleSubmitSummaries)
		uploads.POST("/:id/analysis", s.handleSubmitAnalysis)
		uploads.POST("/:id/fail", s.handleFailUpload)
		uploads.DELETE("/:id", s.handlePurgeUpload)
	}

	s.engine = engine
	return s
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.engine.Run(s.addr); err != nil {
		return fmt.Errorf("running http server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
