package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pats-cloud/config"
	"pats-cloud/internal/auth"
	"pats-cloud/internal/handler"
	"pats-cloud/internal/middleware"
	"pats-cloud/internal/transport/httpdto"
	"pats-cloud/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Files  *handler.FilesHandler
	Upload *handler.UploadHandler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, sessions *auth.Manager) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	s.engine.GET("/health", handlers.Files.Health)

	s.engine.POST("/login", handlers.Auth.Login)
	s.engine.POST("/logout", handlers.Auth.Logout)

	gate := middleware.AuthMiddleware(sessions)

	s.engine.GET("/download/:name", gate, handlers.Files.Download)
	s.engine.GET("/file/:name", gate, handlers.Files.Stream)

	api := s.engine.Group("/api", gate)
	{
		api.GET("/files", handlers.Files.List)
		api.DELETE("/files/:name", handlers.Files.Delete)

		api.POST("/upload", handlers.Files.Upload)
		api.POST("/upload/init", handlers.Upload.Init)
		api.PUT("/upload/chunk", handlers.Upload.Chunk)
		api.POST("/upload/complete", handlers.Upload.Complete)
		api.DELETE("/upload/abort/:uploadId", handlers.Upload.Abort)

		api.GET("/folders", handlers.Files.ListFolders)
		api.POST("/folders", handlers.Files.CreateFolder)

		api.GET("/storage", handlers.Files.Storage)
		api.GET("/cloud/status", handlers.Files.CloudStatus)
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
