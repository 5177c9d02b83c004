package main

import (
	"context"
	"log"
	"time"

	"pats-cloud/config"
	"pats-cloud/internal/auth"
	"pats-cloud/internal/handler"
	"pats-cloud/internal/mirror"
	"pats-cloud/internal/server"
	"pats-cloud/internal/services"
	"pats-cloud/internal/storage"
	"pats-cloud/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	store, err := storage.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to open upload root: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := mirror.FromConfig(ctx, cfg, l)
	defer dispatcher.Close()

	sessions, err := auth.NewManager(cfg.AppPassword, time.Duration(cfg.SessionTTL)*time.Hour)
	if err != nil {
		log.Fatalf("Failed to set up the session gate: %v", err)
	}
	if !sessions.PasswordRequired() {
		l.Warnf("No APP_PASSWORD set, anyone can log in")
	}

	fileService := services.NewFileService(store, dispatcher, cfg.MaxUploadBytes)
	chunkService := services.NewChunkService(store, dispatcher, l, time.Duration(cfg.ChunkTTL)*time.Hour)
	chunkService.StartSweeper(ctx, time.Hour)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Auth:   handler.NewAuthHandler(sessions),
		Files:  handler.NewFilesHandler(fileService),
		Upload: handler.NewUploadHandler(chunkService),
	}, sessions)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
