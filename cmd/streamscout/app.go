package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"streamscout/internal/config"
	"streamscout/internal/handlers"
	"streamscout/internal/services"
	"streamscout/pkg/logger"
)

var (
	Logger           logger.Logger
	cfg              *config.Config
	serviceContainer *services.Container
	handler          *handlers.Handler
)

func InitializeLogger() {
	Logger = logger.New()
}

func InitializeConfig() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		Logger.Debugf("[App] loaded environment from .env")
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		Logger.Fatalf("failed to load configuration: %v", err)
	}

	Logger.Infof("[App] configuration loaded - providers: %d, data dir: %s", len(cfg.Providers), cfg.DataDir)
}

func InitializeServices(ctx context.Context) {
	var err error
	serviceContainer, err = services.NewContainer(cfg, Logger)
	if err != nil {
		Logger.Fatalf("failed to initialize services: %v", err)
	}

	serviceContainer.Cache.StartCleanup(ctx, 10*time.Minute)

	handler = handlers.New(serviceContainer)

	Logger.Infof("[App] services initialized successfully")
}
