package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/auth"
	"github.com/faultline-dev/faultline/internal/config"
	"github.com/faultline-dev/faultline/internal/logger"
	"github.com/faultline-dev/faultline/internal/router"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Init(config.C.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zap.L().Sync()

	if err := auth.InitJWTSecret(config.C.JWTSecret); err != nil {
		zap.L().Fatal("jwt setup failed", zap.Error(err))
	}

	if err := db.ConnectDatabase(config.C.DatabaseDSN); err != nil {
		zap.L().Fatal("database connection failed", zap.Error(err))
	}

	if err := db.MigrateDatabase(); err != nil {
		zap.L().Fatal("database migration failed", zap.Error(err))
	}

	if err := db.SeedDefaults(); err != nil {
		zap.L().Fatal("database seeding failed", zap.Error(err))
	}

	r := router.NewRouter()

	zap.L().Info("faultline listening", zap.String("port", config.C.Port))

	if err := r.Run(":" + config.C.Port); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
