// Package config loads runtime configuration from the environment. A .env
// file, when present, is loaded into the environment by main before Load
// runs.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	DatabaseDSN    string
	JWTSecret      string
	Environment    string
	NotifyWebhook  string
	AllowedOrigins []string
}

var C Config

func Load() error {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("ALLOWED_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:5173",
	})

	C = Config{
		Port:           v.GetString("PORT"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		Environment:    v.GetString("ENVIRONMENT"),
		NotifyWebhook:  v.GetString("NOTIFY_WEBHOOK_URL"),
		AllowedOrigins: v.GetStringSlice("ALLOWED_ORIGINS"),
	}

	if C.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN environment variable is not set")
	}

	if C.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	return nil
}
