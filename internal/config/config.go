// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/Readiness/internal/utils"
)

type Config struct {
	Addr           string
	DBPath         string
	MigrationsDir  string
	CatalogPath    string
	JWTSecret      string
	StaticDir      string
	DevFrontendURL string
	CORSOrigins    []string
	Commit         string
	BuildTime      string
}

// Load reads envFiles (default ".env") when present, then the READINESS_* variables.
// Variables already set in the environment win over file values.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		log.Printf("config: no env file loaded (%v), using process environment", err)
	}
	return Config{
		Addr:           utils.SafeEnv("READINESS_ADDR", ":8080"),
		DBPath:         utils.SafeEnv("READINESS_DB_PATH", "./data/readiness.db"),
		MigrationsDir:  utils.SafeEnv("READINESS_MIGRATIONS_DIR", ""),
		CatalogPath:    utils.SafeEnv("READINESS_CATALOG_PATH", ""),
		JWTSecret:      utils.SafeEnv("READINESS_JWT_SECRET", ""),
		StaticDir:      utils.SafeEnv("READINESS_STATIC_DIR", ""),
		DevFrontendURL: utils.SafeEnv("READINESS_DEV_FRONTEND_URL", ""),
		CORSOrigins:    utils.EnvList("READINESS_CORS_ORIGINS"),
		Commit:         utils.SafeEnv("READINESS_COMMIT", "dev"),
		BuildTime:      utils.SafeEnv("READINESS_BUILD_TIME", ""),
	}
}

// Validate reports settings that make the server unusable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("READINESS_DB_PATH is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("READINESS_JWT_SECRET must be at least 16 characters")
	}
	return nil
}
