package config

import (
	"os"
	"strconv"
)

type Config struct {
	PORT string

	// Daytona provisioning API
	DAYTONA_API_KEY string
	DAYTONA_API_URL string

	// Sandbox backend selection: "daytona" (managed) or "kube" (self-hosted)
	SANDBOX_BACKEND   string
	SANDBOX_NAMESPACE string
	SANDBOX_IMAGE     string
	SANDBOX_PORT      int

	// Tunnel settle behaviour
	SETTLE_SECONDS int
	READINESS_POLL bool

	// Orphan sandbox reaping
	SANDBOX_TTL_MINUTES     int
	REAPER_INTERVAL_MINUTES int

	// Redis sandbox registry
	REDIS_ADDR     string
	REDIS_PASSWORD string
	REDIS_DB       int

	// Postgres build audit store
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	// Optional OIDC auth
	AUTH0_DOMAIN        string
	AUTH0_CLIENT_ID     string
	AUTH0_CLIENT_SECRET string
	AUTH0_CALLBACK_URL  string
	STATE_SECRET        string

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	return &Config{
		PORT: GetEnvOrDefault("PORT", "6060"),

		DAYTONA_API_KEY: os.Getenv("DAYTONA_API_KEY"),
		DAYTONA_API_URL: os.Getenv("DAYTONA_API_URL"),

		SANDBOX_BACKEND:   GetEnvOrDefault("SANDBOX_BACKEND", "daytona"),
		SANDBOX_NAMESPACE: GetEnvOrDefault("SANDBOX_NAMESPACE", "appdock-sandbox"),
		SANDBOX_IMAGE:     os.Getenv("SANDBOX_IMAGE"),
		SANDBOX_PORT:      getEnvInt("SANDBOX_PORT", 8080),

		SETTLE_SECONDS: getEnvInt("SETTLE_SECONDS", 15),
		READINESS_POLL: os.Getenv("READINESS_POLL") == "true",

		SANDBOX_TTL_MINUTES:     getEnvInt("SANDBOX_TTL_MINUTES", 60),
		REAPER_INTERVAL_MINUTES: getEnvInt("REAPER_INTERVAL_MINUTES", 5),

		REDIS_ADDR:     os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       getEnvInt("REDIS_DB", 0),

		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		AUTH0_DOMAIN:        os.Getenv("AUTH0_DOMAIN"),
		AUTH0_CLIENT_ID:     os.Getenv("AUTH0_CLIENT_ID"),
		AUTH0_CLIENT_SECRET: os.Getenv("AUTH0_CLIENT_SECRET"),
		AUTH0_CALLBACK_URL:  os.Getenv("AUTH0_CALLBACK_URL"),
		STATE_SECRET:        os.Getenv("STATE_SECRET"),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
