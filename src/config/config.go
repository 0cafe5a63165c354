// backend/src/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port     string
	LogLevel string

	// Data layout
	DataDir            string // persisted CSV tables
	RawFilesDir        string // uploaded bank exports
	FileSignaturesPath string // per-(bank,account) schema definitions

	// Upload limits
	MaxUploadSizeBytes int64

	// Exchange rate lookup
	ExchangeRateBaseURL string
	ExchangeRateTimeout time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}
	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	}

	dataDir := getEnv("DATA_DIR", "data")

	Cfg = &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataDir:            dataDir,
		RawFilesDir:        getEnv("RAW_FILES_DIR", dataDir+"/raw_files"),
		FileSignaturesPath: getEnv("FILE_SIGNATURES_PATH", "config/file_signatures.yaml"),

		MaxUploadSizeBytes: getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", 10*1024*1024),

		ExchangeRateBaseURL: getEnv("EXCHANGE_RATE_BASE_URL", "https://api.frankfurter.dev/v1"),
		ExchangeRateTimeout: getEnvAsDuration("EXCHANGE_RATE_TIMEOUT", 5*time.Second),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DataDir=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DataDir)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a fallback.
func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
