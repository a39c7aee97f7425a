package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv        string
	Port           string
	JWTSecret      string
	InstanceSuffix string
	Database       DatabaseConfig
	AI             AIConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Quiet    bool
}

// AIConfig holds the bin-size recommendation settings
type AIConfig struct {
	GeminiAPIKey     string
	GeminiModel      string
	RecommendTimeout time.Duration
}

// Enabled reports whether an AI recommender can be built
func (c AIConfig) Enabled() bool {
	return c.GeminiAPIKey != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	timeout, err := strconv.Atoi(getEnv("RECOMMEND_TIMEOUT", "30"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("RECOMMEND_TIMEOUT must be a positive number of seconds")
	}

	return &Config{
		NodeEnv:        getEnv("NODE_ENV", "development"),
		Port:           getEnv("PORT", "3210"),
		JWTSecret:      jwtSecret,
		InstanceSuffix: getEnv("INSTANCE_SUFFIX", "GF"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "eckgrid"),
			Quiet:    getEnv("DB_QUIET", "false") == "true",
		},
		AI: AIConfig{
			GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
			GeminiModel:      os.Getenv("GEMINI_MODEL"),
			RecommendTimeout: time.Duration(timeout) * time.Second,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
