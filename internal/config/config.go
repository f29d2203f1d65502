package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is the development fallback for SESSION_SECRET.
const DefaultSessionSecret = "change-me-in-production"

// ErrDefaultSecret is returned by Validate when production runs with the
// development session secret.
var ErrDefaultSecret = errors.New("SESSION_SECRET must be set in production")

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Index     IndexConfig
	Keys      APIKeys
	Ai        AIConfig
	External  ExternalConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	EventLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type SessionConfig struct {
	Secret          string
	TTL             time.Duration
	CleanupInterval time.Duration
}

type IndexConfig struct {
	Source               string // "file" or "postgres"
	Dir                  string
	NarrativeTablePath   string
	ResponseTemplatePath string
}

type APIKeys struct {
	OpenAI            string
	ClovaClientID     string
	ClovaClientSecret string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "openai" or empty for templates only
	LLMModel          string
	FallbackSeed      int64
}

type ExternalConfig struct {
	Timeout     time.Duration
	MaxInFlight int64
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			EventLogFilePath:   getEnv("EVENT_LOG_FILE_PATH", "events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", DefaultSessionSecret),
			TTL:             getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Index: IndexConfig{
			Source:               strings.ToLower(getEnv("INDEX_SOURCE", "file")),
			Dir:                  getEnv("INDEX_DIR", "data/index"),
			NarrativeTablePath:   getEnv("NARRATIVE_TABLE_PATH", ""),
			ResponseTemplatePath: getEnv("RESPONSE_TEMPLATE_PATH", ""),
		},
		Keys: APIKeys{
			OpenAI:            getEnv("OPENAI_API_KEY", ""),
			ClovaClientID:     getEnv("CLOVA_CLIENT_ID", ""),
			ClovaClientSecret: getEnv("CLOVA_CLIENT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "bge-m3"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "gemma2"),
			FallbackSeed:      int64(getEnvAsInt("FALLBACK_SEED", int(time.Now().UnixNano()))),
		},
		External: ExternalConfig{
			Timeout:     getEnvAsDuration("EXTERNAL_CALL_TIMEOUT", 10*time.Second),
			MaxInFlight: int64(getEnvAsInt("EXTERNAL_MAX_INFLIGHT", 8)),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}
}

// IsProduction reports whether GO_ENV selects production logging.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate rejects settings that are unsafe to run with.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.Session.Secret == "" || c.Session.Secret == DefaultSessionSecret) {
		return ErrDefaultSecret
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "24h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
