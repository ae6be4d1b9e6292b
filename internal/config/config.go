package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"docchat/internal/apperr"
)

// Provider describes one LLM provider entry: where to reach it and which
// API key it requires. The chat and embedding endpoints are assumed to be
// OpenAI-compatible, which holds for every provider registered here.
type Provider struct {
	Name    string
	BaseURL string
	KeyName string
}

// providers is the registry keyed by the LLM_PROVIDER selector.
var providers = map[string]Provider{
	"mistral": {Name: "mistral", BaseURL: "https://api.mistral.ai/v1", KeyName: "MISTRAL_API_KEY"},
	"openai":  {Name: "openai", BaseURL: "https://api.openai.com/v1", KeyName: "OPENAI_API_KEY"},
}

// Config holds all configuration for the application. It is constructed once
// at startup and passed by reference into the ingestor, index manager, and
// conversational chain constructors.
type Config struct {
	// Model configuration, resolved from the selected provider block.
	Provider        string
	LLMBaseURL      string
	LLMModel        string
	Temperature     float32
	MaxOutputTokens int
	EmbeddingModel  string
	APIKey          string

	// Storage layout.
	DataDir        string // base directory for per-session uploaded files
	IndexDir       string // base directory for per-session vector indexes
	DBPath         string // sqlite session registry
	UseSessionDirs bool

	// Chunking and retrieval.
	ChunkSize      int
	ChunkOverlap   int
	RetrievalK     int
	SearchType     string // similarity | similarity_score_threshold | mmr
	FetchK         int
	LambdaMult     float64
	ScoreThreshold float64

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config.
// If a .env file exists in the current directory it is loaded first;
// environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	providerKey := getEnv("LLM_PROVIDER", "mistral")
	provider, ok := providers[providerKey]
	if !ok {
		return nil, apperr.Msg("config.load", apperr.ErrConfiguration, "unknown LLM provider %q", providerKey)
	}

	apiKey, err := loadAPIKey(provider.KeyName)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Provider:       provider.Name,
		LLMBaseURL:     getEnv("LLM_BASE_URL", provider.BaseURL),
		LLMModel:       getEnv("LLM_MODEL", "mistral-small-latest"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "mistral-embed"),
		APIKey:         apiKey,
		DataDir:        getEnv("DATA_DIR", "./data"),
		IndexDir:       getEnv("INDEX_DIR", "./index"),
		DBPath:         getEnv("DB_PATH", "./data/docchat.db"),
		UseSessionDirs: getEnvBool("USE_SESSION_DIRS", true),
		SearchType:     getEnv("SEARCH_TYPE", "mmr"),
		APIPort:        getEnv("API_PORT", "9000"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}

	cfg.Temperature = float32(getEnvFloat("LLM_TEMPERATURE", 0.2))
	cfg.MaxOutputTokens = getEnvInt("LLM_MAX_OUTPUT_TOKENS", 2048)
	cfg.ChunkSize = getEnvInt("CHUNK_SIZE", 1000)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", 200)
	cfg.RetrievalK = getEnvInt("RETRIEVAL_K", 5)
	cfg.FetchK = getEnvInt("FETCH_K", 20)
	cfg.LambdaMult = getEnvFloat("LAMBDA_MULT", 0.5)
	cfg.ScoreThreshold = getEnvFloat("SCORE_THRESHOLD", 0.0)

	if cfg.ChunkSize <= 0 {
		return nil, apperr.Msg("config.load", apperr.ErrConfiguration, "CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, apperr.Msg("config.load", apperr.ErrConfiguration, "CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	switch cfg.SearchType {
	case "similarity", "similarity_score_threshold", "mmr":
	default:
		return nil, apperr.Msg("config.load", apperr.ErrConfiguration, "unknown SEARCH_TYPE %q", cfg.SearchType)
	}
	if cfg.LambdaMult < 0 || cfg.LambdaMult > 1 {
		return nil, apperr.Msg("config.load", apperr.ErrConfiguration, "LAMBDA_MULT must be in [0,1]")
	}

	// Create the data directory up front (for the sqlite file).
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, apperr.E("config.load", apperr.ErrIO, err)
	}

	return cfg, nil
}

// loadAPIKey resolves the named API key. API_KEYS may hold a JSON object of
// multiple keys (the deployed-secret form); the individual env var wins when
// both are present.
func loadAPIKey(keyName string) (string, error) {
	if val := os.Getenv(keyName); val != "" {
		return val, nil
	}

	if raw := os.Getenv("API_KEYS"); raw != "" {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			slog.Warn("failed to parse API_KEYS as JSON object", "error", err)
		} else if val := parsed[keyName]; val != "" {
			return val, nil
		}
	}

	return "", apperr.Msg("config.load", apperr.ErrConfiguration, "missing required API key %s", keyName)
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
