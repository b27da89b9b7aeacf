package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Completion provider
	LLMProvider string

	// Groq (OpenAI-compatible)
	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	// Gemini AI
	GeminiAPIKey string
	GeminiModel  string

	// Optional access guard for /api routes
	AccessTokenSecret string

	// Code highlighting for /api/render
	HighlightStyle string

	// 0 leaves streamed responses unbounded
	WriteTimeoutSeconds int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		Env:                 getEnvOrDefault("ENV", "development"),
		LLMProvider:         getEnvOrDefault("LLM_PROVIDER", ProviderGroq),
		GroqBaseURL:         getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:           getEnvOrDefault("GROQ_MODEL", "llama-3.2-90b-vision-preview"),
		GeminiModel:         getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		AccessTokenSecret:   getEnvOrDefault("ACCESS_TOKEN_SECRET", ""),
		HighlightStyle:      getEnvOrDefault("HIGHLIGHT_STYLE", "github"),
		WriteTimeoutSeconds: getEnvAsIntOrDefault("WRITE_TIMEOUT_SECONDS", 0),
		FrontendURL:         getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	// Only the selected provider's credential is required.
	switch cfg.LLMProvider {
	case ProviderGemini:
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	case ProviderGroq:
		cfg.GroqAPIKey = mustGetEnv("GROQ_API_KEY")
	default:
		panic(fmt.Sprintf("unsupported LLM_PROVIDER %q", cfg.LLMProvider))
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
