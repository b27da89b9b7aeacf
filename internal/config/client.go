package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	Endpoint          string `toml:"endpoint"`
	Storage           string `toml:"storage"`
	HistoryFile       string `toml:"history_file"`
	RedisURL          string `toml:"redis_url"`
	DatabaseURL       string `toml:"database_url"`
	AccessTokenSecret string `toml:"access_token_secret"`
	Theme             string `toml:"theme"`
}

// LoadClient reads the environment, then overlays the TOML file named by
// CHAT_CONFIG_FILE when it is set.
func LoadClient() (*ClientConfig, error) {
	godotenv.Load()

	cfg := &ClientConfig{
		Endpoint:          getEnvOrDefault("CHAT_ENDPOINT", "http://localhost:8080"),
		Storage:           getEnvOrDefault("CHAT_STORAGE", StorageFile),
		HistoryFile:       getEnvOrDefault("CHAT_HISTORY_FILE", defaultHistoryFile()),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		AccessTokenSecret: getEnvOrDefault("ACCESS_TOKEN_SECRET", ""),
		Theme:             getEnvOrDefault("CHAT_THEME", "dark"),
	}

	if path := os.Getenv("CHAT_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) validate() error {
	switch c.Storage {
	case StorageFile:
		if c.HistoryFile == "" {
			return fmt.Errorf("history_file is required for file storage")
		}
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for redis storage")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("unsupported storage %q", c.Storage)
	}
	return nil
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "chat_histories.json")
	}
	return filepath.Join(dir, "chatbot-kit", "chat_histories.json")
}
