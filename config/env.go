// Package config loads the bot's configuration from the environment,
// with optional .env files for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the bot needs to run.
type Config struct {
	TwitterUsername string
	TwitterPassword string
	TwitterEmail    string
	TOTPSecret      string
	Proxy           string

	OpenAIKey   string
	OpenAIModel string

	PersonalityPath string
	TweetInterval   time.Duration
	DBPath          string
}

// LoadEnv loads local .env files into the process environment. Missing
// files are not an error; the process environment always wins for
// deployed installs that set variables directly.
func LoadEnv(log *slog.Logger) {
	files := []string{".env", ".env.dev"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if log != nil {
				log.Warn("failed to load env file", slog.String("file", file), slog.Any("error", err))
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if log != nil && len(loaded) > 0 {
		log.Debug("loaded env files", slog.String("files", strings.Join(loaded, ", ")))
	}
}

// Load reads the bot configuration from the environment. Call LoadEnv
// first if .env files should participate.
func Load() (*Config, error) {
	cfg := &Config{
		TwitterEmail:    os.Getenv("TWITTER_EMAIL"),
		TOTPSecret:      os.Getenv("TWITTER_TOTP_SECRET"),
		Proxy:           os.Getenv("FINCH_PROXY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		PersonalityPath: GetEnv("FINCH_PERSONALITY", "finch.json"),
		TweetInterval:   GetEnvDuration("FINCH_TWEET_INTERVAL", 60*time.Second),
		DBPath:          GetEnv("FINCH_DB_PATH", "finch.db"),
	}

	var err error
	if cfg.TwitterUsername, err = RequireEnv("TWITTER_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.TwitterPassword, err = RequireEnv("TWITTER_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.OpenAIKey, err = RequireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetEnv gets an environment variable with a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvDuration gets a duration environment variable with a default
// value. Accepts Go duration syntax ("90s", "2m") or a bare number of
// seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// GetLogLevel gets the log level from the environment.
func GetLogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
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

// RequireEnv fetches a variable and errors if it is empty.
func RequireEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("environment variable %s is required but not set", key)
	}
	return value, nil
}
