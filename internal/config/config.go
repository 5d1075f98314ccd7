package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/internal/history"
)

// DefaultEndpoint is the hosted credibility scorer
const DefaultEndpoint = "https://credscore-355089345579.europe-west1.run.app"

// Config holds all environment configuration
type Config struct {
	// Server
	Port string

	// Scorer
	AnalyzeEndpoint string // scorer URL, or a relay path in front of it
	AnalyzeTimeout  time.Duration
	StatusPolicy    analysis.StatusPolicy

	// Relay
	RelayTarget  string
	RelayTimeout time.Duration

	// History
	HistoryBackend string
	HistoryPath    string // file or sqlite path
	DatabaseURL    string // postgres DSN

	// Image text extraction
	VisionAPIKey  string
	VisionBaseURL string
	VisionModel   string
	MaxImageBytes int64

	DefaultLanguage string
	LogLevel        string
}

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	analyzeTimeout, err := getDuration("ANALYZE_TIMEOUT", analysis.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	relayTimeout, err := getDuration("RELAY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	maxImageBytes, err := getInt("MAX_IMAGE_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		AnalyzeEndpoint: getEnv("ANALYZE_ENDPOINT", DefaultEndpoint),
		AnalyzeTimeout:  analyzeTimeout,
		StatusPolicy:    analysis.DefaultStatusPolicy(),
		RelayTarget:     getEnv("RELAY_TARGET", DefaultEndpoint),
		RelayTimeout:    relayTimeout,
		HistoryBackend:  getEnv("HISTORY_BACKEND", history.BackendFile),
		HistoryPath:     getEnv("HISTORY_PATH", defaultHistoryPath()),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		VisionAPIKey:    getEnv("VISION_API_KEY", ""),
		VisionBaseURL:   getEnv("VISION_BASE_URL", "https://api.openai.com/v1"),
		VisionModel:     getEnv("VISION_MODEL", "gpt-4o-mini"),
		MaxImageBytes:   maxImageBytes,
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if path := getEnv("STATUS_POLICY_FILE", ""); path != "" {
		policy, err := LoadStatusPolicy(path)
		if err != nil {
			return nil, err
		}
		config.StatusPolicy = policy
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field combinations Load cannot catch on its own
func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case history.BackendMemory:
	case history.BackendFile, history.BackendSQLite:
		if c.HistoryPath == "" {
			return fmt.Errorf("HISTORY_PATH is required for the %s history backend", c.HistoryBackend)
		}
	case history.BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q", c.HistoryBackend)
	}

	if c.AnalyzeEndpoint == "" {
		return fmt.Errorf("ANALYZE_ENDPOINT is required")
	}
	if c.AnalyzeTimeout <= 0 {
		return fmt.Errorf("ANALYZE_TIMEOUT must be positive")
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("RELAY_TIMEOUT must be positive")
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

// HistoryLocation is the path or DSN for the configured history backend
func (c *Config) HistoryLocation() string {
	if c.HistoryBackend == history.BackendPostgres {
		return c.DatabaseURL
	}
	return c.HistoryPath
}

// LoadStatusPolicy reads a YAML status policy:
//
//	rejected: [400, 401, 403]
//	rate_limited: [429]
func LoadStatusPolicy(path string) (analysis.StatusPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.StatusPolicy{}, fmt.Errorf("failed to read status policy: %w", err)
	}

	var policy analysis.StatusPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return analysis.StatusPolicy{}, fmt.Errorf("failed to parse status policy: %w", err)
	}
	for _, status := range append(policy.Rejected, policy.RateLimited...) {
		if status < 400 || status > 599 {
			return analysis.StatusPolicy{}, fmt.Errorf("status policy lists non-error status %d", status)
		}
	}
	return policy, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "credscore", "history.json")
}
