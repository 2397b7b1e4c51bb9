// Package config provides environment configuration for the dialogue engine.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Classification policy
	RelevanceThreshold     float64
	IntentThreshold        float64
	ClassifierTimeout      time.Duration
	ClassifierRetryTimeout time.Duration

	// Generation
	GenerationTimeout time.Duration
	DefaultLLM        string
	AnthropicAPIKey   string
	OpenAIAPIKey      string

	// Conversation
	MaxHistoryPairs       int
	PreservedPrefixTurns  int
	ShortMessageWords     int
	CollectionThreshold   float64
	OnboardingMaxAttempts int

	// Profile storage
	ProfileBackend string // "sqlite", "nats" or "memory"
	SQLitePath     string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	EventsOn     bool

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Classification
		RelevanceThreshold:     getFloatEnv("RELEVANCE_THRESHOLD", 0.6),
		IntentThreshold:        getFloatEnv("INTENT_THRESHOLD", 0.6),
		ClassifierTimeout:      getDurationEnv("CLASSIFIER_TIMEOUT", 15*time.Second),
		ClassifierRetryTimeout: getDurationEnv("CLASSIFIER_RETRY_TIMEOUT", 7*time.Second),

		// Generation
		GenerationTimeout: getDurationEnv("GENERATION_TIMEOUT", 30*time.Second),
		DefaultLLM:        getEnv("DEFAULT_LLM", "openai"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),

		// Conversation
		MaxHistoryPairs:       getIntEnv("MAX_HISTORY_PAIRS", 10),
		PreservedPrefixTurns:  getIntEnv("PRESERVED_PREFIX_TURNS", 2),
		ShortMessageWords:     getIntEnv("SHORT_MESSAGE_WORDS", 5),
		CollectionThreshold:   getFloatEnv("COLLECTION_THRESHOLD", 0.6),
		OnboardingMaxAttempts: getIntEnv("ONBOARDING_MAX_ATTEMPTS", 2),

		// Profile storage
		ProfileBackend: getEnv("PROFILE_BACKEND", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "profiles.db"),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		EventsOn:     getBoolEnv("TURN_EVENTS_ENABLED", false),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
