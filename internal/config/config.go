package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// WhatsApp Cloud API
	WhatsAppVerifyToken string
	WhatsAppAPIBaseURL  string
	SendMaxAttempts     int
	SendBaseDelay       time.Duration
	SendTimeout         time.Duration

	// Intent extraction
	GeminiAPIKey     string
	GeminiModelID    string
	ExtractorTimeout time.Duration

	// Google Calendar sync
	CalendarSyncEnabled   bool
	CalendarTimeout       time.Duration
	GoogleCredentialsFile string
	GoogleCalendarID      string

	// Conversation pipeline
	UseMemoryQueue       bool
	ConversationQueueURL string
	WorkerCount          int
	SessionTurnWindow    int
	SessionTTL           time.Duration

	// Availability search
	AlternativeSearchDays int
	SlotStepMinutes       int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WhatsAppVerifyToken: getEnv("WHATSAPP_WEBHOOK_VERIFY_TOKEN", ""),
		WhatsAppAPIBaseURL:  getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		SendMaxAttempts:     getEnvAsInt("SEND_MAX_ATTEMPTS", 3),
		SendBaseDelay:       getEnvAsDuration("SEND_BASE_DELAY", 2*time.Second),
		SendTimeout:         getEnvAsDuration("SEND_TIMEOUT", 10*time.Second),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		ExtractorTimeout: getEnvAsDuration("EXTRACTOR_TIMEOUT", 12*time.Second),

		CalendarSyncEnabled:   getEnvAsBool("CALENDAR_SYNC_ENABLED", false),
		CalendarTimeout:       getEnvAsDuration("CALENDAR_TIMEOUT", 8*time.Second),
		GoogleCredentialsFile: getEnv("GOOGLE_CALENDAR_CREDENTIALS_FILE", ""),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),

		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", false),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),
		SessionTurnWindow:    getEnvAsInt("SESSION_TURN_WINDOW", 10),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		AlternativeSearchDays: getEnvAsInt("ALTERNATIVE_SEARCH_DAYS", 3),
		SlotStepMinutes:       getEnvAsInt("SLOT_STEP_MINUTES", 30),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
