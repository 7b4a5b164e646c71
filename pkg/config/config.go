package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject        string
	ServiceAccountJSON     string
	ServiceAccountPath     string
	StorageBucket          string
	StoreBackend           string
	PresenceBackend        string
	SeedDefaultCircles     bool
	AllowedOrigins         string
	RequestsPerSecondPerIP float64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TypingTTL     time.Duration
	MessageWindow int

	LogLevel  string
	LogPretty bool
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		FirebaseProject:        getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON:     getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath:     getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:          getEnv("STORAGE_BUCKET", ""),
		StoreBackend:           getEnv("STORE_BACKEND", BackendFirestore),
		PresenceBackend:        getEnv("PRESENCE_BACKEND", BackendRedis),
		SeedDefaultCircles:     getEnvAsBool("SEED_DEFAULT_CIRCLES", true),
		AllowedOrigins:         getEnv("ALLOWED_ORIGINS", "*"),
		RequestsPerSecondPerIP: getEnvAsFloat("RATE_LIMIT_RPS", 20),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       int(getEnvAsInt64("REDIS_DB", 0)),

		TypingTTL:     getEnvAsDuration("TYPING_TTL", 3*time.Second),
		MessageWindow: int(getEnvAsInt64("MESSAGE_WINDOW", 50)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
