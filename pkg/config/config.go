package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	FirebaseApiKey  string
	Environment     string

	// StoreBackend selects "firestore" or "memory".
	StoreBackend string

	// ImageHost selects "imgbb", "gcs" or "minio".
	ImageHost      string
	ImgbbAPIKey    string
	ImgbbEndpoint  string
	StorageBucket  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	RedisURL string

	RetryAttempts         int
	RetryInitialBackoffMs int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseApiKey:  getEnv("FIREBASE_API_KEY", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", "firestore")),

		ImageHost:      strings.ToLower(getEnv("IMAGE_HOST", "imgbb")),
		ImgbbAPIKey:    getEnv("IMGBB_API_KEY", ""),
		ImgbbEndpoint:  getEnv("IMGBB_ENDPOINT", "https://api.imgbb.com/1/upload"),
		StorageBucket:  getEnv("STORAGE_BUCKET", ""),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "chat-images"),
		MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", true),

		RedisURL: getEnv("REDIS_URL", ""),

		RetryAttempts:         int(getEnvAsInt64("RETRY_ATTEMPTS", 3)),
		RetryInitialBackoffMs: getEnvAsInt64("RETRY_INITIAL_BACKOFF_MS", 2000),
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}
