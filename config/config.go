package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort        string
	AppMode        string
	UploadDir      string
	AppPassword    string
	SessionTTL     int // hours
	MaxUploadBytes int64
	ChunkTTL       int // hours, 0 disables the expiry sweep

	CloudProvider string // "", "s3" or "drive"
	CloudPrefix   string

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	DriveClientID     string
	DriveClientSecret string
	DriveRefreshToken string
	DriveFolderID     string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppMode:        getEnv("APP_MODE", "debug"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		AppPassword:    getEnv("APP_PASSWORD", ""),
		SessionTTL:     getEnvAsInt("SESSION_TTL_HOURS", 24*7),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 1<<30),
		ChunkTTL:       getEnvAsInt("CHUNK_SESSION_TTL_HOURS", 24),

		CloudProvider: getEnv("CLOUD_PROVIDER", ""),
		CloudPrefix:   getEnv("CLOUD_PREFIX", "pats-cloud"),

		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),

		DriveClientID:     getEnv("DRIVE_CLIENT_ID", ""),
		DriveClientSecret: getEnv("DRIVE_CLIENT_SECRET", ""),
		DriveRefreshToken: getEnv("DRIVE_REFRESH_TOKEN", ""),
		DriveFolderID:     getEnv("DRIVE_FOLDER_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}
