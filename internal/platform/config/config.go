package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSslMode        string
	DBConnStr        string
	DBMigrateOnStart bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageBackend string
	UploadDir      string
	MaxCoverBytes  int64
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PublicURL    string

	CatalogBaseURL  string
	CatalogAPIKey   string
	CatalogTimeout  time.Duration
	CatalogCacheTTL time.Duration

	CORSAllowedOrigins []string
	RateLimitAuthRPS   float64
	RateLimitAuthBurst int

	PurchaseIntentRequired bool
	PurchaseIntentTTL      time.Duration
	CoverCleanupQueue      string

	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:          getEnv("API_PORT", "3001"),
		JWTKey:           []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:           time.Duration(getEnvAsInt("JWT_EXPIRATION_MINUTES", 60)) * time.Minute,
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "user"),
		DBPassword:       getEnv("DB_PASSWORD", "password"),
		DBName:           getEnv("DB_NAME", "book_market"),
		DBSslMode:        getEnv("DB_SSLMODE", "disable"),
		DBMigrateOnStart: getEnvAsBool("DB_MIGRATE_ON_START", true),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxCoverBytes:  int64(getEnvAsInt("MAX_COVER_BYTES", 5*1024*1024)),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Bucket:       getEnv("S3_BUCKET", "covers"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", "http://127.0.0.1:9000"),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", "http://127.0.0.1:9000/covers"),

		CatalogBaseURL:  getEnv("CATALOG_BASE_URL", "https://www.googleapis.com/books/v1"),
		CatalogAPIKey:   getEnv("GOOGLE_BOOKS_API_KEY", ""),
		CatalogTimeout:  time.Duration(getEnvAsInt("CATALOG_TIMEOUT_SECONDS", 5)) * time.Second,
		CatalogCacheTTL: time.Duration(getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 600)) * time.Second,

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitAuthRPS:   getEnvAsFloat("RATE_LIMIT_AUTH_RPS", 1),
		RateLimitAuthBurst: getEnvAsInt("RATE_LIMIT_AUTH_BURST", 10),

		PurchaseIntentRequired: getEnvAsBool("PURCHASE_INTENT_REQUIRED", true),
		PurchaseIntentTTL:      time.Duration(getEnvAsInt("PURCHASE_INTENT_TTL_SECONDS", 300)) * time.Second,
		CoverCleanupQueue:      getEnv("COVER_CLEANUP_QUEUE", "cover_cleanup_queue"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
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

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
