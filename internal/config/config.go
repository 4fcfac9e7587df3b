package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config хранит всю конфигурацию сервиса, читаемую из окружения.
type Config struct {
	Port string

	DatabaseURL      string
	MongoURI         string
	MongoDatabase    string
	FirestoreProject string

	UploadDir        string
	GCSBucket        string
	GCSPrefix        string
	GCSPublicBaseURL string
	CredentialsFile  string

	RequireImage   bool
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Load читает .env (если он есть), затем переменные окружения.
// Значения из окружения процесса имеют приоритет над .env.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "err", err)
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDatabase:    getEnv("MONGO_DB", "posts"),
		FirestoreProject: getEnv("FIRESTORE_PROJECT", ""),

		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		GCSBucket:        getEnv("GCS_BUCKET", ""),
		GCSPrefix:        getEnv("GCS_PREFIX", "posts"),
		GCSPublicBaseURL: getEnv("GCS_PUBLIC_BASE_URL", ""),
		CredentialsFile:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		RequireImage:   getBool("REQUIRE_IMAGE", true),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 10<<20),
		CORSOrigins:    getList("CORS_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
