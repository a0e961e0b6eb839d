package config

import (
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Avatar storage backends
const (
	AvatarBackendFS    = "fs"    // Local pictures directory
	AvatarBackendMinio = "minio" // MinIO / S3 compatible bucket
)

var (
	ErrMissingSecretKey   = errors.New("SECRET_KEY is not set")
	ErrMissingDatabaseURI = errors.New("DATABASE_URI is not set")
)

// Config holds the application configuration
type Config struct {
	AppPort       string        // Application port
	SecretKey     string        // Session and token signing key
	DatabaseURI   string        // Database connection string
	RedisAddr     string        // Redis server address, empty disables caching
	RedisPass     string        // Redis password
	RedisDB       int           // Redis database number
	IsProd        bool          // Is production environment
	PicturesDir   string        // Directory holding avatar images
	AvatarBackend string        // fs or minio
	Minio         MinioConfig   // MinIO settings, used when AvatarBackend is minio
	LogLevel      string        // logrus level name
	LogFile       string        // Optional rotated log file
	CORSOrigins   []string      // Allowed origins for the JSON API
	TokenTTL      time.Duration // Lifetime of API bearer tokens
}

// MinioConfig holds the object storage settings for avatars
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from the environment (and a .env file if present).
// The secret key and the database URI are mandatory.
func Load() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present

	cfg := &Config{
		AppPort:       getenv("APP_PORT", "8080"),
		SecretKey:     os.Getenv("SECRET_KEY"),
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPass:     os.Getenv("REDIS_PASS"),
		IsProd:        os.Getenv("IS_PROD") == "true",
		PicturesDir:   getenv("PICTURES_DIR", "static/pictures/profile_pics"),
		AvatarBackend: getenv("AVATAR_BACKEND", AvatarBackendFS),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getenv("MINIO_BUCKET", "finder-avatars"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}

	if cfg.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if cfg.DatabaseURI == "" {
		return nil, ErrMissingDatabaseURI
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	ttl, err := time.ParseDuration(getenv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	switch cfg.AvatarBackend {
	case AvatarBackendFS:
	case AvatarBackendMinio:
		if cfg.Minio.Endpoint == "" {
			return nil, errors.New("MINIO_ENDPOINT is required when AVATAR_BACKEND=minio")
		}
	default:
		return nil, fmt.Errorf("unknown AVATAR_BACKEND %q", cfg.AvatarBackend)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
