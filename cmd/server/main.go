package main

import (
	"context"   // Startup and shutdown deadlines
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Process signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"finder/internal/api"     // Route table and handlers
	"finder/internal/auth"    // Authentication services
	"finder/internal/cache"   // Directory cache
	"finder/internal/config"  // Configuration
	"finder/internal/db"      // Database connection
	"finder/internal/logging" // Logger setup
	"finder/internal/metrics" // Prometheus collectors
	"finder/internal/profile" // Profile editor and avatar storage
	"finder/internal/store"   // Persistence

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"golang.org/x/crypto/bcrypt"   // Password hashing cost
	"golang.org/x/sync/errgroup"   // Server and shutdown goroutines
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/logger"          // GORM log level
)

const shutdownTimeout = 10 * time.Second

// Main function to set up and run the server
func main() {
	cfg, err := config.Load() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	closer, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, JSON: cfg.IsProd})
	if err != nil {
		logrus.Fatalf("failed to set up logging: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	gormLog := logger.Default.LogMode(logger.Warn)
	if !cfg.IsProd {
		gormLog = logger.Default.LogMode(logger.Info)
	}
	conn, err := db.Open(cfg.DatabaseURI, &gorm.Config{Logger: gormLog})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Redis is optional, the directory is served uncached without it
	var dir cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		defer redisClient.Close()
		// Test Redis connection
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		dir = cache.NewRedis(redisClient)
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to set up avatar storage: %v", err)
	}
	if err := profile.EnsureDefaultAvatar(ctx, images); err != nil {
		logrus.Fatalf("failed to provision default avatar: %v", err)
	}

	s := store.NewGormStore(conn)
	deps := api.Deps{
		Auth:        auth.NewAuthenticator(s, auth.BcryptHasher{Cost: bcrypt.DefaultCost}),
		Sessions:    auth.NewCookieSessions(cfg.SecretKey, cfg.IsProd),
		Tokens:      auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL),
		Store:       s,
		Editor:      profile.NewEditor(s, images),
		Cache:       dir,
		Metrics:     metrics.New(),
		CORSOrigins: cfg.CORSOrigins,
	}
	if cfg.AvatarBackend == config.AvatarBackendFS {
		deps.PicturesDir = cfg.PicturesDir
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(deps)

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("port", cfg.AppPort).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logrus.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logrus.Errorf("server stopped: %v", err)
	}
}

func newImageStore(ctx context.Context, cfg *config.Config) (profile.ImageStore, error) {
	if cfg.AvatarBackend == config.AvatarBackendMinio {
		return profile.NewMinioStore(ctx, profile.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
	}
	return profile.NewFileStore(cfg.PicturesDir, "/pictures")
}
