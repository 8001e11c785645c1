package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warble-app/warble/internal/app/migrate"
	"github.com/warble-app/warble/internal/events"
	httpx "github.com/warble-app/warble/internal/http"
	"github.com/warble-app/warble/internal/repository/postgres"
	"github.com/warble-app/warble/internal/service/auth"
	"github.com/warble-app/warble/internal/service/notification"
	"github.com/warble-app/warble/internal/service/post"
	"github.com/warble-app/warble/internal/service/user"
	"github.com/warble-app/warble/internal/storage"
	"github.com/warble-app/warble/internal/ws"
	"github.com/warble-app/warble/pkg/config"
	jwtpkg "github.com/warble-app/warble/pkg/jwt"
	"github.com/warble-app/warble/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	// Every session token depends on the signing secret; refusing to start
	// beats serving unverifiable tokens.
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	tokens := jwtpkg.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub()

	var blobs storage.BlobStore = storage.Disabled{}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Error("failed to configure object storage", "error", err)
			os.Exit(1)
		}
		blobs = store
	} else {
		log.Warn("object storage not configured, image uploads disabled")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if broker := strings.TrimSpace(cfg.KafkaBroker); broker != "" {
		kafkaPublisher := events.NewKafkaPublisher(broker, cfg.KafkaTopic, cfg.KafkaWriteTimeout)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Warn("kafka publisher close failed", "error", err)
			}
		}()
		publisher = kafkaPublisher
	}

	authSvc := auth.New(repo, tokens, log, cfg)
	notifSvc := notification.New(repo, hub, publisher, log)
	userSvc := user.New(repo, notifSvc, blobs, log, cfg)
	postSvc := post.New(repo, repo, notifSvc, blobs, log)

	var limiter httpx.RateLimiter
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable, falling back to in-memory", "error", err)
		} else {
			limiter = redisLimiter
		}
	}
	if limiter == nil {
		limiter = httpx.NewMemoryRateLimiter()
	}

	secureCookies := cfg.Environment != "development"
	router := httpx.NewRouter(log, authSvc, userSvc, postSvc, notifSvc, hub, limiter, cfg.TokenTTL, secureCookies, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
