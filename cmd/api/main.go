package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/config"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/db"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/handlers"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/realtime"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/session"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/storage"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		fatal(logger, "connect database", err)
	}
	if err := db.Migrate(gdb); err != nil {
		fatal(logger, "migrate database", err)
	}

	userStore := users.NewStore(gdb)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin, err := userStore.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
		if err != nil {
			fatal(logger, "seed admin", err)
		}
		logger.Info("admin account ready", slog.String("email", admin.Email))
	}

	var rdb *redis.Client
	var revoked session.RevocationSet = session.NewMemoryRevocationSet()
	if cfg.UseRedis() {
		rdb, err = realtime.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			fatal(logger, "connect redis", err)
		}
		defer rdb.Close()
		revoked = session.NewRedisRevocationSet(rdb)
		logger.Info("redis enabled", slog.String("addr", cfg.RedisAddr))
	}

	var photos storage.PhotoStorage = storage.NewLocal(cfg.UploadDir, cfg.AppBaseURL)
	uploadDir := cfg.UploadDir
	if cfg.UseS3() {
		s3Store, err := storage.NewS3(ctx, storage.S3Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.AWSS3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PublicURL:       cfg.AWSS3PublicURL,
		})
		if err != nil {
			fatal(logger, "init s3", err)
		}
		photos = s3Store
		uploadDir = ""
		logger.Info("photos stored in s3", slog.String("bucket", cfg.AWSS3Bucket))
	}

	hub := realtime.NewHub(rdb, logger)
	go hub.Run(ctx)

	issuer := session.NewIssuer(userStore, revoked, cfg.JWTSecret, time.Duration(cfg.JWTExpiresMin)*time.Minute, logger)
	jobManager := jobs.NewManager(gdb, hub, logger)

	var googleH *handlers.GoogleOAuthHandler
	if cfg.GoogleEnabled() {
		googleH = &handlers.GoogleOAuthHandler{
			Users:           userStore,
			Sessions:        issuer,
			Logger:          logger,
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
		}
	}

	app := handlers.NewApp(handlers.Deps{
		Logger:      logger,
		Users:       userStore,
		Sessions:    issuer,
		Jobs:        jobManager,
		Photos:      photos,
		Hub:         hub,
		Google:      googleH,
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   uploadDir,
		AccessLog:   true,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("listening", slog.String("port", cfg.AppPort))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		fatal(logger, "listen", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
