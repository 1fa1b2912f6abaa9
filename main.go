package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevinaaaquil/bookclub/config"
	"github.com/kevinaaaquil/bookclub/handlers"
	"github.com/kevinaaaquil/bookclub/logger"
	"github.com/kevinaaaquil/bookclub/service"
	"github.com/kevinaaaquil/bookclub/session"
	"github.com/kevinaaaquil/bookclub/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{
		Format:      cfg.LogFormat,
		Environment: cfg.Env,
		Level:       logger.ParseLevel(cfg.LogLevel),
		AddSource:   !cfg.IsProduction(),
	})
	slog.SetDefault(log)

	if err := config.ValidateEnv(); err != nil {
		log.Error("env", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Error("mongodb", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Warn("mongodb disconnect", "error", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Error("mongodb indexes", "error", err)
		os.Exit(1)
	}
	health := []handlers.Pinger{db}

	catalogOpts := service.CatalogOptions{
		APIKey:   cfg.GoogleBooksAPIKey,
		RPS:      cfg.CatalogRPS,
		RetryMax: 2,
		Logger:   log,
	}
	routerCfg := handlers.RouterConfig{
		Store:       db,
		Sessions:    session.NewManager(session.NewCodec(cfg.SessionSecret), cfg.SessionTTL, cfg.CookieSecure),
		LoginPerMin: cfg.LoginRatePerMin,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		Logger:      log,
	}

	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Error("redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		catalogOpts.Cache = rdb
		routerCfg.RateCounter = rdb
		health = append(health, rdb)
	} else {
		log.Warn("REDIS_ADDR not set; catalog cache and login rate limiting disabled")
	}

	catalog := service.NewCatalog(catalogOpts)
	routerCfg.Catalog = catalog

	if cfg.S3Bucket != "" {
		s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Error("s3", "error", err)
			os.Exit(1)
		}
		routerCfg.Covers = service.NewCoverMirror(s3Service, catalog, log)
	} else {
		log.Warn("AWS_S3_BUCKET not set; cover mirror disabled")
	}

	if cfg.SMTPHost != "" {
		mailer, err := service.NewMailer(service.MailerConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			BaseURL:  cfg.BaseURL,
		})
		if err != nil {
			log.Error("mailer", "error", err)
			os.Exit(1)
		}
		routerCfg.Mailer = mailer
	} else {
		log.Warn("SMTP_HOST not set; verification emails disabled")
	}
	routerCfg.Health = health

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", "error", err)
	}
}
