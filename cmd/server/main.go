package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/cache"
	"github.com/rpattn/orgstage/internal/config"
	"github.com/rpattn/orgstage/internal/db"
	"github.com/rpattn/orgstage/internal/directory"
	"github.com/rpattn/orgstage/internal/directorysync"
	"github.com/rpattn/orgstage/internal/export"
	"github.com/rpattn/orgstage/internal/middleware"
	"github.com/rpattn/orgstage/internal/orgchart"
	"github.com/rpattn/orgstage/internal/repository"
	"github.com/rpattn/orgstage/internal/staging"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load("./")
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database, "./migrations"); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	// Setup redis-backed cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	store := cache.NewRedisStore(redisClient, log)

	// Create repositories
	memberRepo := repository.NewMemberRepository(conn.Pool)
	fieldRepo := repository.NewProfileFieldRepository(conn.Pool)
	changeRepo := repository.NewDraftChangeRepository(conn.Pool)
	auditRepo := repository.NewAuditLogRepository(conn.Pool)
	lockRepo := repository.NewLockRepository(conn.Pool)

	// Outbound directory client
	directoryClient, err := directory.NewHTTPClient(directory.Config{
		BaseURL: cfg.Directory.BaseURL,
		Token:   cfg.Directory.Token,
		Timeout: cfg.Directory.Timeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create directory client")
	}

	// Services
	stagingService := staging.NewService(memberRepo, fieldRepo, changeRepo, auditRepo, lockRepo, directoryClient, store, log)
	orgchartService := orgchart.NewService(memberRepo, fieldRepo, store, log, cfg.Cache.OrgChartTTL, cfg.Cache.ProfileFieldsTTL)
	syncService := directorysync.NewService(memberRepo, fieldRepo, directoryClient, store, log)
	exportService := export.NewService(memberRepo, fieldRepo, auditRepo)

	// Routes
	mux := http.NewServeMux()
	staging.NewHTTPHandler(stagingService, log).Register(mux)
	orgchart.NewHandler(orgchartService, log).Register(mux)
	directorysync.NewHandler(syncService, log).Register(mux)
	export.NewHandler(exportService, log).Register(mux)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(
		middleware.ActorMiddleware(
			middleware.LoggingMiddleware(log)(
				middleware.DataLoaderMiddleware(memberRepo)(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}
