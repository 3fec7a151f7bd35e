package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/planscanhq/planscan/internal/application"
	appanalyses "github.com/planscanhq/planscan/internal/application/analyses"
	appdocuments "github.com/planscanhq/planscan/internal/application/documents"
	apppractices "github.com/planscanhq/planscan/internal/application/practices"
	"github.com/planscanhq/planscan/internal/config"
	domanalyses "github.com/planscanhq/planscan/internal/domain/analyses"
	domdocuments "github.com/planscanhq/planscan/internal/domain/documents"
	dompractices "github.com/planscanhq/planscan/internal/domain/practices"
	openaiClient "github.com/planscanhq/planscan/internal/infra/ai/openai"
	"github.com/planscanhq/planscan/internal/infra/cache"
	mysqldb "github.com/planscanhq/planscan/internal/infra/db/mysql"
	postgresdb "github.com/planscanhq/planscan/internal/infra/db/postgres"
	"github.com/planscanhq/planscan/internal/infra/httpserver"
	minioStore "github.com/planscanhq/planscan/internal/infra/storage"
	"github.com/planscanhq/planscan/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database and apply schema
	var db *sql.DB
	var practiceRepo dompractices.Repository
	var documentRepo domdocuments.Repository
	var analysisRepo domanalyses.Repository
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		if err := postgresdb.Migrate(ctx, db); err != nil {
			log.Fatalf("postgres migrate error: %v", err)
		}
		practiceRepo = postgresdb.NewPracticeRepository(db)
		documentRepo = postgresdb.NewDocumentRepository(db)
		analysisRepo = postgresdb.NewAnalysisRepository(db)
	default:
		db, err = mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		if err := mysqldb.Migrate(ctx, db); err != nil {
			log.Fatalf("mysql migrate error: %v", err)
		}
		practiceRepo = mysqldb.NewPracticeRepository(db)
		documentRepo = mysqldb.NewDocumentRepository(db)
		analysisRepo = mysqldb.NewAnalysisRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init redis url cache (optional)
	var urlCache appdocuments.URLCache
	var redisChecker middleware.HealthChecker
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewURLCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.DownloadTTL()/2)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		defer rc.Close()
		urlCache = rc
		redisChecker = middleware.CheckFunc(rc.Ping)
	}

	// init services
	clock := application.SystemClock{}
	practiceSvc := &apppractices.Service{Repo: practiceRepo, Clock: clock}
	documentSvc := &appdocuments.Service{
		Repo:      documentRepo,
		Analyses:  analysisRepo,
		Blobs:     store,
		Access:    practiceSvc,
		URLs:      urlCache,
		Clock:     clock,
		UploadTTL: cfg.UploadTTL(),
		URLTTL:    cfg.DownloadTTL(),
	}
	analysisSvc := &appanalyses.Service{
		Repo:      analysisRepo,
		Documents: documentRepo,
		Blobs:     store,
		Access:    practiceSvc,
		Extractor: openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		Scheduler: application.GoScheduler{},
		Clock:     clock,
		URLTTL:    cfg.DownloadTTL(),
		OnFinished: func(status domanalyses.Status, elapsed time.Duration) {
			middleware.AnalysesFinished.WithLabelValues(string(status)).Inc()
			middleware.ExtractionDuration.Observe(elapsed.Seconds())
		},
	}

	// init router
	tokens := middleware.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"storage":  middleware.CheckFunc(store.Healthy),
	}
	if redisChecker != nil {
		checkers["redis"] = redisChecker
	}

	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Options{
		Practices: practiceSvc,
		Documents: documentSvc,
		Analyses:  analysisSvc,
		Tokens:    tokens,
		TokenTTL:  cfg.TokenTTL(),
		MaxUpload: cfg.Uploads.MaxSizeBytes,
		Health:    checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
