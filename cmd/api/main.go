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

	"storecopy-api/internal/config"
	"storecopy-api/internal/handler"
	"storecopy-api/internal/middleware"
	"storecopy-api/internal/model"
	"storecopy-api/internal/openai"
	"storecopy-api/internal/repository"
	"storecopy-api/internal/router"
	"storecopy-api/internal/service"
	"storecopy-api/internal/session"
	"storecopy-api/internal/shopify"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting StoreCopy API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Open the job/account/purchase store
	var db *sql.DB
	var err error
	switch cfg.Store.Type {
	case "mysql":
		db, err = repository.OpenMySQL(cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		log.Println("MySQL store initialized")
	default: // sqlite
		db, err = repository.OpenSQLite(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		log.Println("SQLite store initialized")
	}
	defer db.Close()

	var accountRepo repository.AccountRepository
	var jobRepo repository.JobRepository
	var purchaseRepo repository.PurchaseRepository
	if cfg.Store.Type == "mysql" {
		accountRepo = repository.NewMySQLAccountRepository(db, cfg.Credits.InitialBalance)
		jobRepo = repository.NewMySQLJobRepository(db)
		purchaseRepo = repository.NewMySQLPurchaseRepository(db)
	} else {
		accountRepo = repository.NewSQLiteAccountRepository(db, cfg.Credits.InitialBalance)
		jobRepo = repository.NewSQLiteJobRepository(db)
		purchaseRepo = repository.NewSQLitePurchaseRepository(db)
	}

	// Session store: Redis when reachable, in-memory otherwise. The memory
	// fallback loses sessions on restart, so it is only for development.
	var sessionStore session.Store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed, using in-memory session store: %v", err)
		sessionStore = session.NewMemoryStore()
	} else {
		sessionStore = session.NewRedisStore(redisClient)
		log.Println("Redis session store initialized")
	}
	cancel()

	// External clients
	shopifyClient := shopify.New(cfg.Shopify.APIVersion)
	openaiClient := openai.New(cfg.OpenAI)
	if !openaiClient.Configured() {
		log.Println("Warning: OPENAI_API_KEY is not set, jobs will fail until it is configured")
	}

	// Services
	admissionService := service.NewAdmissionService(accountRepo, jobRepo, sessionStore)
	billingService := service.NewBillingService(accountRepo, purchaseRepo)

	processors := map[model.TaskMode]service.Processor{
		model.TaskProductCopy:    service.NewProductsProcessor(shopifyClient, openaiClient, jobRepo, sessionStore, cfg.Worker.CallTimeout),
		model.TaskCollectionCopy: service.NewCollectionsProcessor(shopifyClient, openaiClient, jobRepo, sessionStore, cfg.Worker.CallTimeout),
		model.TaskAltText:        service.NewAltTextProcessor(shopifyClient, openaiClient, jobRepo, sessionStore, cfg.Worker.CallTimeout),
	}
	worker := service.NewWorker(jobRepo, accountRepo, processors, cfg.Worker)
	worker.Start()

	// Handlers
	healthHandler := handler.NewHealthHandler(db, cfg.App.Version)
	jobsHandler := handler.NewJobsHandler(admissionService, billingService, jobRepo)
	billingHandler := handler.NewBillingHandler(billingService)
	sessionsHandler := handler.NewSessionsHandler(sessionStore)
	adminHandler := handler.NewAdminHandler(worker, billingService)

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKey: cfg.App.APIKey,
	})

	r := router.New(router.Config{
		HealthHandler:   healthHandler,
		JobsHandler:     jobsHandler,
		BillingHandler:  billingHandler,
		SessionsHandler: sessionsHandler,
		AdminHandler:    adminHandler,
		AuthMiddleware:  authMiddleware,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop claiming new jobs before the HTTP listener drains.
	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
