package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"book_market/internal/api"
	"book_market/internal/app/service"
	"book_market/internal/app/worker"
	"book_market/internal/common/security"
	"book_market/internal/domain/repository"
	"book_market/internal/platform/catalog"
	"book_market/internal/platform/config"
	"book_market/internal/platform/database"
	"book_market/internal/platform/logging"
	"book_market/internal/platform/queue"
	"book_market/internal/platform/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect(log)
	defer database.Close(log)
	if cfg.DBMigrateOnStart {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := database.Migrate(migrateCtx, database.DB); err != nil {
			cancel()
			log.Fatalf("Database migration failed: %v", err)
		}
		cancel()
		log.Info("Database migrations applied.")
	}

	// 4. Initialize Redis
	queue.ConnectRedis(log)
	defer queue.CloseRedis(log)

	// 5. Initialize cover storage
	blobs, uploadDir := newBlobStore(cfg, log)

	// 6. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	bookRepo := repository.NewPgBookRepository(database.DB)
	reviewRepo := repository.NewPgReviewRepository(database.DB)
	purchaseRepo := repository.NewPgPurchaseRepository(database.DB)
	txRunner := repository.NewTxRunner(database.DB)

	// 7. Initialize Services
	cleanupService := service.NewCoverCleanupService(queue.RDB, cfg.CoverCleanupQueue)
	authService := service.NewAuthService(userRepo)
	bookService := service.NewBookService(bookRepo, blobs, cleanupService)
	purchaseService := service.NewPurchaseService(
		userRepo, bookRepo, purchaseRepo, txRunner,
		service.NewRedisIntentStore(queue.RDB),
		cfg.PurchaseIntentTTL, cfg.PurchaseIntentRequired,
	)
	reviewService := service.NewReviewService(reviewRepo, userRepo)
	catalogClient := catalog.NewGoogleBooksClient(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.CatalogTimeout)
	catalogService := service.NewCatalogService(catalogClient, queue.RDB, cfg.CatalogCacheTTL, log)

	// 8. Initialize cover cleanup worker (as a goroutine)
	cleanupWorker := worker.NewCoverCleanupWorker(queue.RDB, cleanupService.Queue(), blobs, cleanupService, log)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		cleanupWorker.Start(workerCtx)
	}()
	log.Info("Cover cleanup worker started.")

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(log, queue.RDB, api.Services{
		Auth:      authService,
		Books:     bookService,
		Purchases: purchaseService,
		Reviews:   reviewService,
		Catalog:   catalogService,
	}, uploadDir)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Info("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("Cover cleanup worker did not stop in time")
	}

	log.Info("Server and worker stopped gracefully.")
}

// newBlobStore picks the cover store. The returned directory is non-empty
// only for the local store and is served under /uploads.
func newBlobStore(cfg *config.Config, log logrus.FieldLogger) (storage.BlobStore, string) {
	if cfg.StorageBackend == config.StorageS3 {
		s3Store, err := storage.NewS3Store(context.Background(), storage.S3Options{
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatalf("Could not initialize S3 cover store: %v", err)
		}
		log.Infof("Storing covers in S3 bucket %s", cfg.S3Bucket)
		return s3Store, ""
	}

	local, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Could not initialize local cover store: %v", err)
	}
	log.Infof("Storing covers under %s", cfg.UploadDir)
	return local, cfg.UploadDir
}
