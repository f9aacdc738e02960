package admin

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

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sourcebook-ai/sourcebook/internal/acquire"
	"github.com/sourcebook-ai/sourcebook/internal/api/handlers"
	"github.com/sourcebook-ai/sourcebook/internal/config"
	"github.com/sourcebook-ai/sourcebook/internal/database"
	"github.com/sourcebook-ai/sourcebook/internal/openai"
	"github.com/sourcebook-ai/sourcebook/internal/repository"
	"github.com/sourcebook-ai/sourcebook/internal/server"
	"github.com/sourcebook-ai/sourcebook/internal/service"
	"github.com/sourcebook-ai/sourcebook/internal/storage"
	"github.com/sourcebook-ai/sourcebook/internal/telemetry"
	"github.com/sourcebook-ai/sourcebook/internal/vectorstore"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the sourcebook API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	sourceRepo := repository.NewSourceRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	var index *vectorstore.Store
	if cfg.VectorDataDir != "" {
		index, err = vectorstore.NewPersistent(cfg.VectorDataDir, cfg.VectorCollection)
		if err != nil {
			return fmt.Errorf("failed to open vector store: %w", err)
		}
		log.Printf("vector store persisted at %s", cfg.VectorDataDir)
	} else {
		index = vectorstore.NewInMemory(cfg.VectorCollection)
		log.Println("vector store running in memory")
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("SOURCEBOOK_OPENAI_API_KEY is required")
	}
	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		EmbeddingModel:  cfg.EmbeddingModel,
		CompletionModel: cfg.CompletionModel,
	})

	var archiver service.ArchiverInterface
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archiver = s3Client
	}

	chain := buildAcquisitionChain(cfg)

	tokenizer, err := service.NewTiktokenTokenizer(service.DefaultTokenEncoding)
	if err != nil {
		return fmt.Errorf("failed to load tokenizer: %w", err)
	}

	ingestSvc := service.NewIngestService(
		sourceRepo,
		chain,
		tokenizer,
		aiClient,
		index,
		archiver,
		service.IngestConfig{
			Chunk:             service.ChunkConfig{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
			StrictAcquisition: cfg.StrictAcquisition,
		},
	)
	querySvc := service.NewQueryService(messageRepo, sourceRepo, aiClient, aiClient, index)

	router := server.NewRouter(server.RouterConfig{
		IngestHandler:   handlers.NewIngestHandler(ingestSvc),
		QueryHandler:    handlers.NewQueryHandler(querySvc),
		SourcesHandler:  handlers.NewSourcesHandler(sourceRepo),
		MessagesHandler: handlers.NewMessagesHandler(messageRepo),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildAcquisitionChain assembles the fetch fallback order: direct
// fetch, then browser render, then the reader proxy.
func buildAcquisitionChain(cfg *config.Config) *acquire.Chain {
	strategies := []acquire.Strategy{
		acquire.NewDirectStrategy(nil, cfg.FetchTimeout),
	}
	if cfg.BrowserEnabled {
		strategies = append(strategies, acquire.NewBrowserStrategy(cfg.RenderTimeout))
	}
	if cfg.HasReaderProxy() {
		strategies = append(strategies, acquire.NewReaderProxyStrategy(cfg.ReaderProxyURL, nil, cfg.FetchTimeout))
	}
	return acquire.NewChain(strategies...)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && verr != migrate.ErrNilVersion {
		return fmt.Errorf("failed to read migration version: %w", verr)
	}
	log.Printf("migrations applied (version: %d, dirty: %v)", version, dirty)

	return nil
}
