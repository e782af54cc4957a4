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
	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/vita-labs/recallai/internal/api/handlers"
	"github.com/vita-labs/recallai/internal/chunk"
	"github.com/vita-labs/recallai/internal/config"
	"github.com/vita-labs/recallai/internal/database"
	"github.com/vita-labs/recallai/internal/extract"
	"github.com/vita-labs/recallai/internal/jobs"
	"github.com/vita-labs/recallai/internal/openai"
	"github.com/vita-labs/recallai/internal/repository"
	"github.com/vita-labs/recallai/internal/server"
	"github.com/vita-labs/recallai/internal/service"
	"github.com/vita-labs/recallai/internal/storage"
	"github.com/vita-labs/recallai/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the recall API server on the specified port",
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
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
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

	ledgerRepo := repository.NewLedgerRepository(pool, cfg.LeaseTTL)
	chunkRepo := repository.NewChunkRepository(pool)
	dlqRepo := repository.NewDeadLetterRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)

	var archiver extract.Archiver
	var attachmentDeleter service.AttachmentDeleter
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
		log.Printf("S3 bucket '%s' ready for attachment archival", cfg.S3Bucket)
		archiver = s3Client
		attachmentDeleter = s3Client
	}

	var embedder service.Embedder
	var queryEmbedder service.QueryEmbedder
	var generator service.Generator
	if cfg.HasOpenAI() {
		aiClient := openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      openaiapi.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			CompletionModel:     cfg.CompletionModel,
			Timeout:             cfg.ExternalCallTimeout,
		})
		embedder = aiClient
		queryEmbedder = aiClient
		generator = aiClient
	} else {
		noop := &NoOpAIClient{}
		embedder = noop
		queryEmbedder = noop
		generator = noop
		log.Println("RECALL_OPENAI_API_KEY not set: ingest and query will reject requests")
	}

	splitter, err := chunk.NewSplitter(cfg.ChunkMaxLength, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("failed to create splitter: %w", err)
	}
	grouper, err := chunk.NewGrouper(cfg.GroupWindow, cfg.GroupMaxSize)
	if err != nil {
		return fmt.Errorf("failed to create grouper: %w", err)
	}

	extractSvc := extract.NewService(extract.NewDownloader(cfg.ExternalCallTimeout), extract.NewRegistry(), archiver)

	ingestSvc, err := service.NewIngestService(ledgerRepo, chunkRepo, dlqRepo, embedder, extractSvc, service.IngestConfig{
		Splitter: splitter,
		Grouper:  grouper,
		PoolSize: cfg.IngestPoolSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create ingest service: %w", err)
	}
	defer ingestSvc.Close()

	querySvc := service.NewQueryService(queryEmbedder, chunkRepo, generator, service.QueryConfig{
		CandidateMultiplier: cfg.CandidateMultiplier,
		GuildID:             cfg.GuildID,
		CallTimeout:         cfg.ExternalCallTimeout,
	})
	adminSvc := service.NewAdminService(chunkRepo, ledgerRepo, attachmentDeleter, feedbackRepo)

	replayWorker := jobs.NewWorker(jobs.NewReprocessor(dlqRepo, ingestSvc, 0), cfg.DLQPollInterval)
	go replayWorker.Start(ctx)
	log.Println("dead letter replay worker started")

	routerCfg := server.RouterConfig{
		APIToken:      cfg.APIToken,
		IngestHandler: handlers.NewIngestHandler(ingestSvc),
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		AdminHandler:  handlers.NewAdminHandler(adminSvc),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
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

	replayWorker.Stop()
	ingestSvc.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpAIClient stands in when no OpenAI key is configured. Every call
// fails, which surfaces as 502 on query and as DLQ entries on ingest.
type NoOpAIClient struct{}

func (c *NoOpAIClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: RECALL_OPENAI_API_KEY required")
}

func (c *NoOpAIClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: RECALL_OPENAI_API_KEY required")
}

func (c *NoOpAIClient) GenerateAnswer(ctx context.Context, contextText, question string) (string, error) {
	return "", fmt.Errorf("completion provider not configured: RECALL_OPENAI_API_KEY required")
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

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
