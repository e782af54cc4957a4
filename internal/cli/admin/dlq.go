package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/vita-labs/recallai/internal/chunk"
	"github.com/vita-labs/recallai/internal/config"
	"github.com/vita-labs/recallai/internal/database"
	"github.com/vita-labs/recallai/internal/extract"
	"github.com/vita-labs/recallai/internal/jobs"
	"github.com/vita-labs/recallai/internal/openai"
	"github.com/vita-labs/recallai/internal/repository"
	"github.com/vita-labs/recallai/internal/service"
)

func DLQCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay dead letter entries",
		Long:  "List pending dead letter entries and resubmit them through the ingestion pipeline",
	}

	cmd.AddCommand(DLQListCmd())
	cmd.AddCommand(DLQReprocessCmd())

	return cmd
}

func DLQListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending dead letter entries",
		Long:  "List dead letter entries that have not been successfully replayed",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDLQList(outputFormat, limit)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries")

	return cmd
}

func runDLQList(outputFormat string, limit int) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	dlqRepo := repository.NewDeadLetterRepository(pool)
	entries, err := dlqRepo.Pending(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list dead letter entries: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(entries))
		for i, entry := range entries {
			data[i] = map[string]interface{}{
				"id":               entry.ID,
				"unit_id":          entry.UnitID,
				"failed_at_step":   entry.FailedAtStep,
				"error_message":    entry.ErrorMessage,
				"created_at":       entry.CreatedAt,
				"original_request": json.RawMessage(entry.OriginalRequest),
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(entries) == 0 {
			fmt.Println("No pending dead letter entries")
			return nil
		}
		fmt.Printf("Pending dead letter entries (%d):\n", len(entries))
		for _, entry := range entries {
			fmt.Printf("  %d: unit %s failed at %s (%s): %s\n",
				entry.ID, entry.UnitID, entry.FailedAtStep,
				entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.ErrorMessage)
		}
	}

	return nil
}

func DLQReprocessCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Replay pending dead letter entries",
		Long:  "Run one replay pass: resubmit pending entries through the ingestion pipeline and mark the successful ones replayed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDLQReprocess(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", jobs.DefaultReplayBatch, "Maximum number of entries to replay")

	return cmd
}

func runDLQReprocess(limit int) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("replay requires an embedding provider: RECALL_OPENAI_API_KEY not set")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	ingestSvc, dlqRepo, err := buildIngestPipeline(cfg, pool)
	if err != nil {
		return err
	}
	defer ingestSvc.Close()

	reprocessor := jobs.NewReprocessor(dlqRepo, ingestSvc, limit)
	if err := reprocessor.ProcessPending(ctx); err != nil {
		return fmt.Errorf("replay pass failed: %w", err)
	}

	fmt.Println("Replay pass complete")
	return nil
}

// buildIngestPipeline wires the same ingestion stack serve uses, minus
// the HTTP layer. Attachment archival is skipped when S3 is unset.
func buildIngestPipeline(cfg *config.Config, pool *pgxpool.Pool) (*service.IngestService, *repository.DeadLetterRepository, error) {
	ledgerRepo := repository.NewLedgerRepository(pool, cfg.LeaseTTL)
	chunkRepo := repository.NewChunkRepository(pool)
	dlqRepo := repository.NewDeadLetterRepository(pool)

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openaiapi.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		CompletionModel:     cfg.CompletionModel,
		Timeout:             cfg.ExternalCallTimeout,
	})

	splitter, err := chunk.NewSplitter(cfg.ChunkMaxLength, cfg.ChunkOverlap)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create splitter: %w", err)
	}
	grouper, err := chunk.NewGrouper(cfg.GroupWindow, cfg.GroupMaxSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create grouper: %w", err)
	}

	extractSvc := extract.NewService(extract.NewDownloader(cfg.ExternalCallTimeout), extract.NewRegistry(), nil)

	ingestSvc, err := service.NewIngestService(ledgerRepo, chunkRepo, dlqRepo, aiClient, extractSvc, service.IngestConfig{
		Splitter: splitter,
		Grouper:  grouper,
		PoolSize: cfg.IngestPoolSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ingest service: %w", err)
	}

	return ingestSvc, dlqRepo, nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
}
