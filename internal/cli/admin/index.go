package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vita-labs/recallai/internal/repository"
)

func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the vector index",
		Long:  "Destructive maintenance operations on the stored chunk index",
	}

	cmd.AddCommand(IndexClearCmd())

	return cmd
}

func IndexClearCmd() *cobra.Command {
	var (
		yes        bool
		withLedger bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored chunk",
		Long:  "Delete all chunks from the vector index. Without --ledger the unit ledger is untouched, so cleared units will not be re-ingested; pass --ledger to forget them too and allow a full re-ingest.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexClear(yes, withLedger)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion without prompting")
	cmd.Flags().BoolVar(&withLedger, "ledger", false, "Also clear the unit ledger")

	return cmd
}

func runIndexClear(yes, withLedger bool) error {
	if !yes {
		return fmt.Errorf("refusing to clear the index without --yes")
	}

	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	chunkRepo := repository.NewChunkRepository(pool)
	if err := chunkRepo.TruncateAll(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	if withLedger {
		ledgerRepo := repository.NewLedgerRepository(pool, 0)
		if err := ledgerRepo.TruncateAll(ctx); err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
		fmt.Println("Index and ledger cleared")
		return nil
	}

	fmt.Println("Index cleared")
	return nil
}
