// Package worker replicates projected transactions to the external mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/amqp"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/mirror"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

// SyncWorker copies ledger entries from the store to the mirror.
type SyncWorker struct {
	store     storage.TransactionStore
	mirror    mirror.Writer
	batchSize int
}

func NewSyncWorker(store storage.TransactionStore, writer mirror.Writer, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		mirror:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single mirror-sync message from AMQP.
// The message carries only the transaction ID; the authoritative record
// always comes from the store.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"owner_id", msg.OwnerID)

	tx, err := w.store.LoadTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	return w.mirrorTransaction(ctx, tx)
}

// ProcessPendingMirror replicates any transactions still flagged pending.
// This is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingMirror(ctx context.Context) error {
	pending, err := w.store.ListPendingMirror(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending mirror transactions", "count", len(pending))

	for _, tx := range pending {
		if err := w.mirrorTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction", "id", tx.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains a larger pending backlog at worker startup to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingMirror(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, tx := range pending {
		if err := w.mirrorTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"id", tx.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"mirrored", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, tx core.Transaction) error {
	ref, err := w.mirror.Append(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkMirrorError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.store.MarkMirrored(ctx, tx.ID); err != nil {
		// The append succeeded; the flag will be retried by the backup path.
		slog.ErrorContext(ctx, "Failed to mark as mirrored", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction",
		"id", tx.ID,
		"mirror_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}
