package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stocktake/internal/event"
	"stocktake/internal/store"
)

// MirrorWorker replays ledger events onto a secondary store so an
// off-sheet replica stays in step with the primary ledger.
type MirrorWorker struct {
	mirror store.Store
}

func NewMirrorWorker(mirror store.Store) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleEvent applies a single ledger event to the mirror store.
// Events the mirror cannot apply because of transient backend failures
// return an error so the broker redelivers them; malformed events are
// logged and dropped.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *event.LedgerEvent) error {
	switch ev.Kind {
	case event.KindAppend:
		tx, ok := ev.Transaction()
		if !ok {
			slog.WarnContext(ctx, "Skipping append event without a usable transaction",
				"model", ev.Model)
			return nil
		}
		ref, err := w.mirror.Append(ctx, tx)
		if err != nil {
			return fmt.Errorf("mirror append: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored ledger append",
			"model", tx.Model,
			"quantity", tx.Quantity,
			"ref", ref)
		return nil

	case event.KindUndo:
		removed, err := w.mirror.RemoveLast(ctx)
		if errors.Is(err, store.ErrEmptyLedger) {
			slog.WarnContext(ctx, "Undo event arrived for an empty mirror, nothing to remove")
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror undo: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored ledger undo",
			"model", removed.Model,
			"quantity", removed.Quantity)
		return nil

	case event.KindWipe:
		if err := w.mirror.Wipe(ctx); err != nil {
			return fmt.Errorf("mirror wipe: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored ledger wipe")
		return nil

	default:
		slog.WarnContext(ctx, "Skipping ledger event of unknown kind", "kind", ev.Kind)
		return nil
	}
}

// Reconcile rebuilds the mirror from the primary ledger. It is a backup
// mechanism for events missed while the worker was down: the mirror is
// wiped and every primary row replayed in order. Rows the mirror
// rejects are skipped so one bad row cannot block the rest.
func (w *MirrorWorker) Reconcile(ctx context.Context, primary store.Reader) error {
	txs, err := primary.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read primary ledger: %w", err)
	}

	if err := w.mirror.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe mirror: %w", err)
	}

	replayed := 0
	skipped := 0
	for _, tx := range txs {
		if _, err := w.mirror.Append(ctx, tx); err != nil {
			slog.WarnContext(ctx, "Skipping transaction the mirror rejected",
				"model", tx.Model, "error", err)
			skipped++
			continue
		}
		replayed++
	}

	slog.InfoContext(ctx, "Reconciled mirror from primary ledger",
		"replayed", replayed,
		"skipped", skipped)
	return nil
}
