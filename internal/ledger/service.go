package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stocktake/internal/core"
	"stocktake/internal/store"
)

// DefaultHistoryLimit is how many recent transactions the activity feed
// shows unless the caller asks for more.
const DefaultHistoryLimit = 10

// ErrNothingToUndo is returned by UndoLast when the ledger has no rows.
var ErrNothingToUndo = errors.New("nothing to undo")

// EventPublisher broadcasts ledger mutations so other processes can mirror
// them. Publishing is best effort; a nil publisher disables it.
type EventPublisher interface {
	PublishAppend(ctx context.Context, tx core.Transaction) error
	PublishUndo(ctx context.Context) error
	PublishWipe(ctx context.Context) error
}

// Service orchestrates ledger operations on top of a Store. Mutations go
// through the store's native primitives, so two operators appending at the
// same time both keep their rows.
type Service struct {
	store  store.Store
	events EventPublisher
	now    func() time.Time
}

func New(st store.Store, events EventPublisher) *Service {
	return &Service{
		store:  st,
		events: events,
		now:    time.Now,
	}
}

// Submit appends one transaction. A positive quantity with the Removed
// action is flipped negative; a signed quantity with no action keeps its
// sign and gets the matching action label. The stored row and the running
// count for the row's (model, location) pair are returned.
func (s *Service) Submit(ctx context.Context, model string, location core.Location, quantity int, action core.Action) (core.Transaction, int, error) {
	if action != "" {
		if err := action.Validate(); err != nil {
			return core.Transaction{}, 0, err
		}
		if quantity < 0 {
			quantity = -quantity
		}
		if action == core.Removed {
			quantity = -quantity
		}
	} else {
		action = core.ActionFor(quantity)
	}

	tx := core.Transaction{
		Timestamp: s.now(),
		Action:    action,
		Model:     model,
		Location:  location,
		Quantity:  quantity,
	}.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, 0, err
	}

	ref, err := s.store.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, 0, fmt.Errorf("append transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction appended",
		"ref", ref, "model", tx.Model, "location", tx.Location, "quantity", tx.Quantity)

	if s.events != nil {
		if err := s.events.PublishAppend(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to publish append event", "error", err)
			// Don't fail the request, the row is stored.
		}
	}

	total, err := s.pairTotal(ctx, tx.Model, tx.Location)
	if err != nil {
		slog.WarnContext(ctx, "Could not compute running total",
			"model", tx.Model, "location", tx.Location, "error", err)
		return tx, 0, nil
	}
	return tx, total, nil
}

// UndoLast removes the newest ledger row, whichever operator wrote it.
func (s *Service) UndoLast(ctx context.Context) (core.Transaction, error) {
	tx, err := s.store.RemoveLast(ctx)
	if errors.Is(err, store.ErrEmptyLedger) {
		return core.Transaction{}, ErrNothingToUndo
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("remove last transaction: %w", err)
	}
	slog.InfoContext(ctx, "Last transaction removed",
		"model", tx.Model, "location", tx.Location, "quantity", tx.Quantity)

	if s.events != nil {
		if err := s.events.PublishUndo(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to publish undo event", "error", err)
		}
	}
	return tx, nil
}

// Wipe clears the whole ledger. Wiping an empty ledger succeeds.
func (s *Service) Wipe(ctx context.Context) error {
	if err := s.store.Wipe(ctx); err != nil {
		return fmt.Errorf("wipe ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger wiped")

	if s.events != nil {
		if err := s.events.PublishWipe(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to publish wipe event", "error", err)
		}
	}
	return nil
}

// Summary aggregates the ledger per model and applies the search filter to
// the aggregated rows.
func (s *Service) Summary(ctx context.Context, filter string) ([]core.SummaryRow, error) {
	txs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return core.FilterRows(core.Summarize(txs), filter), nil
}

// History returns the most recent transactions, newest first. A limit of
// zero or less means DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	txs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(txs) < limit {
		limit = len(txs)
	}
	out := make([]core.Transaction, 0, limit)
	for i := len(txs) - 1; i >= len(txs)-limit; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

// Transactions returns the full ledger in append order.
func (s *Service) Transactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return txs, nil
}

// ModelOptions lists every model code the ledger has seen, for pickers.
func (s *Service) ModelOptions(ctx context.Context) ([]string, error) {
	txs, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return core.Models(txs), nil
}

// pairTotal sums the committed quantities for one (model, location) pair,
// the count the operator sees flashed after a submission: how many units of
// that model now sit in that bucket. A Suspect submission reports the
// Suspect count, even though Suspect never joins the summary total.
func (s *Service) pairTotal(ctx context.Context, model string, location core.Location) (int, error) {
	txs, err := s.store.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range txs {
		if t.Model == model && t.Location == location {
			total += t.Quantity
		}
	}
	return total, nil
}
