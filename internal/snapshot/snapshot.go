package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"stocktake/internal/export"
	"stocktake/internal/ledger"
)

// DefaultSpec runs a snapshot just before the end of each day.
const DefaultSpec = "55 23 * * *"

// Scheduler periodically writes the aggregated inventory to a CSV file
// so there is an on-disk record even if the ledger backend is wiped.
type Scheduler struct {
	cron   *cron.Cron
	ledger *ledger.Service
	dir    string
	spec   string
}

func NewScheduler(svc *ledger.Service, dir, spec string) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		cron:   cron.New(),
		ledger: svc,
		dir:    dir,
		spec:   spec,
	}
}

// Start registers the snapshot job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("schedule snapshot %q: %w", s.spec, err)
	}
	s.cron.Start()
	slog.Info("Snapshot scheduler started", "spec", s.spec, "dir", s.dir)
	return nil
}

// Stop stops the cron loop. Jobs already running are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("Snapshot scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	path, err := Write(ctx, s.ledger, s.dir, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to write inventory snapshot", "error", err)
		return
	}
	slog.InfoContext(ctx, "Wrote inventory snapshot", "path", path)
}

// Write dumps the current summary to a timestamped CSV file under dir
// and returns the file path. The directory is created if needed.
func Write(ctx context.Context, svc *ledger.Service, dir string, at time.Time) (string, error) {
	rows, err := svc.Summary(ctx, "")
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, export.Filename("Inventory", at, "csv"))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()

	if err := export.WriteSummaryCSV(f, rows); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	return path, nil
}
