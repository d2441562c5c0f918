package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"stocktake/internal/core"
	"stocktake/internal/store"

	_ "modernc.org/sqlite"
)

// Store keeps the ledger in a local SQLite file. Row order is the insert
// order, so undo can always find the newest row by id.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, action, model, location, quantity FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var ts, action, model, location string
		var qty int
		if err := rows.Scan(&ts, &action, &model, &location, &qty); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, rowToTx(ts, action, model, location, qty))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (ts, action, model, location, quantity) VALUES (?, ?, ?, ?, ?)`,
		tx.Timestamp.Format(core.TimestampLayout),
		string(tx.Action), tx.Model, string(tx.Location), tx.Quantity)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) RemoveLast(ctx context.Context) (core.Transaction, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	var id int64
	var ts, action, model, location string
	var qty int
	err = dbtx.QueryRowContext(ctx,
		`SELECT id, ts, action, model, location, quantity FROM transactions ORDER BY id DESC LIMIT 1`).
		Scan(&id, &ts, &action, &model, &location, &qty)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrEmptyLedger
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("select last transaction: %w", err)
	}
	if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit delete: %w", err)
	}
	return rowToTx(ts, action, model, location, qty), nil
}

func (s *Store) Wipe(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("wipe transactions: %w", err)
	}
	return nil
}

func rowToTx(ts, action, model, location string, qty int) core.Transaction {
	// Bad timestamp text keeps the row with a zero time rather than losing it.
	parsed, _ := time.ParseInLocation(core.TimestampLayout, ts, time.Local)
	return core.Transaction{
		Timestamp: parsed,
		Action:    core.Action(action),
		Model:     model,
		Location:  core.Location(location),
		Quantity:  qty,
	}
}
