package store

import (
	"context"
	"errors"

	"stocktake/internal/core"
)

// Columns is the canonical ledger column order. Every backend persists
// transactions in this shape and readers map columns by these names.
var Columns = []string{"Timestamp", "Action", "Model", "Location", "Quantity"}

// ErrEmptyLedger is returned by RemoveLast when there is nothing to remove.
var ErrEmptyLedger = errors.New("ledger is empty")

// Ports for ledger backends.
type (
	Reader interface {
		// ReadAll returns every ledger row in append order. Backends read
		// tolerantly: rows that cannot be interpreted are skipped, and a
		// missing ledger (or one without a Model column) is an empty ledger,
		// not an error.
		ReadAll(ctx context.Context) ([]core.Transaction, error)
	}

	Appender interface {
		// Append stores tx after the current last row and returns a backend
		// reference for the new row. Appends are native per backend, never
		// read-modify-write, so concurrent submitters cannot clobber each
		// other's rows.
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	Remover interface {
		// RemoveLast deletes the most recently appended row and returns it.
		// Returns ErrEmptyLedger when no data rows exist.
		RemoveLast(ctx context.Context) (core.Transaction, error)
	}

	Wiper interface {
		// Wipe deletes every data row. Wiping an already empty ledger is not
		// an error.
		Wipe(ctx context.Context) error
	}

	Store interface {
		Reader
		Appender
		Remover
		Wiper
	}

	// Invalidator is implemented by stores that keep read results cached.
	Invalidator interface {
		Invalidate()
	}
)
