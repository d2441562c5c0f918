package memory

import (
	"context"
	"fmt"
	"sync"

	"stocktake/internal/core"
	"stocktake/internal/store"
)

// Store keeps the ledger in process memory. It backs tests and local
// development where no spreadsheet or database is wanted.
type Store struct {
	mu  sync.Mutex
	txs []core.Transaction
}

var _ store.Store = (*Store)(nil)

func New(seed ...core.Transaction) *Store {
	s := &Store{}
	s.txs = append(s.txs, seed...)
	return s
}

func (s *Store) ReadAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return fmt.Sprintf("mem:%d", len(s.txs)), nil
}

func (s *Store) RemoveLast(_ context.Context) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.txs) == 0 {
		return core.Transaction{}, store.ErrEmptyLedger
	}
	last := s.txs[len(s.txs)-1]
	s.txs = s.txs[:len(s.txs)-1]
	return last, nil
}

func (s *Store) Wipe(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = nil
	return nil
}

// Len reports the current row count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}
