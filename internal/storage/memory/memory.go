// Package memory is an in-process transaction store, optionally backed by a
// JSON snapshot file so data survives restarts.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
)

var (
	_ ledger.Store  = (*Store)(nil)
	_ ledger.Purger = (*Store)(nil)
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	path  string
}

// New returns an empty store that lives as long as the process.
func New() *Store {
	return &Store{}
}

// NewFile returns a store persisted to path. An existing snapshot is loaded.
func NewFile(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return s, nil
}

// Put stores the transaction under the owner carried by ctx.
func (s *Store) Put(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if owner := identity.Owner(ctx); owner != "" {
		tx.Owner = owner
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.items, func(it core.Transaction) bool { return it.ID == tx.ID }) {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	next := append(slices.Clone(s.items), tx)
	if err := s.flush(next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// ListAll returns the current owner's transactions in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	owner := identity.Owner(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.Owner == owner {
			out = append(out, tx)
		}
	}
	return out, nil
}

// DeleteAll removes the current owner's transactions.
func (s *Store) DeleteAll(ctx context.Context) error {
	owner := identity.Owner(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(s.items), func(tx core.Transaction) bool {
		return tx.Owner == owner
	})
	if err := s.flush(next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// flush writes items to the snapshot file via a temp file and rename.
func (s *Store) flush(items []core.Transaction) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
