// Package supabase stores transactions in a hosted Supabase (PostgREST) table.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
)

const defaultTable = "transactions"

var (
	_ ledger.Store  = (*Repository)(nil)
	_ ledger.Purger = (*Repository)(nil)
)

// row is the table layout. Amounts are stored in cents.
type row struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository struct {
	client *supabase.Client
	table  string
	logger *log.Logger
}

// New connects to the project at url with an API key.
func New(url, key, table string, logger *log.Logger) (*Repository, error) {
	if strings.TrimSpace(url) == "" || strings.TrimSpace(key) == "" {
		return nil, errors.New("supabase url and key are required")
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if table == "" {
		table = defaultTable
	}
	return &Repository{
		client: client,
		table:  table,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentStorage).With(log.FieldBackend, "supabase"),
	}, nil
}

// Put implements ledger.Store.
func (r *Repository) Put(ctx context.Context, tx core.Transaction) error {
	rec := toRow(tx, identity.Owner(ctx))
	rec.CreatedAt = time.Now().UTC()
	_, count, err := r.client.From(r.table).Insert(rec, false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	r.logger.DebugContext(ctx, "Transaction saved to Supabase",
		log.FieldTxID, tx.ID, log.FieldCount, count)
	return nil
}

// ListAll implements ledger.Store for the owner carried by ctx, oldest
// insert first.
func (r *Repository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	data, _, err := r.client.From(r.table).
		Select("*", "", false).
		Eq("owner", identity.Owner(ctx)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return decodeRows(data)
}

// DeleteAll implements ledger.Purger for the owner carried by ctx.
func (r *Repository) DeleteAll(ctx context.Context) error {
	_, _, err := r.client.From(r.table).
		Delete("minimal", "").
		Eq("owner", identity.Owner(ctx)).
		Execute()
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	return nil
}

func toRow(tx core.Transaction, owner string) row {
	if owner == "" {
		owner = tx.Owner
	}
	return row{
		ID:          tx.ID,
		Owner:       owner,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.UTC(),
	}
}

func decodeRows(data []byte) ([]core.Transaction, error) {
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Transaction{
			ID:          r.ID,
			Owner:       r.Owner,
			Type:        core.TransactionType(r.Type),
			Amount:      core.Money{Cents: r.AmountCents},
			Description: r.Description,
			Category:    r.Category,
			Date:        r.Date,
		})
	}
	return out, nil
}
