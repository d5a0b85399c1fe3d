// Package storage is the SQLite transaction store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
	"esuvi/internal/log"

	_ "modernc.org/sqlite"
)

var (
	_ ledger.Store  = (*SQLiteRepository)(nil)
	_ ledger.Purger = (*SQLiteRepository)(nil)
)

const (
	insertTransaction = `
INSERT INTO transactions (id, owner, type, amount_cents, description, category, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectByOwner = `
SELECT id, owner, type, amount_cents, description, category, occurred_at
FROM transactions
WHERE owner = ?
ORDER BY rowid`

	deleteByOwner = `DELETE FROM transactions WHERE owner = ?`
)

// SQLiteRepository stores transactions in a local SQLite file, one owner per
// identity.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentStorage).With(log.FieldBackend, "sqlite"),
	}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Put implements ledger.Store.
func (r *SQLiteRepository) Put(ctx context.Context, tx core.Transaction) error {
	owner := ownerOf(ctx, tx)
	_, err := r.db.ExecContext(ctx, insertTransaction,
		tx.ID, owner, string(tx.Type), tx.Amount.Cents,
		tx.Description, tx.Category, tx.Date.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}

	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldTxID, tx.ID,
		log.FieldUserID, owner,
		log.FieldAmountCents, tx.Amount.Cents)
	return nil
}

// ListAll implements ledger.Store. Only the current owner's rows are
// returned, in insertion order.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectByOwner, identity.Owner(ctx))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx       core.Transaction
			txType   string
			occurred int64
		)
		if err := rows.Scan(&tx.ID, &tx.Owner, &txType, &tx.Amount.Cents,
			&tx.Description, &tx.Category, &occurred); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(txType)
		tx.Date = time.Unix(0, occurred).UTC()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// DeleteAll implements ledger.Purger for the current owner.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	owner := identity.Owner(ctx)
	res, err := r.db.ExecContext(ctx, deleteByOwner, owner)
	if err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	r.logger.InfoContext(ctx, "Transactions deleted",
		log.FieldUserID, owner, log.FieldCount, n)
	return nil
}

func ownerOf(ctx context.Context, tx core.Transaction) string {
	if owner := identity.Owner(ctx); owner != "" {
		return owner
	}
	return tx.Owner
}
