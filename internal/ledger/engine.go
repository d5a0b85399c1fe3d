// Package ledger owns the in-memory transaction sequence and its summaries.
//
// Every mutation runs gate, validate, persist and commit under one mutex, so
// memory only ever holds records the store has accepted.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

const defaultMaxTransactions = 100

var errNoDeletion = errors.New("store does not support deletion")

// Entry is the caller's input for a new transaction. Amount is the decimal
// text as typed by the user. A zero Date means now.
type Entry struct {
	Type        string
	Amount      string
	Description string
	Category    string
	Date        time.Time
}

// Engine is the ledger. Safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	txs []core.Transaction

	settings *settings.Settings
	store    Store
	identity identity.Provider
	notifier Notifier
	now      func() time.Time
	newID    func() string
	logger   *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier publishes committed transactions.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides time.Now for timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an empty ledger. A nil provider means nobody is signed in.
func New(cfg *settings.Settings, store Store, ids identity.Provider, opts ...Option) *Engine {
	if ids == nil {
		ids = identity.Anonymous{}
	}
	e := &Engine{
		settings: cfg,
		store:    store,
		identity: ids,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = log.OrDiscard(e.logger).WithComponent(log.ComponentLedger)
	return e
}

// AddTransaction records a transaction dated now.
func (e *Engine) AddTransaction(ctx context.Context, txType, amount, description, category string) (core.Transaction, error) {
	return e.Add(ctx, Entry{Type: txType, Amount: amount, Description: description, Category: category})
}

// Add records a transaction. On error the in-memory ledger is unchanged.
func (e *Engine) Add(ctx context.Context, in Entry) (core.Transaction, error) {
	e.mu.Lock()
	tx, err := e.add(ctx, in)
	e.mu.Unlock()
	if err != nil {
		e.logger.Fields(ctx, slog.LevelWarn, "Transaction rejected",
			log.NewFields().WithOperation(log.OpCreate).WithError(err))
		return core.Transaction{}, err
	}

	e.logger.Fields(ctx, slog.LevelInfo, "Transaction recorded",
		log.NewFields().WithOperation(log.OpCreate).
			WithTransaction(tx.ID, tx.Type.String(), tx.Amount.Cents, tx.Category))

	if e.notifier != nil {
		if err := e.notifier.TransactionRecorded(ctx, tx); err != nil {
			e.logger.ErrorContext(ctx, "Failed to publish transaction",
				log.FieldTxID, tx.ID, log.FieldError, err)
		}
	}
	return tx, nil
}

func (e *Engine) add(ctx context.Context, in Entry) (core.Transaction, error) {
	id, signedIn := e.identity.CurrentIdentity()
	if !signedIn && e.settings.RequiresIdentity(settings.FeatureFinance) {
		return core.Transaction{}, core.ErrUnauthorized
	}

	tx, err := e.build(in)
	if err != nil {
		return core.Transaction{}, err
	}
	if signedIn {
		tx.Owner = id.UserID
		ctx = identity.NewContext(ctx, id)
	}

	if e.settings.BoolOr(settings.CategoryFinance, settings.KeySaveTransactions, true) {
		if err := e.store.Put(ctx, tx); err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrPersistenceFailed, err)
		}
	}

	e.txs = slices.Insert(e.txs, 0, tx)
	e.txs = e.capped(e.txs)
	return tx, nil
}

func (e *Engine) build(in Entry) (core.Transaction, error) {
	txType, err := core.ParseTransactionType(in.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
	}
	amount, err := core.ParseMoney(in.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount must be a positive number", core.ErrInvalidRecord)
	}
	category := strings.TrimSpace(in.Category)
	if !e.settings.AllowsCategory(txType, category) {
		return core.Transaction{}, fmt.Errorf("%w: category %q is not allowed for %s", core.ErrInvalidRecord, category, txType)
	}

	date := in.Date
	if date.IsZero() {
		date = e.now()
	}
	tx := core.Transaction{
		ID:          e.newID(),
		Type:        txType,
		Amount:      amount,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
	}
	return tx, nil
}

// LoadAll replaces memory with the store's records for the current identity,
// newest first. Records past data.retentionPeriod are skipped. On error
// memory is unchanged.
func (e *Engine) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, err := e.scope(ctx)
	if err != nil {
		return nil, err
	}

	records, err := e.store.ListAll(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load transactions", log.FieldError, err)
		return nil, fmt.Errorf("%w: %w", core.ErrPersistenceFailed, err)
	}

	var cutoff time.Time
	if days := e.settings.IntOr(settings.CategoryData, settings.KeyRetentionPeriod, 0); days > 0 {
		cutoff = e.now().AddDate(0, 0, -days)
	}

	kept := make([]core.Transaction, 0, len(records))
	for _, tx := range records {
		if err := tx.Validate(); err != nil {
			e.logger.WarnContext(ctx, "Skipping invalid stored transaction",
				log.FieldTxID, tx.ID, log.FieldError, err)
			continue
		}
		if !cutoff.IsZero() && tx.Date.Before(cutoff) {
			continue
		}
		kept = append(kept, tx)
	}
	// insertion order reversed, so same-date records stay newest first
	slices.Reverse(kept)
	slices.SortStableFunc(kept, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date)
	})

	e.txs = e.capped(kept)
	e.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad, log.FieldCount, len(e.txs))
	return slices.Clone(e.txs), nil
}

// Clear empties memory. Durable storage is untouched.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.txs = nil
	e.logger.Debug("Ledger cleared", log.FieldOperation, log.OpClear)
}

// Purge deletes the current identity's durable records, then clears memory.
func (e *Engine) Purge(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, err := e.scope(ctx)
	if err != nil {
		return err
	}
	purger, ok := e.store.(Purger)
	if !ok {
		return fmt.Errorf("%w: %w", core.ErrPersistenceFailed, errNoDeletion)
	}
	if err := purger.DeleteAll(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistenceFailed, err)
	}
	e.txs = nil
	e.logger.InfoContext(ctx, "Ledger purged", log.FieldOperation, log.OpDelete)
	return nil
}

// Summarize computes the summary over the whole in-memory ledger.
func (e *Engine) Summarize(asOf time.Time) core.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.Summarize(e.txs, asOf)
}

// Snapshot returns a copy of the ledger, newest first.
func (e *Engine) Snapshot() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.txs)
}

// Len returns the number of transactions in memory.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.txs)
}

// scope applies the identity gate and attaches the identity to ctx.
func (e *Engine) scope(ctx context.Context) (context.Context, error) {
	id, signedIn := e.identity.CurrentIdentity()
	if signedIn {
		return identity.NewContext(ctx, id), nil
	}
	if e.settings.RequiresIdentity(settings.FeatureFinance) {
		return ctx, core.ErrUnauthorized
	}
	return ctx, nil
}

func (e *Engine) capped(txs []core.Transaction) []core.Transaction {
	limit := e.settings.IntOr(settings.CategoryFinance, settings.KeyMaxTransactions, defaultMaxTransactions)
	if limit < 0 {
		limit = 0
	}
	if len(txs) > limit {
		clear(txs[limit:])
		txs = txs[:limit]
	}
	return txs
}
