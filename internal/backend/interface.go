// Package backend builds the transaction store selected by configuration.
package backend

import (
	"context"

	"esuvi/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is the wired store plus optional event publisher.
type Result struct {
	Store ledger.Store
	// Notifier is nil when transaction events are disabled.
	Notifier ledger.Notifier
	Cleanup  CleanupFunc
}

// Close runs Cleanup when set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory
	DataFile string

	// SQLite
	SQLiteDBPath string

	// Supabase
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// AMQP; empty URL disables events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	SupabaseBackend BackendType = "supabase"
	SheetsBackend   BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SupabaseBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// IsLocal reports whether data stays on this machine, as opposed to a hosted
// service.
func (bt BackendType) IsLocal() bool {
	return bt == MemoryBackend || bt == SQLiteBackend
}
