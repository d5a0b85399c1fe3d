package ledger

import (
	"context"

	"esuvi/internal/core"
)

// Ports for outbound adapters.
type (
	// Store durably records transactions. Adapters scope reads and writes to
	// the identity carried by ctx when they support more than one user.
	// ListAll returns records in insertion order, oldest first.
	Store interface {
		Put(ctx context.Context, tx core.Transaction) error
		ListAll(ctx context.Context) ([]core.Transaction, error)
	}

	// Purger is implemented by stores that can delete durable data.
	Purger interface {
		DeleteAll(ctx context.Context) error
	}

	// Notifier is told about every committed transaction. Failures are logged
	// and never undo the add.
	Notifier interface {
		TransactionRecorded(ctx context.Context, tx core.Transaction) error
	}
)
