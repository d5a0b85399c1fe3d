package backend

import (
	"context"
	"errors"
	"fmt"

	"esuvi/internal/amqp"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
	"esuvi/internal/settings"
	gsheet "esuvi/internal/sheets/google"
	"esuvi/internal/storage"
	"esuvi/internal/storage/memory"
	"esuvi/internal/storage/supabase"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	settings *settings.Settings
	logger   *log.Logger
}

// NewFactory creates a new backend factory. Settings drive the advisory
// storage checks and may be nil.
func NewFactory(cfg *settings.Settings, logger *log.Logger) *DefaultFactory {
	return &DefaultFactory{
		settings: cfg,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentBackend),
	}
}

// Create implements Factory.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}
	f.checkStoragePolicy(config.Type)

	store, cleanup, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	result := &Result{Store: store, Cleanup: cleanup}
	if client := f.createNotifier(config); client != nil {
		result.Notifier = client
		result.Cleanup = chain(cleanup, client.Close)
	}

	f.logger.Info("Initialized backend",
		log.FieldBackend, config.Type.String(),
		"events_enabled", result.Notifier != nil)
	return result, nil
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (ledger.Store, CleanupFunc, error) {
	switch config.Type {
	case MemoryBackend:
		if config.DataFile == "" {
			return memory.New(), nil, nil
		}
		store, err := memory.NewFile(config.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open memory snapshot: %w", err)
		}
		f.logger.Info("Memory backend persists to file", "path", config.DataFile)
		return store, nil, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("SQLite backend ready", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil

	case SupabaseBackend:
		repo, err := supabase.New(config.SupabaseURL, config.SupabaseKey, config.SupabaseTable, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Supabase repository: %w", err)
		}
		return repo, nil, nil

	case SheetsBackend:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleCredentialsJSON,
			CredentialsFile: config.GoogleCredentialsFile,
		}, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return cli, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

// createNotifier connects to the broker. Events are optional: a failed dial
// is logged and the backend runs without them.
func (f *DefaultFactory) createNotifier(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// checkStoragePolicy warns when the chosen backend is switched off in
// settings. It never refuses to start.
func (f *DefaultFactory) checkStoragePolicy(t BackendType) {
	if f.settings == nil {
		return
	}
	key := settings.KeyUseRemoteStorage
	if t.IsLocal() {
		key = settings.KeyUseLocalStorage
	}
	if !f.settings.BoolOr(settings.CategoryData, key, true) {
		f.logger.Warn("Selected backend is disabled by settings",
			log.FieldBackend, t.String(),
			log.FieldCategory, settings.CategoryData,
			log.FieldKey, key)
	}
}

func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
