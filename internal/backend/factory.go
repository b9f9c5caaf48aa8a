package backend

import (
	"context"
	"fmt"

	"moneylog/internal/backup"
	"moneylog/internal/backup/azure"
	"moneylog/internal/backup/drive"
	"moneylog/internal/backup/gcs"
	backupmem "moneylog/internal/backup/memory"
	"moneylog/internal/backup/sheets"
	applog "moneylog/internal/log"
	"moneylog/internal/persistence"
	"moneylog/internal/persistence/file"
	persistmem "moneylog/internal/persistence/memory"
	"moneylog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreatePersistence implements Factory.CreatePersistence
func (f *DefaultFactory) CreatePersistence(ctx context.Context, config Config) (*PersistenceResult, error) {
	if !config.Persistence.IsValid() {
		return nil, fmt.Errorf("invalid persistence backend: %s", config.Persistence)
	}
	key := config.StorageKey
	if key == "" {
		key = persistence.DefaultKey
	}

	switch config.Persistence {
	case SQLitePersistence:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, key)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite persistence", "db_path", config.SQLiteDBPath, "key", key)
		return &PersistenceResult{Adapter: repo, SQLite: repo, Cleanup: repo.Close}, nil

	case FilePersistence:
		store, err := file.New(config.DataDir, key)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file persistence: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file persistence", "path", store.Path())
		return &PersistenceResult{Adapter: store}, nil

	default:
		f.logger.InfoContext(ctx, "Initialized in-memory persistence")
		return &PersistenceResult{Adapter: persistmem.New()}, nil
	}
}

// CreateRemote implements Factory.CreateRemote
func (f *DefaultFactory) CreateRemote(ctx context.Context, config Config) (*RemoteResult, error) {
	if !config.Remote.IsValid() {
		return nil, fmt.Errorf("invalid remote backend: %s", config.Remote)
	}

	var (
		remote  backup.Remote
		cleanup CleanupFunc
	)

	switch config.Remote {
	case RemoteNone:
		f.logger.InfoContext(ctx, "Remote backup disabled")
		return &RemoteResult{}, nil

	case RemoteMemory:
		remote = backupmem.New()

	case RemoteDrive:
		r, err := drive.NewFromCredentials(ctx, config.GoogleClient(), config.GoogleToken(), config.ObjectName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Drive remote: %w", err)
		}
		remote = r

	case RemoteSheets:
		r, err := sheets.NewFromCredentials(ctx, config.GoogleClient(), config.GoogleToken(), config.GoogleSpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets remote: %w", err)
		}
		remote = r

	case RemoteGCS:
		r, err := gcs.NewFromEnv(ctx, config.GCSBucket, config.ObjectName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS remote: %w", err)
		}
		remote, cleanup = r, r.Close

	case RemoteAzure:
		r, err := azure.NewFromServiceURL(config.AzureBlobServiceURL, config.AzureBlobContainer, config.ObjectName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Azure Blob remote: %w", err)
		}
		remote = r
	}

	f.logger.InfoContext(ctx, "Initialized remote backup", applog.FieldRemote, remote.Name())
	return &RemoteResult{Remote: remote, Cleanup: cleanup}, nil
}
