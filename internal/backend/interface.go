package backend

import (
	"context"

	"moneylog/internal/backup"
	"moneylog/internal/persistence"
	"moneylog/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PersistenceResult is the local store the ledger loads from and saves to.
type PersistenceResult struct {
	Adapter persistence.Adapter
	// SQLite is set only for the sqlite backend; the worker and backup
	// bookkeeping need its revision queries.
	SQLite  *storage.SQLiteRepository
	Cleanup CleanupFunc
}

// RemoteResult is the backup destination. Remote is nil for RemoteNone.
type RemoteResult struct {
	Remote  backup.Remote
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreatePersistence(ctx context.Context, config Config) (*PersistenceResult, error)
	CreateRemote(ctx context.Context, config Config) (*RemoteResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Persistence PersistenceType
	Remote      RemoteType

	DataDir      string
	StorageKey   string
	SQLiteDBPath string

	// Object, file or blob name on the remote; empty picks the remote's default.
	ObjectName string

	GoogleSpreadsheetID   string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	GCSBucket           string
	AzureBlobServiceURL string
	AzureBlobContainer  string
}

// PersistenceType selects where the ledger snapshot lives locally
type PersistenceType string

const (
	FilePersistence   PersistenceType = "file"
	SQLitePersistence PersistenceType = "sqlite"
	MemoryPersistence PersistenceType = "memory"
)

func (t PersistenceType) String() string { return string(t) }

func (t PersistenceType) IsValid() bool {
	switch t {
	case FilePersistence, SQLitePersistence, MemoryPersistence:
		return true
	default:
		return false
	}
}

// RemoteType selects the backup destination
type RemoteType string

const (
	RemoteNone   RemoteType = "none"
	RemoteMemory RemoteType = "memory"
	RemoteDrive  RemoteType = "drive"
	RemoteSheets RemoteType = "sheets"
	RemoteGCS    RemoteType = "gcs"
	RemoteAzure  RemoteType = "azure"
)

func (t RemoteType) String() string { return string(t) }

func (t RemoteType) IsValid() bool {
	switch t {
	case RemoteNone, RemoteMemory, RemoteDrive, RemoteSheets, RemoteGCS, RemoteAzure:
		return true
	default:
		return false
	}
}
