package backend

import (
	"fmt"

	"moneylog/internal/backup/googleauth"
	"moneylog/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Persistence: PersistenceType(appConfig.PersistenceBackend),
		Remote:      RemoteType(appConfig.RemoteBackend),

		DataDir:      appConfig.DataDir,
		StorageKey:   appConfig.StorageKey,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		ObjectName:   appConfig.BackupObjectName,

		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleOAuthClientFile: appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:  appConfig.GoogleOAuthTokenFile,
		GoogleOAuthClientJSON: appConfig.GoogleOAuthClientJSON,
		GoogleOAuthTokenJSON:  appConfig.GoogleOAuthTokenJSON,

		GCSBucket:           appConfig.GCSBucket,
		AzureBlobServiceURL: appConfig.AzureBlobServiceURL,
		AzureBlobContainer:  appConfig.AzureBlobContainer,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Persistence.IsValid() {
		return fmt.Errorf("invalid persistence backend: %s", c.Persistence)
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote backend: %s", c.Remote)
	}

	switch c.Persistence {
	case FilePersistence:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for file persistence")
		}
	case SQLitePersistence:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite persistence")
		}
	}

	switch c.Remote {
	case RemoteDrive, RemoteSheets:
		if c.Remote == RemoteSheets && c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets remote")
		}
		if !c.GoogleClient().IsSet() {
			return fmt.Errorf("either GoogleOAuthClientFile or GoogleOAuthClientJSON must be provided for %s remote", c.Remote)
		}
		if !c.GoogleToken().IsSet() {
			return fmt.Errorf("either GoogleOAuthTokenFile or GoogleOAuthTokenJSON must be provided for %s remote", c.Remote)
		}
	case RemoteGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs remote")
		}
	case RemoteAzure:
		if c.AzureBlobServiceURL == "" || c.AzureBlobContainer == "" {
			return fmt.Errorf("Azure blob service URL and container are required for azure remote")
		}
	}

	return nil
}

func (c Config) GoogleClient() googleauth.Source {
	return googleauth.Source{JSON: c.GoogleOAuthClientJSON, File: c.GoogleOAuthClientFile}
}

func (c Config) GoogleToken() googleauth.Source {
	return googleauth.Source{JSON: c.GoogleOAuthTokenJSON, File: c.GoogleOAuthTokenFile}
}

// GetRemoteTypes returns all valid remote types
func GetRemoteTypes() []RemoteType {
	return []RemoteType{RemoteNone, RemoteMemory, RemoteDrive, RemoteSheets, RemoteGCS, RemoteAzure}
}

// GetRemoteTypeStrings returns all valid remote type strings
func GetRemoteTypeStrings() []string {
	types := GetRemoteTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
