// Package drive keeps the backup as a single JSON file in the Google Drive
// application data folder, which is private to this app.
package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"moneylog/internal/backup"
	"moneylog/internal/backup/googleauth"
	"moneylog/internal/core"
)

const (
	appDataFolder   = "appDataFolder"
	DefaultFileName = "moneylog-backup.json"
	// Scope is the only scope the remote needs.
	Scope = gdrive.DriveAppdataScope
)

type Remote struct {
	svc      *gdrive.Service
	fileName string
	now      func() time.Time
}

var _ backup.Remote = (*Remote)(nil)

// New wraps an existing Drive service.
func New(svc *gdrive.Service, fileName string) *Remote {
	if strings.TrimSpace(fileName) == "" {
		fileName = DefaultFileName
	}
	return &Remote{svc: svc, fileName: fileName, now: time.Now}
}

// NewFromCredentials authenticates with a stored OAuth token.
func NewFromCredentials(ctx context.Context, client, token googleauth.Source, fileName string, opts ...goption.ClientOption) (*Remote, error) {
	hc, err := googleauth.HTTPClient(ctx, client, token, Scope)
	if err != nil {
		return nil, err
	}
	svc, err := gdrive.NewService(ctx, append([]goption.ClientOption{goption.WithHTTPClient(hc)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return New(svc, fileName), nil
}

func (r *Remote) Name() string { return "drive" }

func (r *Remote) SessionActive() bool { return r.svc != nil }

func (r *Remote) Save(ctx context.Context, snap core.Snapshot) error {
	if r.svc == nil {
		return backup.ErrNoSession
	}
	data, err := backup.Encode(snap, r.now())
	if err != nil {
		return err
	}

	existing, err := r.find(ctx)
	if err != nil {
		return err
	}
	if existing == nil {
		f := &gdrive.File{Name: r.fileName, Parents: []string{appDataFolder}, MimeType: "application/json"}
		if _, err := r.svc.Files.Create(f).Media(bytes.NewReader(data)).Fields("id").Context(ctx).Do(); err != nil {
			return fmt.Errorf("create %s: %w", r.fileName, err)
		}
		return nil
	}
	if _, err := r.svc.Files.Update(existing.Id, &gdrive.File{}).Media(bytes.NewReader(data)).Fields("id").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", r.fileName, err)
	}
	return nil
}

func (r *Remote) Load(ctx context.Context) (*backup.RemoteSnapshot, error) {
	if r.svc == nil {
		return nil, backup.ErrNoSession
	}
	existing, err := r.find(ctx)
	if err != nil || existing == nil {
		return nil, err
	}

	resp, err := r.svc.Files.Get(existing.Id).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("download %s: %w", r.fileName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.fileName, err)
	}
	return backup.Decode(data, parseModified(existing.ModifiedTime))
}

// find returns the newest backup file, or nil when there is none.
func (r *Remote) find(ctx context.Context) (*gdrive.File, error) {
	list, err := r.svc.Files.List().
		Spaces(appDataFolder).
		Q(fileQuery(r.fileName)).
		OrderBy("modifiedTime desc").
		PageSize(1).
		Fields("files(id, name, modifiedTime)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

func fileQuery(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("name = '%s' and trashed = false", escaped)
}

func parseModified(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
