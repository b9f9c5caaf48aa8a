// Package gcs stores the backup as an object in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"moneylog/internal/backup"
	"moneylog/internal/core"
)

const DefaultObject = "moneylog/backup.json"

// Remote uses Application Default Credentials through the storage client.
type Remote struct {
	client *storage.Client
	bucket string
	object string
	now    func() time.Time
}

var _ backup.Remote = (*Remote)(nil)

func New(client *storage.Client, bucket, object string) *Remote {
	if strings.TrimSpace(object) == "" {
		object = DefaultObject
	}
	return &Remote{client: client, bucket: bucket, object: object, now: time.Now}
}

// NewFromEnv creates its own storage client. Close releases it.
func NewFromEnv(ctx context.Context, bucket, object string) (*Remote, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("missing GCS_BUCKET")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return New(client, bucket, object), nil
}

func (r *Remote) Name() string { return "gcs" }

func (r *Remote) SessionActive() bool { return r.client != nil && r.bucket != "" }

func (r *Remote) URI() string { return fmt.Sprintf("gs://%s/%s", r.bucket, r.object) }

func (r *Remote) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *Remote) Save(ctx context.Context, snap core.Snapshot) error {
	if !r.SessionActive() {
		return backup.ErrNoSession
	}
	data, err := backup.Encode(snap, r.now())
	if err != nil {
		return err
	}

	w := r.client.Bucket(r.bucket).Object(r.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", r.URI(), err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload %s: %w", r.URI(), err)
	}
	return nil
}

func (r *Remote) Load(ctx context.Context) (*backup.RemoteSnapshot, error) {
	if !r.SessionActive() {
		return nil, backup.ErrNoSession
	}
	rc, err := r.client.Bucket(r.bucket).Object(r.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.URI(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.URI(), err)
	}
	return backup.Decode(data, rc.Attrs.LastModified)
}
