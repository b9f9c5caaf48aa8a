// Package azure stores the backup as a block blob in Azure Storage.
package azure

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"moneylog/internal/backup"
	"moneylog/internal/core"
)

const (
	DefaultBlob = "moneylog-backup.json"

	// Azurite's well-known development account.
	devAccountName = "devstoreaccount1"
	devAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

type Remote struct {
	client    *azblob.Client
	container string
	blob      string
	now       func() time.Time
}

var _ backup.Remote = (*Remote)(nil)

func New(client *azblob.Client, container, blob string) *Remote {
	if strings.TrimSpace(blob) == "" {
		blob = DefaultBlob
	}
	return &Remote{client: client, container: container, blob: blob, now: time.Now}
}

// NewWithCredential authenticates with any Azure token credential.
func NewWithCredential(serviceURL string, cred azcore.TokenCredential, container, blob string) (*Remote, error) {
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return New(client, container, blob), nil
}

// NewFromServiceURL picks credentials from the URL: plain http means a local
// Azurite emulator with its shared key, anything else uses the default
// Azure credential chain.
func NewFromServiceURL(serviceURL, container, blob string) (*Remote, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return nil, fmt.Errorf("AZURE_BLOB_SERVICE_URL is required")
	}
	if strings.TrimSpace(container) == "" {
		return nil, fmt.Errorf("AZURE_BLOB_CONTAINER is required")
	}

	if isEmulator(serviceURL) {
		cred, err := azblob.NewSharedKeyCredential(devAccountName, devAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
		return New(client, container, blob), nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create default azure credential: %w", err)
	}
	return NewWithCredential(serviceURL, cred, container, blob)
}

func isEmulator(serviceURL string) bool {
	return strings.HasPrefix(strings.ToLower(serviceURL), "http://")
}

func (r *Remote) Name() string { return "azure" }

func (r *Remote) SessionActive() bool { return r.client != nil && r.container != "" }

func (r *Remote) Save(ctx context.Context, snap core.Snapshot) error {
	if !r.SessionActive() {
		return backup.ErrNoSession
	}
	data, err := backup.Encode(snap, r.now())
	if err != nil {
		return err
	}
	_, err = r.client.UploadBuffer(ctx, r.container, r.blob, data, nil)
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		if _, cerr := r.client.CreateContainer(ctx, r.container, nil); cerr != nil && !bloberror.HasCode(cerr, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("create container %s: %w", r.container, cerr)
		}
		_, err = r.client.UploadBuffer(ctx, r.container, r.blob, data, nil)
	}
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", r.container, r.blob, err)
	}
	return nil
}

func (r *Remote) Load(ctx context.Context) (*backup.RemoteSnapshot, error) {
	if !r.SessionActive() {
		return nil, backup.ErrNoSession
	}
	resp, err := r.client.DownloadStream(ctx, r.container, r.blob, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", r.container, r.blob, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", r.container, r.blob, err)
	}
	var modified time.Time
	if resp.LastModified != nil {
		modified = *resp.LastModified
	}
	return backup.Decode(data, modified)
}
