// Package storage uploads product and category images to object storage.
package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/princinho/storefront/config"
	"github.com/princinho/storefront/utils"
)

// StoredObject describes an uploaded file.
type StoredObject struct {
	URL        string
	ObjectName string
	MimeType   string
	SizeBytes  int64
}

// ImageStore is implemented by the GCS and R2 backends.
type ImageStore interface {
	// Upload stores file under prefix and returns its public location.
	Upload(ctx context.Context, prefix string, file *multipart.FileHeader, mimeType string) (StoredObject, error)
	// Delete removes objects by name. It tries every name and returns the
	// first error.
	Delete(ctx context.Context, objectNames ...string) error
	// ObjectName maps a public url back to the object name.
	ObjectName(publicURL string) (string, error)
}

// New picks the backend named in cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (ImageStore, error) {
	switch cfg.Provider {
	case "gcs", "":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.CredentialsFile)
	case "r2":
		return NewR2Store(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// objectName builds a unique key such as products/oak-table/1700000000-<uuid>.jpg.
func objectName(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%d-%s%s", strings.Trim(prefix, "/"), time.Now().UTC().Unix(), uuid.NewString(), ext)
}

// ProductPrefix and CategoryPrefix keep every upload under a per-entity folder.
func ProductPrefix(slug string) string  { return "products/" + utils.GenerateSlug(slug) }
func CategoryPrefix(slug string) string { return "categories/" + utils.GenerateSlug(slug) }
