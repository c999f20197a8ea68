package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore authenticates with the service account file when one is given
// and falls back to application default credentials otherwise.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Upload(ctx context.Context, prefix string, fh *multipart.FileHeader, mimeType string) (StoredObject, error) {
	name := objectName(prefix, fh.Filename)

	f, err := fh.Open()
	if err != nil {
		return StoredObject{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	w := s.client.Bucket(s.bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = mimeType
	w.CacheControl = "public, max-age=31536000"
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return StoredObject{}, fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("upload close: %w", err)
	}

	return StoredObject{
		URL:        fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name),
		ObjectName: name,
		MimeType:   mimeType,
		SizeBytes:  fh.Size,
	}, nil
}

func (s *GCSStore) Delete(ctx context.Context, objectNames ...string) error {
	var firstErr error
	for _, obj := range objectNames {
		if obj == "" {
			continue
		}
		if err := s.client.Bucket(s.bucket).Object(obj).Delete(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

func (s *GCSStore) ObjectName(raw string) (string, error) {
	return gcsObjectName(s.bucket, raw)
}

// gcsObjectName accepts both storage.googleapis.com/<bucket>/<object> and
// <bucket>.storage.googleapis.com/<object>.
func gcsObjectName(bucket, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimPrefix(u.Path, "/")

	if host == "storage.googleapis.com" {
		prefix := bucket + "/"
		if !strings.HasPrefix(path, prefix) {
			return "", fmt.Errorf("url bucket mismatch")
		}
		return strings.TrimPrefix(path, prefix), nil
	}

	if host == strings.ToLower(bucket)+".storage.googleapis.com" {
		if path == "" {
			return "", fmt.Errorf("missing object path")
		}
		return path, nil
	}

	return "", fmt.Errorf("not a gcs public url")
}
