package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/princinho/storefront/config"
)

// R2Store talks to Cloudflare R2 through its S3 compatible API.
type R2Store struct {
	s3           *s3.Client
	bucket       string
	publicDomain string
}

func NewR2Store(ctx context.Context, cfg config.StorageConfig) (*R2Store, error) {
	if cfg.R2Bucket == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretKey == "" || cfg.R2Endpoint == "" {
		return nil, fmt.Errorf("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true
	})
	return &R2Store{s3: client, bucket: cfg.R2Bucket, publicDomain: cfg.R2PublicDomain}, nil
}

func (s *R2Store) Upload(ctx context.Context, prefix string, fh *multipart.FileHeader, mimeType string) (StoredObject, error) {
	name := objectName(prefix, fh.Filename)

	f, err := fh.Open()
	if err != nil {
		return StoredObject{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(mimeType),
		CacheControl:  aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("upload %s: %w", fh.Filename, err)
	}

	return StoredObject{
		URL:        s.publicURL(name),
		ObjectName: name,
		MimeType:   mimeType,
		SizeBytes:  fh.Size,
	}, nil
}

func (s *R2Store) Delete(ctx context.Context, objectNames ...string) error {
	var firstErr error
	for _, obj := range objectNames {
		if obj == "" {
			continue
		}
		_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(obj),
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

func (s *R2Store) ObjectName(raw string) (string, error) {
	prefix := s.publicDomain + "/" + s.bucket + "/"
	if s.publicDomain == "" || !strings.HasPrefix(raw, prefix) {
		return "", fmt.Errorf("not a recognised R2 public url")
	}
	name := strings.TrimPrefix(raw, prefix)
	if name == "" {
		return "", fmt.Errorf("no object path in url")
	}
	return name, nil
}

func (s *R2Store) publicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicDomain, s.bucket, objectName)
}
