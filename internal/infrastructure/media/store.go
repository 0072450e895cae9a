// Package media uploads profile photos to an S3-compatible object store
// and hands back the public URL persisted on the user record.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"profilehub/internal/infrastructure/config"
)

// Store uploads objects and returns their public URL.
type Store interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// S3Store implements Store against any S3-compatible endpoint (AWS,
// MinIO, or a hosted media service).
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store creates a media store from config. Static credentials and
// an explicit base endpoint, so self-hosted MinIO works the same as AWS.
func NewS3Store(ctx context.Context, cfg config.MediaConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token not needed for static credentials
		)))
	if err != nil {
		return nil, fmt.Errorf("loading media host config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // bucket-in-path, required by MinIO
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = cfg.Endpoint
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload writes an object to the bucket and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}

// ObjectKey generates a date-partitioned storage key for an upload,
// keeping the original file extension.
func ObjectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	d := time.Now().UTC()
	return fmt.Sprintf("photos/%d/%02d/%s%s", d.Year(), d.Month(), uuid.NewString(), ext)
}
