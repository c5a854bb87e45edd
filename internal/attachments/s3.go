// Package attachments stores receipt files in S3-compatible object storage.
// Attachment bytes never enter wire documents; records carry only the
// object key, and the object is purged when its record is tombstoned.
package attachments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store is the receipt store consumed by the ledger service and the
// tombstone side effects.
type Store interface {
	// Put uploads data and returns the generated object key.
	Put(ctx context.Context, ownerID string, data []byte) (string, error)
	// Fetch downloads the object under key.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// Remove deletes the object under key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key string) error
}

// Config carries the S3 connection settings (MinIO-compatible).
type Config struct {
	Region       string
	BaseEndpoint string
	Bucket       string
	AccessKey    string
	SecretKey    string
}

// S3Store implements Store over an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds a client from static credentials and a custom endpoint.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// receiptKey spreads objects by date so buckets stay listable.
func receiptKey(ownerID string) string {
	d := time.Now()
	return fmt.Sprintf("users/%s/receipts/%d/%02d/%v", ownerID, d.Year(), d.Month(), uuid.New())
}

func (s *S3Store) Put(ctx context.Context, ownerID string, data []byte) (string, error) {
	key := receiptKey(ownerID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}
	return key, nil
}

func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download receipt %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt %s: %w", key, err)
	}
	return data, nil
}

func (s *S3Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete receipt %s: %w", key, err)
	}
	return nil
}
