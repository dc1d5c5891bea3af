package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"legalrag-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// snapshotPrefix namespaces snapshot objects inside a shared bucket
const snapshotPrefix = "legal-snapshots"

// S3Storage keeps snapshots as objects in an S3 bucket
type S3Storage struct {
	client *s3.Client
	bucket string
}

// NewS3Storage builds an S3 client from the snapshot config.
// Static keys are used when both are set, otherwise the default credential chain.
func NewS3Storage(ctx context.Context, cfg config.SnapshotConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Storage{client: s3.NewFromConfig(awsCfg), bucket: cfg.S3Bucket}, nil
}

func objectKey(key string) string {
	return path.Join(snapshotPrefix, key)
}

// Put uploads the snapshot and returns its object key
func (s *S3Storage) Put(ctx context.Context, key string, data io.Reader) (string, error) {
	objKey := objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objKey),
		Body:        data,
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", objKey, err)
	}
	return objKey, nil
}

// Get downloads a snapshot by object key
func (s *S3Storage) Get(ctx context.Context, objKey string) (io.ReadCloser, error) {
	if err := validateKey(objKey); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, objKey)
		}
		return nil, fmt.Errorf("failed to download snapshot %s: %w", objKey, err)
	}
	return out.Body, nil
}
