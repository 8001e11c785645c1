package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Options configures the S3 blob store. Endpoint is optional and allows
// pointing at a MinIO deployment instead of AWS.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base under which stored objects are reachable.
	// Defaults to path-style addressing under Endpoint.
	PublicURL string
}

// S3Store implements BlobStore on top of an S3-compatible object store.
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// NewS3Store builds the S3 client with static credentials.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey, opts.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := strings.TrimSuffix(opts.PublicURL, "/")
	if publicBase == "" {
		publicBase = strings.TrimSuffix(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return &S3Store{client: client, bucket: opts.Bucket, publicBase: publicBase}, nil
}

// Upload stores the blob under a random date-scoped key and returns its
// public URL together with the key needed to destroy it later.
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string) (string, string, error) {
	key := objectKey()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("put object: %w", err)
	}
	return s.publicBase + "/" + key, key, nil
}

// Destroy removes a previously uploaded blob.
func (s *S3Store) Destroy(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func objectKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("media/%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), uuid.NewString())
}
