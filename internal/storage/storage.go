package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"io"
	"strings"
	"sync"
	"time"

	"carbook/internal/config"
	"carbook/internal/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

var (
	ErrObjectExists  = errors.New("storage: object already exists")
	ErrNotConfigured = errors.New("storage: object store is not configured")
)

const bucketInitTimeout = 10 * time.Second

// bucketAPI is the part of *minio.Client the store talks to.
type bucketAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Client stores images in an S3-compatible bucket.
type Client struct {
	bucket        string
	publicBaseURL string
	client        bucketAPI
	logger        *zerolog.Logger

	bucketMu    sync.Mutex
	bucketReady bool
}

func NewClient(cfg config.StorageConfig, logger *zerolog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("storage: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}

	minioClient, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}

	base := strings.TrimSpace(cfg.PublicBaseURL)
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + parseEndpoint(endpoint)
	}

	return &Client{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        minioClient,
		logger:        logger,
	}, nil
}

// Upload stores data under key and returns the stored key. An existing key is
// never replaced.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("storage: object key is required")
	}
	if len(data) == 0 {
		return "", errors.New("storage: empty object")
	}
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}

	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return "", fmt.Errorf("%w: %s", ErrObjectExists, key)
	}
	if code := minio.ToErrorResponse(err).Code; code != "NoSuchKey" && code != "NotFound" {
		return "", fmt.Errorf("storage: stat object: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}

	c.logger.Debug().Str("bucket", c.bucket).Str("key", key).Int("size", len(data)).Msg("Object uploaded")
	return key, nil
}

func (c *Client) PublicURL(storedPath string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, strings.TrimLeft(storedPath, "/"))
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}

// ensureBucket creates the bucket on first use. A failed attempt is retried
// by the next upload.
func (c *Client) ensureBucket(ctx context.Context) error {
	c.bucketMu.Lock()
	defer c.bucketMu.Unlock()
	if c.bucketReady {
		return nil
	}

	// отмена запроса не должна ломать инициализацию для следующих загрузок
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bucketInitTimeout)
	defer cancel()

	exists, err := c.client.BucketExists(initCtx, c.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := c.client.MakeBucket(initCtx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("storage: create bucket: %w", err)
		}
		if err := c.allowPublicRead(initCtx); err != nil {
			return err
		}
		c.logger.Info().Str("bucket", c.bucket).Msg("Bucket created")
	}

	c.bucketReady = true
	return nil
}

// allowPublicRead открывает чтение только для префикса public/.
func (c *Client) allowPublicRead(ctx context.Context) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/public/*"]}]}`, c.bucket)
	if err := c.client.SetBucketPolicy(ctx, c.bucket, policy); err != nil {
		return fmt.Errorf("storage: set bucket policy: %w", err)
	}
	return nil
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// NoopStore fails every upload; used when storage is disabled.
type NoopStore struct{}

func (NoopStore) Upload(_ context.Context, _ string, _ []byte, _ string) (string, error) {
	return "", ErrNotConfigured
}

func (NoopStore) PublicURL(string) string {
	return ""
}

var (
	_ domain.ObjectStore = (*Client)(nil)
	_ domain.ObjectStore = NoopStore{}
	_ domain.ObjectStore = (*MemoryStore)(nil)
)
