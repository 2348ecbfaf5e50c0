package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const keyPrefix = "blogs/"

var ErrNotConfigured = errors.New("object storage is not configured")

type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c Config) Configured() bool {
	return c.Region != "" && c.Bucket != ""
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads article images into a public bucket.
type S3 struct {
	client putter
	bucket string
	region string
	now    func() time.Time
}

// NewS3 loads the default AWS configuration for the region. Static keys, when set,
// take precedence over the default credential chain.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &S3{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		region: cfg.Region,
		now:    time.Now,
	}, nil
}

// Upload stores the data under a fresh key and returns its public URL.
func (s *S3) Upload(ctx context.Context, data []byte, fileName, mimeType string) (string, error) {
	key := s.objectKey(fileName)

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if mimeType != "" {
		in.ContentType = aws.String(mimeType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload object to S3: %w", err)
	}

	return s.objectURL(key), nil
}

func (s *S3) objectKey(fileName string) string {
	return fmt.Sprintf("%s%d-%s-%s", keyPrefix, s.now().UnixMilli(), uuid.NewString(), cleanFileName(fileName))
}

// objectURL escapes every key segment; file names may carry '#', '?', '%' or non-ASCII runes.
func (s *S3) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, strings.Join(segments, "/"))
}

// cleanFileName drops any directory part and whitespace so the name is usable in a key and a URL.
func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" || name == "." || name == "/" {
		return "image"
	}
	return name
}
