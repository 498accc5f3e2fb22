// Package media stores attachment bytes in S3-compatible object storage.
// Comments and strikes only ever hold the returned reference.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dukerupert/chorechart/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxUploadBytes caps a single attachment.
const MaxUploadBytes = 50 << 20

var (
	// ErrDisabled is returned when no bucket is configured.
	ErrDisabled = errors.New("media storage not configured")
	// ErrUnsupported is returned for content that is neither image nor video.
	ErrUnsupported = errors.New("unsupported media type")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds S3 connection settings.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Complete reports whether a bucket and both keys are set.
func (c Config) Complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Store struct {
	bucket string
	client s3Client
}

// NewStore returns a media store. With an incomplete config the store is
// disabled and every call returns ErrDisabled.
func NewStore(cfg Config) *Store {
	s := &Store{bucket: cfg.Bucket}
	if cfg.Complete() {
		s.client = NewS3Client(cfg)
	}
	return s
}

// NewS3Client builds a path-style client for cfg.
func NewS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// KindOf maps a MIME type to an attachment kind.
func KindOf(contentType string) (model.AttachmentKind, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return model.AttachmentImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return model.AttachmentVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, contentType)
	}
}

// Upload stores body under a fresh key and returns the attachment describing
// it. The attachment ID is left for the ledger to assign.
func (s *Store) Upload(ctx context.Context, name, contentType string, size int64, body io.Reader) (model.Attachment, error) {
	if !s.Enabled() {
		return model.Attachment{}, ErrDisabled
	}
	kind, err := KindOf(contentType)
	if err != nil {
		return model.Attachment{}, err
	}

	key := "attachments/" + uuid.NewString() + strings.ToLower(path.Ext(name))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("upload to s3: %w", err)
	}

	return model.Attachment{Kind: kind, Ref: key, Name: name}, nil
}

// Open streams the object stored under ref. The caller closes the reader.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if !s.Enabled() {
		return nil, "", ErrDisabled
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, "", fmt.Errorf("download from s3: %w", err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}
