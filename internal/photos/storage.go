package photos

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type AccessLevel string

const (
	AccessPrivate   AccessLevel = "private"
	AccessProtected AccessLevel = "protected"
	AccessGuest     AccessLevel = "guest"
)

type UploadOptions struct {
	ContentType        string
	AccessLevel        AccessLevel
	Metadata           map[string]string
	ContentDisposition string
}

type URLOptions struct {
	AccessLevel AccessLevel
	ExpiresIn   time.Duration
}

// ObjectStorage is the object store photos are kept in.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, opts UploadOptions) error
	GetURL(ctx context.Context, key string, opts URLOptions) (string, error)
	Remove(ctx context.Context, key string, level AccessLevel) error
}

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage keeps objects in a single bucket under their full key.
type S3Storage struct {
	Bucket    string
	Client    S3API
	Presigner PresignAPI
}

func NewS3Storage(client *s3.Client, bucket string) *S3Storage {
	return &S3Storage{
		Bucket:    bucket,
		Client:    client,
		Presigner: s3.NewPresignClient(client),
	}
}

func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, opts UploadOptions) error {
	metadata := make(map[string]string, len(opts.Metadata)+1)
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	if opts.AccessLevel != "" {
		metadata["access-level"] = string(opts.AccessLevel)
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.Bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.ContentDisposition != "" {
		input.ContentDisposition = aws.String(opts.ContentDisposition)
	}

	if _, err := s.Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("error uploading object %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) GetURL(ctx context.Context, key string, opts URLOptions) (string, error) {
	expires := opts.ExpiresIn
	if expires <= 0 {
		expires = SignedURLExpiry
	}

	req, err := s.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("error signing url for %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) Remove(ctx context.Context, key string, _ AccessLevel) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error removing object %s: %w", key, err)
	}
	return nil
}
