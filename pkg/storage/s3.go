// Package storage keeps uploaded catalogue images in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("object storage is not configured")

// ObjectStore stores images and hands back their public URL.
type ObjectStore interface {
	Put(ctx context.Context, prefix, filename, contentType string, body io.ReadSeeker) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

// Config holds the S3 bucket settings.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store is an ObjectStore backed by an S3 bucket.
type S3Store struct {
	bucket string
	region string
	svc    s3iface.S3API
}

// NewS3Store creates a session from static credentials, or the default
// provider chain when no keys are given.
func NewS3Store(cfg Config) (*S3Store, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return NewS3StoreWithClient(cfg.Bucket, cfg.Region, s3.New(sess)), nil
}

// NewS3StoreWithClient wraps an existing S3 client.
func NewS3StoreWithClient(bucket, region string, svc s3iface.S3API) *S3Store {
	return &S3Store{bucket: bucket, region: region, svc: svc}
}

// Put uploads body under prefix/<uuid><ext> and returns the object URL.
func (s *S3Store) Put(ctx context.Context, prefix, filename, contentType string, body io.ReadSeeker) (string, error) {
	key := path.Join(prefix, uuid.NewString()+strings.ToLower(path.Ext(filename)))

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.svc.PutObjectWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

// Delete removes the object behind a URL previously returned by Put. URLs that
// point elsewhere are ignored.
func (s *S3Store) Delete(ctx context.Context, objectURL string) error {
	key, ok := s.keyFromURL(objectURL)
	if !ok {
		return nil
	}
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3Store) keyFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != fmt.Sprintf("%s.s3.%s.amazonaws.com", s.bucket, s.region) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	return key, key != ""
}

// Disabled rejects every upload with ErrDisabled.
type Disabled struct{}

func (Disabled) Put(context.Context, string, string, string, io.ReadSeeker) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error { return nil }
