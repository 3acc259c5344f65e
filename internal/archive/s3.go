package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Options configures the S3 archive. Endpoint is only set for S3-compatible stores.
type S3Options struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Endpoint  string
}

// S3 stores exports as objects in a bucket.
type S3 struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3 creates an S3 archive from static credentials.
func NewS3(opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("archive: s3 backend needs S3_BUCKET")
	}
	cfg := &aws.Config{Region: aws.String(opts.Region)}
	if opts.AccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("archive: create aws session: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "reports/"
	}
	return &S3{client: s3.New(sess), bucket: opts.Bucket, prefix: prefix}, nil
}

// Put uploads data under prefix+name and returns the s3:// location.
func (s *S3) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put s3 object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
