package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/facebookincubator/go-belt/tool/logger"
)

type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string // for S3-compatible services; enables path-style addressing

	AccessKeyID     string
	SecretAccessKey string
}

// S3 uploads objects into a bucket under Prefix.
type S3 struct {
	client *s3.Client
	config S3Config
}

var _ Storage = (*S3)(nil)

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("the bucket is not set")
	}

	var configOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		configOpts = append(configOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load the AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		config: cfg,
	}, nil
}

func (s *S3) key(name string) string {
	if s.config.Prefix == "" {
		return name
	}
	return path.Join(s.config.Prefix, name)
}

func (s *S3) Save(ctx context.Context, name string, data io.Reader) (_ string, _err error) {
	key := s.key(name)
	logger.Tracef(ctx, "S3.Save(%s)", key)
	defer func() { logger.Tracef(ctx, "/S3.Save(%s): %v", key, _err) }()

	// the SDK needs a seekable body to sign the payload over plain HTTP
	body, ok := data.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(data)
		if err != nil {
			return "", ioFailure("unable to read '%s': %w", name, err)
		}
		body = newBytesReader(b)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", ioFailure("unable to upload s3://%s/%s: %w", s.config.Bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}
