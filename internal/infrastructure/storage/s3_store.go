package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

var _ service.DocumentStore = (*S3Store)(nil)

// S3Store keeps objects in an S3 bucket. A custom endpoint with path-style
// addressing targets MinIO or LocalStack.
type S3Store struct {
	client *s3.Client
	bucket string
	logger logger.Logger
}

// NewS3Store loads AWS configuration and returns a store for cfg.Bucket.
// Static credentials are used when both keys are set, otherwise the default chain.
func NewS3Store(ctx context.Context, cfg *config.S3StorageConfig, log logger.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.ErrStorage("load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	log.Info(ctx, "S3 document store configured",
		logger.String("bucket", cfg.Bucket),
		logger.String("region", cfg.Region),
		logger.Bool("path_style", cfg.UsePathStyle),
	)
	return &S3Store{client: client, bucket: cfg.Bucket, logger: log.WithComponent("S3Store")}, nil
}

// Put uploads body. Non-seekable bodies are buffered so the payload can be signed.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if _, ok := body.(io.ReadSeeker); !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return errors.ErrStorage("put", err)
		}
		body = bytes.NewReader(data)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		s.logger.Error(ctx, "S3 put failed", err, logger.String("key", key))
		return errors.ErrStorage("put", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, errors.ErrNotFound("object", key)
		}
		return nil, errors.ErrStorage("get", err)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error(ctx, "S3 delete failed", err, logger.String("key", key))
		return errors.ErrStorage("delete", err)
	}
	return nil
}
