package blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/warp/toolroom/inventory"
)

// S3Config holds construction parameters. Credentials fall back to the
// default AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. MinIO
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // public prefix for references; default s3://<bucket>
	HTTPClient      *http.Client
}

// S3 stores photos in an S3-compatible bucket.
type S3 struct {
	client  *s3.Client
	bucket  string
	baseURL string
	log     *slog.Logger
}

var _ inventory.PhotoStore = (*S3)(nil)

// NewS3 builds a client from cfg.
func NewS3(ctx context.Context, cfg S3Config, log *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	base := cfg.BaseURL
	if base == "" {
		base = "s3://" + cfg.Bucket
	}
	if log == nil {
		log = slog.Default()
	}
	return &S3{client: client, bucket: cfg.Bucket, baseURL: base, log: log}, nil
}

// SavePhoto uploads data as <folder>/<operationID><ext>.
func (s *S3) SavePhoto(ctx context.Context, data []byte, folder, operationID string) string {
	if len(data) == 0 {
		return ""
	}
	k, err := key(folder, operationID, data)
	if err != nil {
		s.log.Warn("photo rejected", "operation_id", operationID, "err", err)
		return ""
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(data)),
	})
	if err != nil {
		s.log.Error("photo upload failed", "operation_id", operationID, "key", k, "err", err)
		return ""
	}
	return ref(s.baseURL, k)
}
