package report

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects where the JSON export is uploaded. Credentials come from the
// default AWS chain.
type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Region string `mapstructure:"region" yaml:"region" json:"region"`
	// optional, for S3 compatible stores such as MinIO
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	PathStyle bool   `mapstructure:"pathStyle" yaml:"pathStyle" json:"pathStyle"`
}

// S3Sink uploads the JSON export to <bucket>/<prefix>/<runID>.json.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink creates the client, defaulting the region to us-east-1.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Sink) Name() string {
	return "s3"
}

// Key returns the object key of a run.
func (s *S3Sink) Key(runID string) string {
	return path.Join(s.prefix, runID+".json")
}

func (s *S3Sink) Write(ctx context.Context, r *Report) error {
	data, err := JSON.Encode(r)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(r.RunID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"dialect": r.Settings.Dialect,
		},
	})
	if err != nil {
		return fmt.Errorf("upload to s3://%s/%s: %w", s.bucket, s.Key(r.RunID), err)
	}
	return nil
}
