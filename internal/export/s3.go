package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination writes exports to an S3-compatible bucket under a key prefix.
type S3Destination struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Destination{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Key returns the object key an export named name is stored under.
func (d *S3Destination) Key(name string) string {
	return d.prefix + name
}

// Write uploads data as the object name below the prefix.
func (d *S3Destination) Write(ctx context.Context, name string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.Key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
