package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores product images in one bucket.
type Uploader struct {
	api     putter
	bucket  string
	baseURL string
}

// NewUploader loads credentials from the default AWS chain. When baseURL is
// empty the virtual-hosted bucket URL is used.
func NewUploader(ctx context.Context, bucket, region, baseURL string) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return newUploader(s3.NewFromConfig(cfg), bucket, region, baseURL), nil
}

func newUploader(api putter, bucket, region, baseURL string) *Uploader {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &Uploader{api: api, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := u.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("putting %s: %w", key, err)
	}
	return u.baseURL + "/" + key, nil
}
