package missingfonts

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher downloads fonts from an S3-compatible bucket (R2, MinIO, AWS),
// used when the font server is an s3://bucket/prefix URL.
type S3Fetcher struct {
	Client *s3.Client
}

// NewS3Fetcher builds a client from the settings. Without static credentials
// the default AWS credential chain is used.
func NewS3Fetcher(ctx context.Context, s S3Settings) (*S3Fetcher, error) {
	region := s.Region
	if region == "" {
		region = "auto"
	}
	options := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if s.AccessKey != "" || s.SecretKey != "" {
		if s.AccessKey == "" || s.SecretKey == "" {
			return nil, fmt.Errorf("S3 credentials incomplete (MFN_S3_ACCESS_KEY_ID, MFN_S3_SECRET_ACCESS_KEY)")
		}
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")))
	}
	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Fetcher{Client: client}, nil
}

// parseS3URL splits s3://bucket/key into bucket and key.
func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 URL: %s", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("missing object key in %s", raw)
	}
	return u.Host, key, nil
}

// Fetch writes the object at rawURL to dest.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL, dest string) error {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return err
	}
	output, err := f.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer output.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dest, err)
	}
	if _, err := io.Copy(out, output.Body); err != nil {
		out.Close()
		return fmt.Errorf("failed to write to destination file: %w", err)
	}
	return out.Close()
}
