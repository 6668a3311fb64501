package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config describes an S3 compatible bucket (R2 works with region "auto").
// Without a bucket, image refs are joined onto PublicBaseURL.
type Config struct {
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region"`
	Bucket        string        `yaml:"bucket"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	PublicBaseURL string        `yaml:"public_base_url"`
	URLTTL        time.Duration `yaml:"url_ttl"`
}

// ImageSigner turns stored dish image refs into URLs a browser can fetch.
type ImageSigner struct {
	presign *s3.PresignClient
	bucket  string
	baseURL string
	ttl     time.Duration
}

func NewImageSigner(cfg Config) *ImageSigner {
	s := &ImageSigner{
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		ttl:     cfg.URLTTL,
	}
	if s.ttl <= 0 {
		s.ttl = 15 * time.Minute
	}
	if cfg.Bucket == "" {
		return s
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	s.presign = s3.NewPresignClient(s3.New(opts))
	return s
}

// URL resolves ref. Absolute URLs are returned unchanged.
func (s *ImageSigner) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	key := strings.TrimPrefix(ref, "/")

	if s.presign == nil {
		if s.baseURL == "" {
			return ref, nil
		}
		return fmt.Sprintf("%s/%s", s.baseURL, key), nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
