package file

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/domain/catalog"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
)

const s3Scheme = "s3"

// objectGetter is the part of the S3 client the catalog needs
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Source struct {
	client objectGetter
	bucket string
	key    string
}

func (s s3Source) Read(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s s3Source) String() string {
	return s3Scheme + "://" + s.bucket + "/" + s.key
}

// IsS3Path reports whether path is an s3://bucket/key URL
func IsS3Path(path string) bool {
	return strings.HasPrefix(path, s3Scheme+"://")
}

// ParseS3Path splits an s3://bucket/key URL
func ParseS3Path(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err == nil && u.Scheme == s3Scheme {
		bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	}
	if bucket == "" || key == "" {
		return "", "", ierr.NewErrorf("invalid S3 catalog path: %s", path).
			WithHint("S3 catalog paths look like s3://bucket/path/catalog.json").
			Mark(ierr.ErrValidation)
	}
	return bucket, key, nil
}

// NewGateway returns the catalog gateway for cfg.Catalog.Path: an S3 object
// for s3:// URLs, otherwise a local file
func NewGateway(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (catalog.Gateway, error) {
	path := cfg.Catalog.Path
	if !IsS3Path(path) {
		return NewCatalogGateway(path, log)
	}

	bucket, key, err := ParseS3Path(path)
	if err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Catalog.Region),
	}
	if cfg.Catalog.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Catalog.AccessKeyID, cfg.Catalog.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load AWS configuration for the catalog").
			Mark(ierr.ErrValidation)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Catalog.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Catalog.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Infow("reading catalog from S3", "bucket", bucket, "key", key)
	return newS3CatalogGateway(client, bucket, key, log)
}

func newS3CatalogGateway(client objectGetter, bucket, key string, log *logger.Logger) (catalog.Gateway, error) {
	return newCatalogGateway(s3Source{client: client, bucket: bucket, key: key}, key, log)
}
