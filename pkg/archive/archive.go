// Package archive copies downloaded PeopleDoc documents into an
// S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-hclog"
)

// DefaultContentType is used when a document has no Content-Type.
const DefaultContentType = "application/pdf"

// Config configures the bucket documents are archived to.
type Config struct {
	// Endpoint is set for MinIO and other S3-compatible services. Path-style
	// addressing is used whenever it is set.
	Endpoint string

	Region string
	Bucket string

	// Prefix is prepended to every object key, e.g. "peopledoc/".
	Prefix string

	AccessKey string
	SecretKey string

	// Timeout bounds each request. Default: 30s
	Timeout time.Duration
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	return nil
}

// Object describes an archived document.
type Object struct {
	Key    string
	ETag   string
	SHA256 string
	Size   int
}

// Archive writes documents to a bucket.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
	log    hclog.Logger
}

// New creates an Archive.
func New(ctx context.Context, cfg *Config, log hclog.Logger) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archive configuration: %w", err)
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(timeout)),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log.Named("archive"),
	}, nil
}

// Key returns the object key for a document id. Ids that are empty or
// contain a path separator are rejected so every key stays under the
// prefix.
func (a *Archive) Key(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("document id is required")
	}
	if strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return path.Join(a.prefix, "documents", id+".pdf"), nil
}

// Put stores the content of document id. The SHA-256 of the content is
// recorded in the object metadata.
func (a *Archive) Put(ctx context.Context, id string, content []byte, contentType string) (*Object, error) {
	key, err := a.Key(id)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	out, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"peopledoc-id": id,
			"sha256":       digest,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %q: %w", key, err)
	}

	a.log.Debug("document archived", "id", id, "bucket", a.bucket, "key", key, "size", len(content))

	return &Object{
		Key:    key,
		ETag:   aws.ToString(out.ETag),
		SHA256: digest,
		Size:   len(content),
	}, nil
}
