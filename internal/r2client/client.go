// Package r2client talks to Cloudflare R2 through the S3 API.
//
// Besides plain reads and writes it exposes the conditional writes
// (If-None-Match / If-Match) that the backup lock and state records rely on.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("r2client: object not found")

// ObjectStore is the subset of object storage used by the backup code.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (etag string, err error)
	Get(ctx context.Context, key string) (*Object, error)
	// Create writes key only if it does not exist yet.
	Create(ctx context.Context, key string, body io.Reader, contentType string) (created bool, etag string, err error)
	// Replace writes key only if its current ETag is etag.
	Replace(ctx context.Context, key string, body io.Reader, etag, contentType string) (replaced bool, newETag string, err error)
	Delete(ctx context.Context, key string) error
}

// Object is a downloaded object. Callers must close Body.
type Object struct {
	Body io.ReadCloser
	ETag string
	Size int64
}

// Config holds bucket credentials. Endpoint defaults to the account's R2 host.
type Config struct {
	AccountID   string
	Endpoint    string
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// EndpointURL returns the S3 endpoint for the bucket.
func (c Config) EndpointURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

func (c Config) validate() error {
	var errs []error
	if c.AccountID == "" && c.Endpoint == "" {
		errs = append(errs, errors.New("account id or endpoint is required"))
	}
	if c.AccessKeyID == "" || c.SecretKey == "" {
		errs = append(errs, errors.New("access key is required"))
	}
	if c.BucketName == "" {
		errs = append(errs, errors.New("bucket name is required"))
	}
	return errors.Join(errs...)
}

// Client is an ObjectStore backed by R2.
type Client struct {
	s3     *s3.Client
	bucket string
}

var _ ObjectStore = (*Client)(nil)

// New creates a client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("r2client: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	endpoint := cfg.EndpointURL()
	return &Client{
		s3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}),
		bucket: cfg.BucketName,
	}, nil
}

// Put writes key unconditionally.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	out, err := c.s3.PutObject(ctx, c.putInput(key, body, contentType))
	if err != nil {
		return "", fmt.Errorf("r2client: put %q: %w", key, err)
	}
	return trimETag(out.ETag), nil
}

// Get downloads key.
func (c *Client) Get(ctx context.Context, key string) (*Object, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("r2client: get %q: %w", key, err)
	}
	return &Object{Body: out.Body, ETag: trimETag(out.ETag), Size: aws.ToInt64(out.ContentLength)}, nil
}

// Create implements ObjectStore with If-None-Match: *.
func (c *Client) Create(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error) {
	in := c.putInput(key, body, contentType)
	in.IfNoneMatch = aws.String("*")
	out, err := c.s3.PutObject(ctx, in)
	if err != nil {
		if IsPreconditionFailed(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("r2client: create %q: %w", key, err)
	}
	return true, trimETag(out.ETag), nil
}

// Replace implements ObjectStore with If-Match.
func (c *Client) Replace(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error) {
	in := c.putInput(key, body, contentType)
	in.IfMatch = aws.String(`"` + etag + `"`)
	out, err := c.s3.PutObject(ctx, in)
	if err != nil {
		if IsPreconditionFailed(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("r2client: replace %q: %w", key, err)
	}
	return true, trimETag(out.ETag), nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("r2client: delete %q: %w", key, err)
	}
	return nil
}

func (c *Client) putInput(key string, body io.Reader, contentType string) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	return in
}

func trimETag(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}
