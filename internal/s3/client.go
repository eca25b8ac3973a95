package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/arencloud/s3lister/internal/logging"
	"github.com/arencloud/s3lister/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// API is the subset of *s3.Client used here.
type API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

type Client struct {
	api    API
	logger logging.Logger
}

// Options describes how to reach the storage provider.
type Options struct {
	Region    string
	Endpoint  string // optional; scheme optional
	Provider  string // aws|minio|mcg|generic
	UseSSL    bool
	AccessKey string // empty -> default credential chain (env, shared config, IMDS)
	SecretKey string
}

// StorageError reports a failed call to the storage provider.
type StorageError struct {
	Op   string
	Code string // S3 error code when the service answered, e.g. AccessDenied
	Err  error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("s3 %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("s3 %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func normalizeEndpoint(endpoint string, useSSL bool) (host string, secure bool) {
	secure = useSSL
	if endpoint == "" {
		return "", secure
	}
	// scheme in the endpoint wins over useSSL
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if u, err := url.Parse(endpoint); err == nil {
			return u.Host, u.Scheme == "https"
		}
	}
	return strings.TrimSuffix(endpoint, "/"), secure
}

func forcePathStyle(provider string) bool {
	// Path-style for non-AWS by default; AWS prefers virtual-hosted
	pt := strings.ToLower(strings.TrimSpace(provider))
	return pt == "minio" || pt == "mcg" || pt == "generic"
}

// New builds a client from the ambient AWS configuration plus opts.
func New(ctx context.Context, opts Options, logger logging.Logger) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	host, secure := normalizeEndpoint(opts.Endpoint, opts.UseSSL)
	pathStyle := forcePathStyle(opts.Provider)
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if host != "" {
			scheme := "http"
			if secure {
				scheme = "https"
			}
			o.BaseEndpoint = aws.String(scheme + "://" + host)
		}
		o.UsePathStyle = pathStyle
	})
	logger.Info("s3 client ready", "region", awsCfg.Region, "endpoint", host, "pathStyle", pathStyle, "staticCreds", opts.AccessKey != "")
	return NewWithAPI(api, logger), nil
}

func NewWithAPI(api API, logger logging.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// ListBuckets returns every bucket the credentials can see, in the order the
// provider returned them. A single unfiltered call is made.
func (c *Client) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	out, err := c.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		serr := &StorageError{Op: "ListBuckets", Err: err}
		var ae smithy.APIError
		if errors.As(err, &ae) {
			serr.Code = ae.ErrorCode()
		}
		c.logger.Error("s3 list buckets failed", "code", serr.Code, "error", err)
		return nil, serr
	}
	items := make([]models.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		items = append(items, models.Bucket{
			Name:    aws.ToString(b.Name),
			Created: aws.ToTime(b.CreationDate),
			Region:  aws.ToString(b.BucketRegion),
		})
	}
	c.logger.Debug("s3 list buckets", "count", len(items))
	return items, nil
}
