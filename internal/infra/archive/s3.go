// Package archive stores raw scanner uploads in S3-compatible object
// storage before they are ingested.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/pkg/logger"
)

const (
	csvContentType  = "text/csv"
	timestampLayout = "20060102T150405Z"
	defaultFilename = "upload.csv"
)

// ErrBucketRequired is returned when archiving is enabled without a bucket.
var ErrBucketRequired = errors.New("archive bucket is required")

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectPutter is the subset of the S3 client used for archiving.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes uploads to {prefix}/{source}/{timestamp}-{filename}.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *logger.Logger
	now    func() time.Time
}

// NewS3Archiver builds an archiver from configuration. Static keys take
// precedence; a role ARN is assumed on top of the default credential chain.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig, log *logger.Logger) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	switch {
	case cfg.AccessKeyID != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	case cfg.RoleARN != "":
		baseCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		creds := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(baseCfg), cfg.RoleARN)
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(creds)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix, log), nil
}

// NewWithClient builds an archiver around an existing client.
func NewWithClient(client ObjectPutter, bucket, prefix string, log *logger.Logger) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: log.With("component", "archive", "bucket", bucket),
		now:    time.Now,
	}
}

// Archive uploads body and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, source, filename string, body []byte) (string, error) {
	key := a.objectKey(source, filename)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(csvContentType),
		Metadata:      map[string]string{"source": source},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put s3://%s/%s: %w", a.bucket, key, err)
	}

	a.logger.Debug("upload archived", "key", key, "bytes", len(body))
	return key, nil
}

func (a *S3Archiver) objectKey(source, filename string) string {
	name := sanitizeSegment(path.Base(filename))
	if name == "" {
		name = defaultFilename
	}
	object := a.now().UTC().Format(timestampLayout) + "-" + name
	if a.prefix == "" {
		return path.Join(sanitizeSegment(source), object)
	}
	return path.Join(a.prefix, sanitizeSegment(source), object)
}

// sanitizeSegment keeps a path segment to a conservative character set.
func sanitizeSegment(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	return s
}
