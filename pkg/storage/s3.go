package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Scheme is the URL scheme of object locations.
const Scheme = "s3"

// s3API is the subset of *s3.Client used by S3.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 reads objects from one bucket.
type S3 struct {
	client s3API
	cfg    Config
}

// New creates an S3 reader with static credentials.
func New(cfg Config) (*S3, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return &S3{client: s3.New(s3.Options{}, opts...), cfg: cfg}, nil
}

// Bucket returns the configured bucket name.
func (s *S3) Bucket() string { return s.cfg.Bucket }

// Open returns the object body and metadata. The caller closes the body.
func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	full := s.key(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		return nil, nil, wrapS3Error(err, ErrReadFailed)
	}

	obj := &Object{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	if obj.ContentType == "" || obj.ContentType == MIMEOctetStream {
		if guess := MIMEFromExt(path.Ext(key)); guess != "" {
			obj.ContentType = guess
		}
	}
	return out.Body, obj, nil
}

// Stat returns object metadata without reading the body.
func (s *S3) Stat(ctx context.Context, key string) (*Object, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrReadFailed)
	}
	return &Object{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

// List returns the objects under prefix, sorted by key as S3 returns them.
// Returned keys are relative to the configured prefix.
func (s *S3) List(ctx context.Context, prefix string) ([]Object, error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(s.key(prefix)),
	}

	var objects []Object
	for {
		out, err := s.client.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, wrapS3Error(err, ErrListFailed)
		}
		for _, o := range out.Contents {
			objects = append(objects, Object{
				Key:  s.relative(aws.ToString(o.Key)),
				Size: aws.ToInt64(o.Size),
			})
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return objects, nil
		}
		in.ContinuationToken = out.NextContinuationToken
	}
}

// Ping checks that the bucket is reachable.
func (s *S3) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return wrapS3Error(err, ErrReadFailed)
	}
	return nil
}

// Location returns the s3:// URL of key.
func (s *S3) Location(key string) *url.URL {
	return &url.URL{Scheme: Scheme, Host: s.cfg.Bucket, Path: "/" + strings.TrimPrefix(key, "/")}
}

// Load opens the object at an s3:// location in this bucket.
func (s *S3) Load(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if u == nil || u.Scheme != Scheme {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, u)
	}
	if u.Host != s.cfg.Bucket {
		return nil, fmt.Errorf("%w: %s", ErrBucketMismatch, u.Host)
	}
	rc, _, err := s.Open(ctx, strings.TrimPrefix(u.Path, "/"))
	return rc, err
}

func (s *S3) key(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.cfg.Prefix == "" {
		return key
	}
	return s.cfg.Prefix + "/" + key
}

func (s *S3) relative(full string) string {
	if s.cfg.Prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, s.cfg.Prefix+"/")
}
