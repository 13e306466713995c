// Package blob stores uploaded files in an S3 compatible bucket.
package blob

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/autom8ter/ideabase/errors"
	"github.com/autom8ter/ideabase/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config configures the blob store
type Config struct {
	// Endpoint is the host (and optional port) of the S3 compatible service. The store is disabled when empty.
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
	Bucket    string `json:"bucket" validate:"required"`
	// PublicBaseURL is the base of public object urls. It defaults to the endpoint.
	PublicBaseURL string `json:"public_base_url"`
	// MaxFileSizeMB caps the size of a single upload
	MaxFileSizeMB int64 `json:"max_file_size_mb" validate:"gte=0"`
}

// MaxFileSize returns the upload size limit in bytes
func (c Config) MaxFileSize() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// Object is an entry in a bucket listing
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Store puts and signs objects in a single bucket
type Store struct {
	client *minio.Client
	cfg    Config
}

// errDisabled is returned by every operation on a store without an endpoint
func errDisabled() error {
	return errors.New(errors.Unavailable, "blob storage is not configured")
}

// New creates a blob store. No connection is made until the first operation.
func New(cfg Config) (*Store, error) {
	if err := util.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	s := &Store{cfg: cfg}
	if cfg.PublicBaseURL == "" && cfg.Endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		s.cfg.PublicBaseURL = scheme + "://" + cfg.Endpoint
	}
	s.cfg.PublicBaseURL = strings.TrimSuffix(s.cfg.PublicBaseURL, "/")
	if cfg.Endpoint == "" {
		return s, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to create blob client")
	}
	s.client = client
	return s, nil
}

// Enabled reports whether the store has an endpoint
func (s *Store) Enabled() bool {
	return s.client != nil
}

// Bucket returns the bucket objects are stored in
func (s *Store) Bucket() string {
	return s.cfg.Bucket
}

// Config returns the store's configuration
func (s *Store) Config() Config {
	return s.cfg
}

// EnsureBucket creates the bucket if it does not exist
func (s *Store) EnsureBucket(ctx context.Context) error {
	if !s.Enabled() {
		return errDisabled()
	}
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.Unavailable, "failed to check bucket %s", s.cfg.Bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to create bucket %s", s.cfg.Bucket)
	}
	return nil
}

// Put uploads the object and returns its public url
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if !s.Enabled() {
		return "", errDisabled()
	}
	if max := s.cfg.MaxFileSize(); max > 0 && size > max {
		return "", errors.New(errors.Validation, "file exceeds the %dMB limit", s.cfg.MaxFileSizeMB)
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrap(err, errors.Internal, "failed to upload %s", key)
	}
	return s.PublicURL(key), nil
}

// Delete removes the object
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return errDisabled()
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to delete %s", key)
	}
	return nil
}

// List lists objects under the prefix
func (s *Store) List(ctx context.Context, prefix string) ([]Object, error) {
	if !s.Enabled() {
		return nil, errDisabled()
	}
	var objects []Object
	for obj := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.Internal, "failed to list %s", prefix)
		}
		objects = append(objects, Object{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return objects, nil
}

// SignedURL returns a presigned download url for the object valid for ttl
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", errDisabled()
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, ttl, url.Values{})
	if err != nil {
		return "", errors.Wrap(err, errors.Internal, "failed to sign %s", key)
	}
	return u.String(), nil
}

// PublicURL returns the public url of the object: {public base}/{bucket}/{escaped key}
func (s *Store) PublicURL(key string) string {
	return s.cfg.PublicBaseURL + "/" + s.cfg.Bucket + "/" + escapeKey(key)
}

// KeyFromURL returns the object key of a public url produced by this store. It returns false for urls that
// point elsewhere.
func (s *Store) KeyFromURL(raw string) (string, bool) {
	prefix := s.cfg.PublicBaseURL + "/" + s.cfg.Bucket + "/"
	if s.cfg.PublicBaseURL == "" || !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(raw, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
