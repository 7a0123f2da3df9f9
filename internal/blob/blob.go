// Package blob stores uploaded images in an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"helpcenter/api/internal/util"
)

const MaxImageBytes = 5 << 20

var (
	ErrUnsupportedType = errors.New("only png, jpeg, gif, webp and svg images are accepted")
	ErrTooLarge        = fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	ErrUnknownFolder   = errors.New("unknown upload folder")
)

var imageTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// Folders group uploads the same way the console does.
var Folders = map[string]bool{"profiles": true, "companies": true, "articles": true}

type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, params url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Store struct {
	api     objectAPI
	bucket  string
	linkTTL time.Duration
}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// New connects to the object store and creates the bucket if it is missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	s := newStore(client, cfg.Bucket)
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(api objectAPI, bucket string) *Store {
	return &Store{api: api, bucket: bucket, linkTTL: 7 * 24 * time.Hour}
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// PutImage stores an image under <tenant>/<folder>/ and returns a signed link.
func (s *Store) PutImage(ctx context.Context, tenantID, folder, filename, contentType string, size int64, r io.Reader) (Object, error) {
	if !Folders[folder] {
		return Object{}, fmt.Errorf("%w: %q", ErrUnknownFolder, folder)
	}
	ext, ok := imageTypes[strings.ToLower(contentType)]
	if !ok {
		return Object{}, ErrUnsupportedType
	}
	if size <= 0 || size > MaxImageBytes {
		return Object{}, ErrTooLarge
	}

	key := path.Join(tenantID, folder, util.NewID("")+"-"+cleanName(filename, ext))
	info, err := s.api.PutObject(ctx, s.bucket, key, io.LimitReader(r, size), size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}
	link, err := s.URL(ctx, key)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: link, ContentType: contentType, Size: info.Size}, nil
}

// URL returns a presigned download link for key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, s.linkTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func cleanName(name, ext string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "image"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return base + ext
}
