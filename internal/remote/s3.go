package remote

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/backmassage/fishframes/internal/logging"
)

// S3Config holds the object store connection settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string // Key prefix that plays the role of the remote root.
}

// S3 is a Gateway backed by an S3-compatible object store. Directories are
// key prefixes ending in "/".
type S3 struct {
	Mirror
	client *minio.Client
	bucket string
	prefix string
	log    *logging.Logger
}

// NewS3 connects to the object store. No request is made until the first
// operation.
func NewS3(localRoot string, cfg S3Config, log *logging.Logger) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}
	return &S3{
		Mirror: NewMirror(localRoot),
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log,
	}, nil
}

// key maps rel to an object key below the prefix.
func (s *S3) key(rel string) string {
	rel = strings.Trim(rel, "/")
	switch {
	case s.prefix == "":
		return rel
	case rel == "":
		return s.prefix
	default:
		return s.prefix + "/" + rel
	}
}

// List lists the prefix rel/. When nothing lives below it and dirsOnly is
// unset, rel is checked as a single object.
func (s *S3) List(ctx context.Context, rel string, dirsOnly bool) ([]string, error) {
	if err := CheckRel(rel); err != nil {
		return nil, err
	}
	dir := s.key(rel)
	if dir != "" {
		dir += "/"
	}

	names := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: dir}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", rel, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, dir)
		isDir := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" || (dirsOnly && !isDir) {
			continue
		}
		names = append(names, name)
	}
	if len(names) > 0 || dirsOnly || rel == "" {
		return names, nil
	}

	if _, err := s.client.StatObject(ctx, s.bucket, s.key(rel), minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return names, nil
		}
		return nil, fmt.Errorf("stat %s: %w", rel, err)
	}
	return []string{path.Base(rel)}, nil
}

// Download fetches the object at rel into the local mirror.
func (s *S3) Download(ctx context.Context, rel string) error {
	if err := CheckRel(rel); err != nil {
		return err
	}
	s.log.Debug("s3 get %s/%s", s.bucket, s.key(rel))
	err := s.client.FGetObject(ctx, s.bucket, s.key(rel), s.LocalPath(rel), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("download %s: %w", rel, ErrNotFound)
		}
		return fmt.Errorf("download %s: %w", rel, err)
	}
	return nil
}

// Upload puts the local file at rel, or every file below the local
// directory rel, keeping relative keys.
func (s *S3) Upload(ctx context.Context, rel string) error {
	if err := CheckRel(rel); err != nil {
		return err
	}
	root := s.LocalPath(rel)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("upload %s: %w", rel, err)
	}
	if !info.IsDir() {
		return s.put(ctx, rel, root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return ctx.Err()
		}
		sub, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return s.put(ctx, path.Join(rel, filepath.ToSlash(sub)), p)
	})
}

func (s *S3) put(ctx context.Context, rel, local string) error {
	s.log.Debug("s3 put %s/%s", s.bucket, s.key(rel))
	_, err := s.client.FPutObject(ctx, s.bucket, s.key(rel), local, minio.PutObjectOptions{
		ContentType: contentType(local),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", rel, err)
	}
	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".csv":
		return "text/csv"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
