package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage stores and serves objects.
type Storage interface {
	Put(ctx context.Context, r io.Reader, opts ...Option) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Object describes a stored object.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Config holds S3-compatible storage settings.
type Config struct {
	Bucket        string `env:"S3_BUCKET" yaml:"bucket"`
	AccessKey     string `env:"S3_ACCESS_KEY" yaml:"access_key"`
	SecretKey     string `env:"S3_SECRET_KEY" yaml:"secret_key"`
	Endpoint      string `env:"S3_ENDPOINT" yaml:"endpoint"`
	Region        string `env:"S3_REGION" envDefault:"us-east-1" yaml:"region"`
	PathStyle     bool   `env:"S3_PATH_STYLE" yaml:"path_style"`
	MaxObjectSize int64  `env:"S3_MAX_OBJECT_SIZE" envDefault:"52428800" yaml:"max_object_size"`
}

// Option configures a Put.
type Option func(*putOptions)

type putOptions struct {
	key         string
	prefix      string
	filename    string
	contentType string
}

// WithKey stores the object under an explicit key.
func WithKey(key string) Option {
	return func(o *putOptions) { o.key = key }
}

// WithPrefix places generated keys under prefix.
func WithPrefix(prefix string) Option {
	return func(o *putOptions) { o.prefix = prefix }
}

// WithFilename keeps the extension of the client filename in generated keys.
func WithFilename(name string) Option {
	return func(o *putOptions) { o.filename = name }
}

// WithContentType skips content sniffing.
func WithContentType(ct string) Option {
	return func(o *putOptions) { o.contentType = ct }
}

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// buildKey returns {prefix}/{uuid}{ext}, with every client-supplied part
// reduced to a safe character set.
func buildKey(o putOptions) string {
	if o.key != "" {
		return o.key
	}

	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(o.filename, `\`, "/"))))
	ext = unsafeSegment.ReplaceAllString(ext, "")
	if len(ext) > 10 || ext == "." {
		ext = ""
	}

	name := uuid.NewString() + ext
	prefix := strings.ReplaceAll(strings.Trim(o.prefix, " /"), "..", "")
	prefix = unsafeSegment.ReplaceAllString(prefix, "_")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
