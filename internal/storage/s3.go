package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// EnvS3Endpoint overrides the object-store endpoint, e.g. for MinIO or
// another S3-compatible service. Credentials come from the standard AWS
// environment chain.
const EnvS3Endpoint = "PBICLI_S3_ENDPOINT"

const defaultS3Endpoint = "s3.amazonaws.com"

// S3Backend stores cache data under a bucket/prefix in an S3-compatible
// object store. Directories are virtual: they exist exactly when at least
// one object lives under their prefix.
type S3Backend struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3BackendFromURI builds a backend for an s3://bucket/prefix cache
// folder. The client uses the AWS environment credential chain and the
// endpoint from PBICLI_S3_ENDPOINT (default s3.amazonaws.com).
func NewS3BackendFromURI(uri string) (*S3Backend, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	endpoint, secure := endpointFromEnv(os.Getenv(EnvS3Endpoint))
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	return NewS3Backend(client, bucket, prefix), nil
}

// NewS3Backend wraps an existing client. Tests and callers with bespoke
// client configuration construct backends through here.
func NewS3Backend(client *minio.Client, bucket, prefix string) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ParseS3URI splits s3://bucket/prefix into its bucket and prefix parts.
// The prefix may be empty; the bucket may not.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", fmt.Errorf("not an s3 URI: %q", uri)
	}

	rest := strings.TrimPrefix(uri, s3Scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 URI %q is missing a bucket", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// endpointFromEnv interprets the endpoint override. A plain host is used
// over TLS; an explicit http:// scheme disables TLS for local object stores.
func endpointFromEnv(value string) (endpoint string, secure bool) {
	switch {
	case value == "":
		return defaultS3Endpoint, true
	case strings.HasPrefix(value, "http://"):
		return strings.TrimPrefix(value, "http://"), false
	case strings.HasPrefix(value, "https://"):
		return strings.TrimPrefix(value, "https://"), true
	default:
		return value, true
	}
}

// key maps a backend-relative path onto the object key under the prefix.
func (b *S3Backend) key(p string) string {
	if b.prefix == "" {
		return strings.Trim(p, "/")
	}
	if p == "" {
		return b.prefix
	}
	return b.prefix + "/" + strings.Trim(p, "/")
}

// ReadFile downloads the object at path.
func (b *S3Backend) ReadFile(p string) ([]byte, error) {
	ctx := context.Background()

	obj, err := b.client.GetObject(ctx, b.bucket, b.key(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, b.readErr(p, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.readErr(p, err)
	}
	return data, nil
}

// readErr translates a download failure: a missing key matches
// fs.ErrNotExist, everything else is a backend availability problem.
func (b *S3Backend) readErr(p string, err error) error {
	if translated := translateS3(err); errors.Is(translated, fs.ErrNotExist) {
		return &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	return unavailable("read", p, err)
}

// WriteFile uploads data at path. Object PUTs are atomic, so no staging is
// needed; parents are virtual and need no creation.
func (b *S3Backend) WriteFile(p string, data []byte) error {
	ctx := context.Background()

	_, err := b.client.PutObject(ctx, b.bucket, b.key(p),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return unavailable("write", p, err)
	}
	return nil
}

// ListDirs returns the virtual child directories under path: the common
// prefixes of a non-recursive listing.
func (b *S3Backend) ListDirs(p string) ([]string, error) {
	ctx := context.Background()

	prefix := b.key(p)
	if prefix != "" {
		prefix += "/"
	}

	var dirs []string
	for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if object.Err != nil {
			if errors.Is(translateS3(object.Err), fs.ErrNotExist) {
				return nil, nil
			}
			return nil, unavailable("list", p, object.Err)
		}

		// Common prefixes carry a trailing slash; plain objects are files.
		if !strings.HasSuffix(object.Key, "/") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(object.Key, prefix), "/")
		if name != "" {
			dirs = append(dirs, name)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// RemoveAll deletes every object under path using the batch removal API.
// A prefix with no objects is a no-op.
func (b *S3Backend) RemoveAll(p string) error {
	ctx := context.Background()

	prefix := b.key(p)
	if prefix != "" {
		prefix += "/"
	}

	objectsCh := make(chan minio.ObjectInfo, 100) //nolint:mnd // Listing buffer.
	var listErr error
	go func() {
		defer close(objectsCh)
		for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				listErr = object.Err
				return
			}
			objectsCh <- object
		}
	}()

	for removeErr := range b.client.RemoveObjects(ctx, b.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if removeErr.Err != nil {
			return unavailable("remove", p, removeErr.Err)
		}
	}

	if listErr != nil && !errors.Is(translateS3(listErr), fs.ErrNotExist) {
		return unavailable("remove", p, listErr)
	}
	return nil
}

// Exists reports whether path exists as an object or as a virtual directory
// (at least one object under its prefix). Neither case downloads a payload.
func (b *S3Backend) Exists(p string) (bool, error) {
	ctx := context.Background()

	_, err := b.client.StatObject(ctx, b.bucket, b.key(p), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if !errors.Is(translateS3(err), fs.ErrNotExist) {
		return false, unavailable("stat", p, err)
	}

	// Not an object; probe for a virtual directory with a single-key listing.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	object, ok := <-b.client.ListObjects(listCtx, b.bucket, minio.ListObjectsOptions{
		Prefix:    b.key(p) + "/",
		Recursive: false,
		MaxKeys:   1,
	})
	if !ok {
		return false, nil
	}
	if object.Err != nil {
		if errors.Is(translateS3(object.Err), fs.ErrNotExist) {
			return false, nil
		}
		return false, unavailable("stat", p, object.Err)
	}
	return true, nil
}

// Join combines path elements with forward slashes.
func (b *S3Backend) Join(parts ...string) string {
	return path.Join(parts...)
}

// String identifies the backend in logs.
func (b *S3Backend) String() string {
	if b.prefix == "" {
		return fmt.Sprintf("s3(%s)", b.bucket)
	}
	return fmt.Sprintf("s3(%s/%s)", b.bucket, b.prefix)
}

// translateS3 maps object-store error codes onto stdlib fs errors.
func translateS3(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fs.ErrNotExist
	}
	return err
}

var _ Backend = (*S3Backend)(nil)
