package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"inspector.onebusaway.org/internal/logging"
)

const blobSuffix = ".json"

// BlobStore keeps one "<name>.json" object per source in a bucket.
type BlobStore struct {
	bucket *blob.Bucket
	logger *slog.Logger
}

// OpenBlob opens the bucket at url.
func OpenBlob(ctx context.Context, url string, logger *slog.Logger) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", url, err)
	}
	return NewBlobStore(bucket, logger), nil
}

// NewBlobStore wraps an open bucket. The store owns the bucket and closes
// it on Close.
func NewBlobStore(bucket *blob.Bucket, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		bucket: bucket,
		logger: logger.With(slog.String("component", "registry_blob")),
	}
}

func (s *BlobStore) Get(ctx context.Context, name string) (Source, error) {
	if err := ValidateName(name); err != nil {
		return Source{}, err
	}
	b, err := s.bucket.ReadAll(ctx, name+blobSuffix)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return Source{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Source{}, fmt.Errorf("read source %q: %w", name, err)
	}
	return decode(name, b)
}

func (s *BlobStore) Put(ctx context.Context, name string, src Source) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	b, err := encode(src)
	if err != nil {
		return err
	}
	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, name+blobSuffix, b, opts); err != nil {
		return fmt.Errorf("write source %q: %w", name, err)
	}
	logging.LogOperation(s.logger, "source_saved", slog.String("name", name))
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	err := s.bucket.Delete(ctx, name+blobSuffix)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete source %q: %w", name, err)
	}
	logging.LogOperation(s.logger, "source_deleted", slog.String("name", name))
	return true, nil
}

func (s *BlobStore) List(ctx context.Context) ([]string, error) {
	names := []string{}
	iter := s.bucket.List(&blob.ListOptions{Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		if obj.IsDir {
			continue
		}
		if name, ok := strings.CutSuffix(obj.Key, blobSuffix); ok && ValidateName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *BlobStore) Close() error { return s.bucket.Close() }
