package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/storage"
)

// ObjectStorage is the subset of storage.S3Client the S3 store needs.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, *storage.ObjectMetadata, error)
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// S3Store keeps blobs as objects under a key prefix.
type S3Store struct {
	client ObjectStorage
	prefix string
}

func NewS3Store(client ObjectStorage, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, prefix: prefix}
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte) error {
	return s.client.PutObject(ctx, s.prefix+name, data, "application/json")
}

func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, _, err := s.client.GetObject(ctx, s.prefix+name)
	if err != nil {
		if errors.Is(err, domain.ErrObjectMissing) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	return s.client.DeleteObject(ctx, s.prefix+name)
}

func (s *S3Store) List(ctx context.Context) ([]BlobInfo, error) {
	objects, err := s.client.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	var blobs []BlobInfo
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if strings.Contains(name, "/") {
			continue
		}
		if _, _, ok := ParseBlobName(name); !ok {
			continue
		}
		blobs = append(blobs, BlobInfo{Name: name, Size: obj.Size})
	}
	return blobs, nil
}
