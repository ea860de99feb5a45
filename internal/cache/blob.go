// Package cache persists extracted documents, their embeddings and generated
// questions as one serialized blob per (document, artifact kind), on the
// local file system or in an S3 bucket.
package cache

import (
	"context"
	"strings"
)

// Artifact kinds stored per document key.
const (
	KindContent   = "content"
	KindChunks    = "chunks"
	KindQuestions = "questions"
)

// BlobStore is a flat namespace of named byte blobs.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
	// Get returns domain.ErrCacheMiss when name does not exist.
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]BlobInfo, error)
}

// BlobInfo describes a stored blob
type BlobInfo struct {
	Name string
	Size int64
}

// BlobName is the blob holding artifact kind for key.
func BlobName(key, kind string) string {
	return key + "." + kind + ".json"
}

// ParseBlobName splits a blob name into key and kind. ok is false for names
// this package did not write.
func ParseBlobName(name string) (key, kind string, ok bool) {
	trimmed, found := strings.CutSuffix(name, ".json")
	if !found {
		return "", "", false
	}
	dot := strings.LastIndexByte(trimmed, '.')
	if dot <= 0 {
		return "", "", false
	}
	key, kind = trimmed[:dot], trimmed[dot+1:]
	switch kind {
	case KindContent, KindChunks, KindQuestions:
		return key, kind, true
	}
	return "", "", false
}
