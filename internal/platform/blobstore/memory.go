package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type storedBlob struct {
	metadata BlobMetadata
	content  []byte
}

// MemoryStore is an in-memory BlobStore for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]storedBlob)}
}

func (s *MemoryStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if err := validateMeta(&meta); err != nil {
		return nil, err
	}

	data, err := readCapped(content)
	if err != nil {
		return nil, err
	}
	meta.Size = int64(len(data))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[meta.ID] = storedBlob{metadata: meta, content: data}

	return &meta, nil
}

func (s *MemoryStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[id]
	if !ok {
		return nil, nil, ErrBlobNotFound
	}

	meta := blob.metadata
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}
