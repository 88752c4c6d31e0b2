package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore keeps blobs on the local filesystem. Content lives at
// <dir>/<id> with a <dir>/<id>.json metadata sidecar.
type FileStore struct {
	dir string
}

// NewFileStore creates the storage directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) contentPath(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *FileStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if err := validateMeta(&meta); err != nil {
		return nil, err
	}

	data, err := readCapped(content)
	if err != nil {
		return nil, err
	}
	meta.Size = int64(len(data))

	if err := os.WriteFile(s.contentPath(meta.ID), data, 0o644); err != nil {
		return nil, fmt.Errorf("write blob content: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal blob metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), metaJSON, 0o644); err != nil {
		os.Remove(s.contentPath(meta.ID))
		return nil, fmt.Errorf("write blob metadata: %w", err)
	}

	return &meta, nil
}

func (s *FileStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	metaJSON, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("read blob metadata: %w", err)
	}

	meta := &BlobMetadata{}
	if err := json.Unmarshal(metaJSON, meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshal blob metadata: %w", err)
	}

	f, err := os.Open(s.contentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("open blob content: %w", err)
	}

	return f, meta, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if _, err := os.Stat(s.metaPath(id)); os.IsNotExist(err) {
		return ErrBlobNotFound
	}
	if err := os.Remove(s.contentPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob content: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		return fmt.Errorf("remove blob metadata: %w", err)
	}
	return nil
}
