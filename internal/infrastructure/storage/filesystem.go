package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStore writes export artifacts to a local directory, one JSON
// file per video.
type FilesystemStore struct {
	dir string
}

// NewFilesystemStore creates the exports directory if needed.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	return &FilesystemStore{dir: dir}, nil
}

func (fs *FilesystemStore) Save(_ context.Context, videoID string, data []byte) (string, error) {
	path := fs.path(videoID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func (fs *FilesystemStore) Location(_ context.Context, videoID string) (string, error) {
	path := fs.path(videoID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

func (fs *FilesystemStore) path(videoID string) string {
	return filepath.Join(fs.dir, videoID+".json")
}
