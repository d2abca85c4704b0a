package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore keeps staged bytes on local disk: a flat temp area for files
// whose owning message does not exist yet, and a board/topic layout for
// promoted attachments.
type FileStore struct {
	tempRoot  string
	finalRoot string
}

func NewFileStore(tempRoot, finalRoot string) (*FileStore, error) {
	t := filepath.Clean(tempRoot)
	f := filepath.Clean(finalRoot)
	for _, dir := range []string{t, f} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &FileStore{tempRoot: t, finalRoot: f}, nil
}

// SaveTemp writes an upload into the temp area under a random name and
// returns its absolute path.
func (s *FileStore) SaveTemp(data io.Reader) (string, error) {
	path := filepath.Join(s.tempRoot, uuid.NewString())

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		os.Remove(path) // best effort
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

// Exists reports whether the temp file is still on disk. Entries whose
// file vanished are treated as silently gone, not as errors.
func (s *FileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DeleteTemp removes a staged file. Already-gone files are not an error.
func (s *FileStore) DeleteTemp(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete temp file: %w", err)
	}
	return nil
}

// Promote moves a staged file into the permanent layout for its message
// and returns the relative path stored on the attachment row.
func (s *FileStore) Promote(tempPath, board string, topicId, messageId int64, originalName string) (string, error) {
	ext := filepath.Clean(filepath.Ext(originalName))
	filename := fmt.Sprintf("%d_%s%s", messageId, uuid.NewString()[:8], ext)
	relativePath := filepath.Join(board, fmt.Sprintf("%d", topicId), filename)
	fullPath := filepath.Join(s.finalRoot, relativePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		return "", fmt.Errorf("failed to move staged file: %w", err)
	}
	return relativePath, nil
}

// Open reads a promoted attachment by its relative path.
func (s *FileStore) Open(relativePath string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.finalRoot, relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("attachment not found: %w", err)
		}
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return f, nil
}
