package drive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore is the disk fallback used when Drive uploads fail. Files are
// served by the API under BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Dir exposes the storage root so the HTTP server can mount a file handler.
func (l *LocalStore) Dir() string {
	return l.dir
}

// Save writes the payload under the store dir and returns its public URL.
func (l *LocalStore) Save(fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	path := filepath.Join(l.dir, filepath.Base(fileName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return l.baseURL + "/" + filepath.Base(fileName), nil
}

// Delete removes a previously saved file. Missing files are not an error.
func (l *LocalStore) Delete(fileName string) error {
	path := filepath.Join(l.dir, filepath.Base(fileName))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}
