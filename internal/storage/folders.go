package storage

import (
	"fmt"
	"os"
	"sort"
	"strings"

	cloud_errors "pats-cloud/pkg/errors"
)

// ListFolders returns the named subfolders under the root, sorted. The
// scratch area and anything dot-prefixed stay hidden.
func (s *Store) ListFolders() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read upload root: %w", err)
	}
	folders := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folders = append(folders, e.Name())
	}
	sort.Strings(folders)
	return folders, nil
}

// CreateFolder creates a named subfolder and returns its sanitized name.
// Creating an existing folder succeeds.
func (s *Store) CreateFolder(name string) (string, error) {
	safe := SanitizeFolder(name)
	if safe == "" {
		return "", fmt.Errorf("%w: invalid folder name", cloud_errors.ErrInvalidInput)
	}
	if _, err := s.EnsureFolder(safe); err != nil {
		return "", err
	}
	return safe, nil
}
