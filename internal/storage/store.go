package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	cloud_errors "pats-cloud/pkg/errors"
)

// chunkDirName is the hidden scratch directory holding one directory per
// in-flight chunked upload.
const chunkDirName = ".chunks"

// Store owns the upload root: final files directly under it, one level of
// named subfolders, and the chunk scratch area.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-uploadId completion locks
}

// FileInfo describes a stored file as exposed to listings.
type FileInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt int64  `json:"modifiedAt"` // unix milliseconds
}

func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, chunkDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create chunk scratch dir: %w", err)
	}
	return &Store{root: abs, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) Root() string {
	return s.root
}

// FolderPath resolves a sanitized folder token to an absolute directory
// path. The empty token resolves to the root. Tokens that resolve outside
// the root, or that would collide with the scratch area, are rejected.
func (s *Store) FolderPath(folder string) (string, error) {
	if folder == "" {
		return s.root, nil
	}
	if strings.HasPrefix(folder, ".") {
		return "", cloud_errors.ErrInvalidPath
	}
	dir := filepath.Join(s.root, folder)
	if !withinRoot(s.root, dir) || filepath.Dir(dir) != s.root {
		return "", cloud_errors.ErrInvalidPath
	}
	return dir, nil
}

// EnsureFolder is FolderPath plus directory creation.
func (s *Store) EnsureFolder(folder string) (string, error) {
	dir, err := s.FolderPath(folder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create folder %s: %w", folder, err)
	}
	return dir, nil
}

// FilePath resolves folder + client-supplied name to an absolute file path,
// sanitizing the name and confining the result to the root.
func (s *Store) FilePath(folder, name string) (string, error) {
	dir, err := s.FolderPath(folder)
	if err != nil {
		return "", err
	}
	safe := SanitizeName(name)
	if safe == "" {
		return "", cloud_errors.ErrInvalidPath
	}
	p := filepath.Join(dir, safe)
	if !withinRoot(s.root, p) {
		return "", cloud_errors.ErrInvalidPath
	}
	return p, nil
}

// ListFiles returns the regular files in a folder, newest first. Subfolders
// and the scratch area are not part of a listing.
func (s *Store) ListFiles(folder string) ([]FileInfo, error) {
	dir, err := s.FolderPath(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:       e.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UnixMilli(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModifiedAt > files[j].ModifiedAt })
	return files, nil
}

// SaveStream stores the reader's bytes under a collision-safe variant of
// desiredName inside folder. The write goes to a temp file first and is
// published with an atomic rename.
func (s *Store) SaveStream(folder, desiredName string, r io.Reader) (FileInfo, error) {
	safe := SanitizeName(desiredName)
	if safe == "" {
		return FileInfo{}, fmt.Errorf("%w: unusable filename %q", cloud_errors.ErrInvalidInput, desiredName)
	}
	dir, err := s.EnsureFolder(folder)
	if err != nil {
		return FileInfo{}, err
	}
	name := ResolveCollisionSafeName(dir, safe)
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".partial*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return FileInfo{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return FileInfo{}, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return FileInfo{}, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return FileInfo{}, fmt.Errorf("publish %s: %w", name, err)
	}
	mod := time.Now()
	if st, err := os.Stat(finalPath); err == nil {
		size = st.Size()
		mod = st.ModTime()
	}
	return FileInfo{Name: name, Size: size, ModifiedAt: mod.UnixMilli()}, nil
}

// Writable probes whether the upload root still accepts new files.
func (s *Store) Writable() error {
	tmp, err := os.CreateTemp(s.root, ".healthprobe*")
	if err != nil {
		return fmt.Errorf("upload root not writable: %w", err)
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

// DeleteFile removes a stored file. Missing files report ErrNotFound.
func (s *Store) DeleteFile(folder, name string) error {
	p, err := s.FilePath(folder, name)
	if err != nil {
		return err
	}
	st, err := os.Stat(p)
	if os.IsNotExist(err) || (err == nil && st.IsDir()) {
		return cloud_errors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return cloud_errors.ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Open resolves and opens a stored file for reading. The caller closes it.
func (s *Store) Open(folder, name string) (*os.File, os.FileInfo, error) {
	p, err := s.FilePath(folder, name)
	if err != nil {
		return nil, nil, err
	}
	st, err := os.Stat(p)
	if os.IsNotExist(err) || (err == nil && !st.Mode().IsRegular()) {
		return nil, nil, cloud_errors.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, st, nil
}

// sessionLock returns the completion mutex for an uploadId, creating it on
// first use. releaseSessionLock drops the map entry once the session is gone.
func (s *Store) sessionLock(uploadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[uploadID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[uploadID] = l
	}
	return l
}

func (s *Store) releaseSessionLock(uploadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, uploadID)
}
