package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	cloud_errors "pats-cloud/pkg/errors"

	"github.com/google/uuid"
)

// Manifest is the single source of truth for a chunked upload session,
// persisted as meta.json inside the session's scratch directory.
type Manifest struct {
	UploadID    string    `json:"uploadId"`
	Filename    string    `json:"filename"`
	TotalSize   int64     `json:"size"`
	ChunkSize   int64     `json:"chunkSize"`
	TotalChunks int       `json:"totalChunks"`
	Folder      string    `json:"folder,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

const manifestName = "meta.json"

// uploadIDPattern matches ids this store generates; anything else from the
// wire is treated as an unknown session.
var uploadIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// InitSession validates the declared manifest, allocates a scratch
// directory under a fresh uploadId and persists the manifest. The id
// combines a random UUID with a timestamp component.
func (s *Store) InitSession(filename string, totalSize, chunkSize int64, totalChunks int, folder string) (string, error) {
	safe := SanitizeName(filename)
	if safe == "" || totalSize <= 0 || chunkSize <= 0 || totalChunks <= 0 {
		return "", fmt.Errorf("%w: missing fields", cloud_errors.ErrInvalidInput)
	}
	folder = SanitizeFolder(folder)
	if _, err := s.FolderPath(folder); err != nil {
		return "", err
	}

	uploadID := fmt.Sprintf("%s-%s", uuid.NewString(), strconv.FormatInt(time.Now().UnixNano(), 36))
	dir := filepath.Join(s.root, chunkDirName, uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}

	m := Manifest{
		UploadID:    uploadID,
		Filename:    safe,
		TotalSize:   totalSize,
		ChunkSize:   chunkSize,
		TotalChunks: totalChunks,
		Folder:      folder,
		CreatedAt:   time.Now(),
	}
	if err := s.writeManifest(dir, m); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return uploadID, nil
}

// PutChunk persists one chunk blob, named by its index, inside the session
// scratch directory. Re-uploading an index replaces the previous blob; the
// replacement is published with a rename so concurrent writers to the same
// index leave one intact blob behind.
func (s *Store) PutChunk(uploadID string, index int, body io.Reader) (int64, error) {
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(filepath.Join(dir, manifestName)); os.IsNotExist(err) {
		return 0, cloud_errors.ErrUploadNotFound
	}
	if index < 0 {
		return 0, fmt.Errorf("%w: invalid chunk index %d", cloud_errors.ErrInvalidInput, index)
	}

	tmp, err := os.CreateTemp(dir, strconv.Itoa(index)+".tmp*")
	if err != nil {
		return 0, fmt.Errorf("create chunk temp: %w", err)
	}
	size, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write chunk %d: %w", index, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("close chunk %d: %w", index, err)
	}
	if size == 0 {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("%w: empty chunk body", cloud_errors.ErrInvalidInput)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, strconv.Itoa(index))); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("publish chunk %d: %w", index, err)
	}
	return size, nil
}

// AbortSession discards a session's scratch directory. Best effort and
// idempotent: aborting an unknown or already-aborted session succeeds.
func (s *Store) AbortSession(uploadID string) {
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return
	}
	lock := s.sessionLock(uploadID)
	lock.Lock()
	defer lock.Unlock()
	os.RemoveAll(dir)
	s.releaseSessionLock(uploadID)
}

// SessionManifest loads the manifest of one in-flight session.
func (s *Store) SessionManifest(uploadID string) (Manifest, error) {
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return Manifest{}, err
	}
	return s.loadManifest(dir)
}

// Sessions returns the manifests of every in-flight session. Directories
// without a readable manifest are skipped.
func (s *Store) Sessions() []Manifest {
	entries, err := os.ReadDir(filepath.Join(s.root, chunkDirName))
	if err != nil {
		return nil
	}
	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := s.loadManifest(filepath.Join(s.root, chunkDirName, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (s *Store) sessionDir(uploadID string) (string, error) {
	if uploadID == "" || !uploadIDPattern.MatchString(uploadID) {
		return "", cloud_errors.ErrUploadNotFound
	}
	dir := filepath.Join(s.root, chunkDirName, uploadID)
	if !withinRoot(s.root, dir) {
		return "", cloud_errors.ErrUploadNotFound
	}
	return dir, nil
}

func (s *Store) writeManifest(dir string, m Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *Store) loadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if os.IsNotExist(err) {
		return Manifest{}, cloud_errors.ErrUploadNotFound
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
