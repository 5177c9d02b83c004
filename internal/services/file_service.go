package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pats-cloud/internal/mirror"
	"pats-cloud/internal/storage"
	cloud_errors "pats-cloud/pkg/errors"
)

// FileService covers direct uploads, listings, downloads and deletion of
// stored files, and hands finished uploads to the mirror dispatcher.
type FileService struct {
	store    *storage.Store
	mirror   *mirror.Dispatcher
	maxBytes int64
}

func NewFileService(store *storage.Store, mirror *mirror.Dispatcher, maxBytes int64) *FileService {
	return &FileService{store: store, mirror: mirror, maxBytes: maxBytes}
}

func (s *FileService) List(folder string) ([]storage.FileInfo, error) {
	return s.store.ListFiles(storage.SanitizeFolder(folder))
}

// Save stores one directly-uploaded file and queues its mirror copy.
// declaredSize is the multipart part size; anything over the per-file limit
// is rejected before a byte is written.
func (s *FileService) Save(folder, name string, declaredSize int64, r io.Reader) (storage.FileInfo, error) {
	if s.maxBytes > 0 && declaredSize > s.maxBytes {
		return storage.FileInfo{}, fmt.Errorf("%w: %s exceeds %d bytes", cloud_errors.ErrTooLarge, name, s.maxBytes)
	}
	folder = storage.SanitizeFolder(folder)
	info, err := s.store.SaveStream(folder, name, r)
	if err != nil {
		return storage.FileInfo{}, err
	}
	s.dispatchMirror(folder, info.Name)
	return info, nil
}

func (s *FileService) Delete(folder, name string) error {
	return s.store.DeleteFile(storage.SanitizeFolder(folder), name)
}

// Open resolves and opens a stored file for serving.
func (s *FileService) Open(folder, name string) (*os.File, os.FileInfo, error) {
	return s.store.Open(storage.SanitizeFolder(folder), name)
}

func (s *FileService) Mirrored() bool {
	return s.mirror.IsConfigured()
}

func (s *FileService) ListFolders() ([]string, error) {
	return s.store.ListFolders()
}

func (s *FileService) CreateFolder(name string) (string, error) {
	return s.store.CreateFolder(name)
}

func (s *FileService) DiskUsage() (storage.Usage, error) {
	return s.store.DiskUsage()
}

// Health reports whether the upload root is still usable.
func (s *FileService) Health() error {
	return s.store.Writable()
}

func (s *FileService) dispatchMirror(folder, name string) {
	dir, err := s.store.FolderPath(folder)
	if err != nil {
		return
	}
	s.mirror.Dispatch(filepath.Join(dir, name), folder, name, ContentTypeFor(name))
}
