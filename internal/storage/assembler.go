package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	cloud_errors "pats-cloud/pkg/errors"
)

// Complete reassembles a chunked upload session into its final file.
//
// Chunks are consumed in strict ascending index order; a missing index
// aborts the write and removes the partial output, so a reassembled file is
// only ever observable in full. The output is written next to its final
// location and published with an atomic rename, after which the scratch
// directory is purged. Holds the session's completion lock for the whole
// operation, so two completions (or a completion and an abort) for the same
// uploadId serialize instead of racing.
func (s *Store) Complete(uploadID string) (FileInfo, error) {
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return FileInfo{}, err
	}

	lock := s.sessionLock(uploadID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.loadManifest(dir)
	if err != nil {
		return FileInfo{}, err
	}

	destDir, err := s.EnsureFolder(m.Folder)
	if err != nil {
		return FileInfo{}, err
	}
	name := ResolveCollisionSafeName(destDir, m.Filename)
	finalPath := filepath.Join(destDir, name)
	partialPath := finalPath + ".partial"

	out, err := os.Create(partialPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("create output: %w", err)
	}

	abort := func() {
		out.Close()
		os.Remove(partialPath)
	}

	for i := 0; i < m.TotalChunks; i++ {
		chunk, err := os.Open(filepath.Join(dir, strconv.Itoa(i)))
		if os.IsNotExist(err) {
			abort()
			return FileInfo{}, fmt.Errorf("%w", &cloud_errors.MissingChunkError{Index: i})
		}
		if err != nil {
			abort()
			return FileInfo{}, fmt.Errorf("open chunk %d: %w", i, err)
		}
		if _, err := io.Copy(out, chunk); err != nil {
			chunk.Close()
			abort()
			return FileInfo{}, fmt.Errorf("append chunk %d: %w", i, err)
		}
		chunk.Close()
	}

	if err := out.Sync(); err != nil {
		abort()
		return FileInfo{}, fmt.Errorf("sync output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(partialPath)
		return FileInfo{}, fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(partialPath, finalPath); err != nil {
		os.Remove(partialPath)
		return FileInfo{}, fmt.Errorf("publish output: %w", err)
	}

	// The file is already published; a leftover scratch dir is the
	// sweeper's problem, not the uploader's.
	_ = os.RemoveAll(dir)
	s.releaseSessionLock(uploadID)

	st, err := os.Stat(finalPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat output: %w", err)
	}
	return FileInfo{Name: name, Size: st.Size(), ModifiedAt: st.ModTime().UnixMilli()}, nil
}
