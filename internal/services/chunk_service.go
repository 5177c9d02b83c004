package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"pats-cloud/internal/mirror"
	"pats-cloud/internal/storage"
	"pats-cloud/pkg/logger"
)

// ChunkService drives the chunked-upload lifecycle: init, out-of-order
// chunk writes, abort, reassembly and the expiry sweep.
type ChunkService struct {
	store  *storage.Store
	mirror *mirror.Dispatcher
	logger *logger.Logger
	ttl    time.Duration // 0 disables the sweep
}

func NewChunkService(store *storage.Store, mirror *mirror.Dispatcher, l *logger.Logger, ttl time.Duration) *ChunkService {
	return &ChunkService{store: store, mirror: mirror, logger: l, ttl: ttl}
}

func (s *ChunkService) Init(filename string, size, chunkSize int64, totalChunks int, folder string) (string, error) {
	return s.store.InitSession(filename, size, chunkSize, totalChunks, folder)
}

func (s *ChunkService) Put(uploadID string, index int, body io.Reader) (int64, error) {
	return s.store.PutChunk(uploadID, index, body)
}

func (s *ChunkService) Abort(uploadID string) {
	s.store.AbortSession(uploadID)
}

// Complete reassembles the session and queues the mirror copy of the
// published file. The mirror outcome never reaches the caller.
func (s *ChunkService) Complete(uploadID string) (storage.FileInfo, error) {
	m, err := s.store.SessionManifest(uploadID)
	if err != nil {
		return storage.FileInfo{}, err
	}

	info, err := s.store.Complete(uploadID)
	if err != nil {
		return storage.FileInfo{}, err
	}

	if dir, derr := s.store.FolderPath(m.Folder); derr == nil {
		s.mirror.Dispatch(filepath.Join(dir, info.Name), m.Folder, info.Name, ContentTypeFor(info.Name))
	}
	return info, nil
}

func (s *ChunkService) Mirrored() bool {
	return s.mirror.IsConfigured()
}

// StartSweeper purges chunk sessions older than the TTL until ctx is done.
// No-op when the TTL is zero.
func (s *ChunkService) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Infof("Swept %d expired chunk sessions", n)
				}
			}
		}
	}()
}

// Sweep aborts every session whose manifest is older than the TTL and
// returns how many were purged. A sweep racing a completion resolves like
// abort-vs-complete: the loser fails cleanly on the missing manifest.
func (s *ChunkService) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-s.ttl)
	n := 0
	for _, m := range s.store.Sessions() {
		if m.CreatedAt.Before(cutoff) {
			s.store.AbortSession(m.UploadID)
			n++
		}
	}
	return n
}
