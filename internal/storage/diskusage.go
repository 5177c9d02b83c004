package storage

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"syscall"
)

// Usage reports the capacity of the volume holding the upload root and how
// much of it the uploads themselves occupy.
type Usage struct {
	TotalBytes       int64 `json:"totalBytes"`
	FreeBytes        int64 `json:"freeBytes"`
	UsedBytesUploads int64 `json:"usedBytesUploads"`
}

// DiskUsage combines Statfs volume totals with a recursive size walk of the
// upload root. Chunk scratch blobs count toward usage; they occupy the
// volume like anything else.
func (s *Store) DiskUsage() (Usage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.root, &stat); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", s.root, err)
	}

	var used int64
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // entry vanished mid-walk
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				used += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return Usage{}, fmt.Errorf("walk upload root: %w", err)
	}

	return Usage{
		TotalBytes:       int64(stat.Blocks) * int64(stat.Bsize),
		FreeBytes:        int64(stat.Bavail) * int64(stat.Bsize),
		UsedBytesUploads: used,
	}, nil
}
