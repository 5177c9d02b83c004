package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pats-cloud/internal/mirror"
	"pats-cloud/internal/storage"
	"pats-cloud/pkg/logger"
)

type recordingProvider struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Upload(ctx context.Context, sourcePath, key, contentType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("backend unreachable")
	}
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingProvider) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func newChunkFixture(t *testing.T, provider mirror.Provider, ttl time.Duration) (*ChunkService, *storage.Store, *mirror.Dispatcher) {
	t.Helper()
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	l := logger.New(logger.DevelopmentMode)
	d := mirror.NewDispatcher(provider, "backup", l)
	return NewChunkService(store, d, l, ttl), store, d
}

func TestCompleteDispatchesMirror(t *testing.T) {
	p := &recordingProvider{}
	svc, _, d := newChunkFixture(t, p, 0)

	id, err := svc.Init("notes.txt", 5, 5, 1, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Put(id, 0, strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}
	info, err := svc.Complete(id)
	if err != nil {
		t.Fatal(err)
	}
	d.Close() // drain the queue so the upload is observable

	keys := p.recorded()
	if len(keys) != 1 || keys[0] != "backup/docs/"+info.Name {
		t.Fatalf("mirror keys = %v", keys)
	}
}

func TestMirrorFailureInvisibleToUploader(t *testing.T) {
	p := &recordingProvider{fail: true}
	svc, store, d := newChunkFixture(t, p, 0)

	id, err := svc.Init("notes.txt", 5, 5, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Put(id, 0, strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}

	info, err := svc.Complete(id)
	if err != nil {
		t.Fatalf("mirror failure leaked into completion: %v", err)
	}
	d.Close()

	// The stored file is intact regardless of the mirror outcome.
	got, err := os.ReadFile(filepath.Join(store.Root(), info.Name))
	if err != nil || string(got) != "hello" {
		t.Fatalf("stored file: %q, %v", got, err)
	}
}

func TestSweepPurgesExpiredSessions(t *testing.T) {
	svc, store, _ := newChunkFixture(t, nil, time.Nanosecond)

	id, err := svc.Init("old.bin", 10, 5, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	if n := svc.Sweep(); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	if _, err := store.SessionManifest(id); err == nil {
		t.Fatal("expired session survived the sweep")
	}
}

func TestSweepDisabled(t *testing.T) {
	svc, store, _ := newChunkFixture(t, nil, 0)

	id, err := svc.Init("keep.bin", 10, 5, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if n := svc.Sweep(); n != 0 {
		t.Fatalf("disabled sweep purged %d sessions", n)
	}
	if _, err := store.SessionManifest(id); err != nil {
		t.Fatalf("session should survive: %v", err)
	}
}

func TestSweepKeepsFreshSessions(t *testing.T) {
	svc, store, _ := newChunkFixture(t, nil, time.Hour)

	id, err := svc.Init("fresh.bin", 10, 5, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if n := svc.Sweep(); n != 0 {
		t.Fatalf("fresh session swept (%d)", n)
	}
	if _, err := store.SessionManifest(id); err != nil {
		t.Fatalf("session should survive: %v", err)
	}
}
