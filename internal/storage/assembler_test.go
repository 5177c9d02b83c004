package storage

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	cloud_errors "pats-cloud/pkg/errors"
)

// initWithChunks creates a session for payload split into chunkSize pieces
// and returns the id plus the chunk slices.
func initWithChunks(t *testing.T, s *Store, payload []byte, chunkSize int64, folder string) (string, [][]byte) {
	t.Helper()
	var chunks [][]byte
	for off := int64(0); off < int64(len(payload)); off += chunkSize {
		end := off + chunkSize
		if end > int64(len(payload)) {
			end = int64(len(payload))
		}
		chunks = append(chunks, payload[off:end])
	}
	id, err := s.InitSession("data.bin", int64(len(payload)), chunkSize, len(chunks), folder)
	if err != nil {
		t.Fatal(err)
	}
	return id, chunks
}

func randomPayload(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestCompleteRoundTrip(t *testing.T) {
	orders := map[string]func(n int) []int{
		"forward": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"reverse": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = n - 1 - i
			}
			return out
		},
		"random": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			for i := n - 1; i > 0; i-- {
				j, _ := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
				out[i], out[j.Int64()] = out[j.Int64()], out[i]
			}
			return out
		},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			payload := randomPayload(t, 10*1024+37) // uneven final chunk
			id, chunks := initWithChunks(t, s, payload, 1024, "")

			for _, i := range order(len(chunks)) {
				if _, err := s.PutChunk(id, i, bytes.NewReader(chunks[i])); err != nil {
					t.Fatalf("put %d: %v", i, err)
				}
			}

			info, err := s.Complete(id)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size != int64(len(payload)) {
				t.Fatalf("size %d, want %d", info.Size, len(payload))
			}
			got, err := os.ReadFile(filepath.Join(s.Root(), info.Name))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatal("reassembled bytes differ from the original")
			}

			// Scratch dir is purged.
			if _, err := os.Stat(filepath.Join(s.Root(), chunkDirName, id)); !os.IsNotExist(err) {
				t.Error("scratch dir survived completion")
			}
		})
	}
}

func TestCompleteParallelPuts(t *testing.T) {
	s := newTestStore(t)
	payload := randomPayload(t, 64*1024)
	id, chunks := initWithChunks(t, s, payload, 4096, "")

	var wg sync.WaitGroup
	errs := make([]error, len(chunks))
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.PutChunk(id, i, bytes.NewReader(chunks[i]))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("parallel put %d: %v", i, err)
		}
	}

	info, err := s.Complete(id)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(s.Root(), info.Name))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("parallel-order upload produced different bytes")
	}
}

func TestCompleteMissingChunk(t *testing.T) {
	s := newTestStore(t)
	payload := randomPayload(t, 5*100)
	id, chunks := initWithChunks(t, s, payload, 100, "")

	for i := range chunks {
		if i == 2 {
			continue
		}
		if _, err := s.PutChunk(id, i, bytes.NewReader(chunks[i])); err != nil {
			t.Fatal(err)
		}
	}

	_, err := s.Complete(id)
	if !cloud_errors.IsMissingChunk(err) {
		t.Fatalf("got %v, want missing chunk error", err)
	}
	if !strings.Contains(err.Error(), "missing chunk 2") {
		t.Errorf("error %q does not name index 2", err)
	}

	// No partial output anywhere under the root.
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			t.Errorf("leftover output %q after failed completion", e.Name())
		}
	}

	// The session survives; uploading the gap and retrying succeeds.
	if _, err := s.PutChunk(id, 2, bytes.NewReader(chunks[2])); err != nil {
		t.Fatal(err)
	}
	info, err := s.Complete(id)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(filepath.Join(s.Root(), info.Name))
	if !bytes.Equal(got, payload) {
		t.Fatal("retried completion produced different bytes")
	}
}

func TestCompleteCollisionNaming(t *testing.T) {
	s := newTestStore(t)

	var names []string
	for i := 0; i < 3; i++ {
		id, err := s.InitSession("same.txt", 5, 5, 1, "")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.PutChunk(id, 0, strings.NewReader("hello")); err != nil {
			t.Fatal(err)
		}
		info, err := s.Complete(id)
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, info.Name)
	}

	want := []string{"same.txt", "same(1).txt", "same(2).txt"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("upload %d stored as %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCompleteIntoFolder(t *testing.T) {
	s := newTestStore(t)
	id, err := s.InitSession("doc.txt", 5, 5, 1, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.PutChunk(id, 0, strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}
	info, err := s.Complete(id)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(s.Root(), "docs", info.Name))
	if err != nil {
		t.Fatalf("file not under folder: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content %q", got)
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Complete("never-existed"); err == nil {
		t.Fatal("want error for unknown session")
	}
}

func TestAbortRacesCompletion(t *testing.T) {
	s := newTestStore(t)
	payload := randomPayload(t, 2048)
	id, chunks := initWithChunks(t, s, payload, 256, "")
	for i := range chunks {
		if _, err := s.PutChunk(id, i, bytes.NewReader(chunks[i])); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var completeErr error
	go func() {
		defer wg.Done()
		_, completeErr = s.Complete(id)
	}()
	go func() {
		defer wg.Done()
		s.AbortSession(id)
	}()
	wg.Wait()

	// Whichever won, the loser failed cleanly: no partial output may
	// remain under the root.
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".partial") {
			t.Errorf("partial output %q left behind", e.Name())
		}
		if completeErr != nil {
			t.Errorf("completion failed (%v) yet output %q exists", completeErr, e.Name())
		}
	}
}
