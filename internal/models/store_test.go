package models

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"intohear/internal/logging"
	"intohear/internal/services"
)

var fakeModel = append([]byte("lmgg"), bytes.Repeat([]byte{0x01}, 4096)...)

func newModelServer(t *testing.T, hits *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(fakeModel)
		}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEnsureDownloadsAtMostOnce(t *testing.T) {
	var hits atomic.Int32
	var requested atomic.Value
	server := newModelServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		requested.Store(r.URL.Path)
		_, _ = w.Write(fakeModel)
	})
	store := NewStore(t.TempDir(), server.URL+"/", logging.NewNop())

	path, fetched, err := store.Ensure(context.Background(), Tiny)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !fetched {
		t.Fatal("expected first call to fetch")
	}
	if got, _ := requested.Load().(string); got != "/ggml-tiny.bin" {
		t.Fatalf("unexpected request path %q", got)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, fakeModel) {
		t.Fatalf("artifact content mismatch: %v", err)
	}

	again, fetched, err := store.Ensure(context.Background(), Tiny)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if fetched || again != path {
		t.Fatalf("expected cached artifact, fetched=%v path=%q", fetched, again)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one download, got %d", hits.Load())
	}
	if err := Verify(path); err != nil {
		t.Fatalf("downloaded artifact should verify: %v", err)
	}
}

func TestEnsureConcurrentCallersShareDownload(t *testing.T) {
	var hits atomic.Int32
	server := newModelServer(t, &hits, nil)
	store := NewStore(t.TempDir(), server.URL, logging.NewNop())

	var wg sync.WaitGroup
	var fetches atomic.Int32
	errs := make(chan error, 6)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, fetched, err := store.Ensure(context.Background(), Base)
			if fetched {
				fetches.Add(1)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if hits.Load() != 1 || fetches.Load() != 1 {
		t.Fatalf("expected a single download, hits=%d fetches=%d", hits.Load(), fetches.Load())
	}
}

func TestEnsureLargeUsesMediumArtifact(t *testing.T) {
	var hits atomic.Int32
	server := newModelServer(t, &hits, nil)
	store := NewStore(t.TempDir(), server.URL, logging.NewNop())

	if _, _, err := store.Ensure(context.Background(), Medium); err != nil {
		t.Fatalf("Ensure medium: %v", err)
	}
	path, fetched, err := store.Ensure(context.Background(), Large)
	if err != nil {
		t.Fatalf("Ensure large: %v", err)
	}
	if fetched || filepath.Base(path) != "ggml-medium.bin" {
		t.Fatalf("expected large to reuse medium artifact, fetched=%v path=%q", fetched, path)
	}
}

func TestEnsureFailureLeavesNoArtifact(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "status", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}},
		{name: "truncated", handler: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100000")
			_, _ = w.Write(fakeModel[:128])
		}},
		{name: "empty", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			server := newModelServer(t, &hits, tc.handler)
			dir := t.TempDir()
			store := NewStore(dir, server.URL, logging.NewNop())

			_, _, err := store.Ensure(context.Background(), Small)
			if !errors.Is(err, services.ErrModelDownload) {
				t.Fatalf("expected model download error, got %v", err)
			}
			if store.Present(Small) {
				t.Fatal("failed download must not be recognized as present")
			}
			entries, _ := os.ReadDir(dir)
			for _, entry := range entries {
				if strings.HasSuffix(entry.Name(), ".part") {
					t.Fatalf("temporary file %s left behind", entry.Name())
				}
			}
		})
	}
}

func TestEnsureCanceledContext(t *testing.T) {
	var hits atomic.Int32
	server := newModelServer(t, &hits, nil)
	store := NewStore(t.TempDir(), server.URL, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := store.Ensure(ctx, Tiny)
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled error, got %v", err)
	}
	if store.Present(Tiny) {
		t.Fatal("canceled download must not leave an artifact")
	}
}

func TestEnsureTimeoutIsDownloadError(t *testing.T) {
	var hits atomic.Int32
	server := newModelServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	store := NewStore(t.TempDir(), server.URL, logging.NewNop())
	store.Timeout = 50 * time.Millisecond

	_, _, err := store.Ensure(context.Background(), Tiny)
	if !errors.Is(err, services.ErrModelDownload) || errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected model download error for timeout, got %v", err)
	}
}

func TestEnsureReportsProgress(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantTotal int64
	}{
		{
			name: "content length",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Length", strconv.Itoa(len(fakeModel)))
				_, _ = w.Write(fakeModel)
			},
			wantTotal: int64(len(fakeModel)),
		},
		{
			name: "chunked",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(fakeModel[:16])
				w.(http.Flusher).Flush()
				_, _ = w.Write(fakeModel[16:])
			},
			wantTotal: -1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			server := newModelServer(t, &hits, tc.handler)
			store := NewStore(t.TempDir(), server.URL, logging.NewNop())

			var observed bytes.Buffer
			var finished bool
			var gotTotal int64
			store.Progress = func(label string, total int64) (io.Writer, func()) {
				gotTotal = total
				return &observed, func() { finished = true }
			}
			if _, _, err := store.Ensure(context.Background(), Tiny); err != nil {
				t.Fatalf("Ensure: %v", err)
			}
			if observed.Len() != len(fakeModel) || !finished {
				t.Fatalf("progress observer saw %d bytes, finished=%v", observed.Len(), finished)
			}
			if gotTotal != tc.wantTotal {
				t.Fatalf("expected total %d, got %d", tc.wantTotal, gotTotal)
			}
		})
	}
}

func TestListAndRemove(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, DefaultBaseURL, logging.NewNop())
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.bin"), fakeModel, 0o644); err != nil {
		t.Fatal(err)
	}

	entries := store.List()
	if len(entries) != 4 {
		t.Fatalf("expected 4 distinct artifacts, got %d", len(entries))
	}
	for _, entry := range entries {
		wantPresent := entry.FileName == "ggml-base.bin"
		if entry.Present != wantPresent {
			t.Fatalf("unexpected presence for %s: %v", entry.FileName, entry.Present)
		}
		if wantPresent && entry.Size != int64(len(fakeModel)) {
			t.Fatalf("unexpected size %d", entry.Size)
		}
	}

	if err := store.Remove(Base); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Present(Base) {
		t.Fatal("expected artifact removed")
	}
	if err := store.Remove(Base); err != nil {
		t.Fatalf("Remove of missing file should succeed: %v", err)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.bin")
	gguf := filepath.Join(dir, "gguf.bin")
	corrupt := filepath.Join(dir, "corrupt.bin")
	short := filepath.Join(dir, "short.bin")
	_ = os.WriteFile(good, fakeModel, 0o644)
	_ = os.WriteFile(gguf, []byte("GGUF\x03\x00\x00\x00"), 0o644)
	_ = os.WriteFile(corrupt, []byte("<html>not found</html>"), 0o644)
	_ = os.WriteFile(short, []byte("lm"), 0o644)

	if err := Verify(good); err != nil {
		t.Fatalf("expected ggml file to verify: %v", err)
	}
	if err := Verify(gguf); err != nil {
		t.Fatalf("expected gguf file to verify: %v", err)
	}
	for _, path := range []string{corrupt, short, filepath.Join(dir, "missing.bin")} {
		err := Verify(path)
		if !errors.Is(err, services.ErrModelLoad) {
			t.Fatalf("expected model load error for %s, got %v", filepath.Base(path), err)
		}
		if details, ok := services.Details(err); !ok || !strings.Contains(details.Hint, "delete") {
			t.Fatalf("expected removal hint, got %#v", details)
		}
	}
}
