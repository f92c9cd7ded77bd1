package models

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"intohear/internal/fileutil"
	"intohear/internal/logging"
	"intohear/internal/services"
)

const (
	// DefaultBaseURL hosts the whisper.cpp ggml model files.
	DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

	stageName     = "model"
	lockRetryWait = 250 * time.Millisecond
	userAgent     = "intohear"
)

// ProgressFunc returns a writer that observes downloaded bytes and a finish
// callback. total is -1 when the host does not report a length.
type ProgressFunc func(label string, total int64) (io.Writer, func())

// Store is the durable model artifact cache. A file present at Path is
// trusted as-is; the store never re-validates or evicts it.
type Store struct {
	Dir      string
	BaseURL  string
	Client   *http.Client
	Timeout  time.Duration
	Logger   *slog.Logger
	Progress ProgressFunc
}

// Entry describes one selection in the cache listing.
type Entry struct {
	Selection Selection
	FileName  string
	Path      string
	Present   bool
	Size      int64
	ModTime   time.Time
}

// NewStore builds a Store rooted at dir with the default host and client.
func NewStore(dir, baseURL string, logger *slog.Logger) *Store {
	return &Store{
		Dir:     dir,
		BaseURL: baseURL,
		Client:  &http.Client{},
		Logger:  logging.NewComponentLogger(logger, "models"),
	}
}

// Path returns the deterministic artifact path for sel.
func (s *Store) Path(sel Selection) string {
	return filepath.Join(s.Dir, sel.FileName())
}

// URL returns the download location for sel.
func (s *Store) URL(sel Selection) string {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/" + sel.FileName()
}

// Present reports whether the artifact for sel exists as a regular file.
func (s *Store) Present(sel Selection) bool {
	info, err := os.Stat(s.Path(sel))
	return err == nil && info.Mode().IsRegular()
}

// Ensure returns the artifact path for sel, downloading it first when absent.
// fetched reports whether this call performed the download. Concurrent callers
// for the same selection serialize on a lock file next to the artifact, and a
// download only becomes visible through an atomic rename.
func (s *Store) Ensure(ctx context.Context, sel Selection) (path string, fetched bool, err error) {
	path = s.Path(sel)
	if s.Present(sel) {
		return path, false, nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", false, services.Wrap(services.KindModelDownload, stageName, "prepare cache", s.Dir, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return "", false, services.Wrap(services.KindModelDownload, stageName, "lock", path, err)
	}
	if !locked {
		return "", false, services.Wrap(services.KindModelDownload, stageName, "lock", "could not acquire "+path+".lock", nil)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			s.logger(ctx).Debug("model lock release failed", logging.Error(unlockErr))
		}
	}()

	if s.Present(sel) {
		return path, false, nil
	}
	if err := s.download(ctx, sel, path); err != nil {
		// The store's own timeout is a download failure, not a user abort.
		if details, ok := services.Details(err); ok && ctx.Err() == nil && details.Kind == services.KindCanceled {
			details.Kind = services.KindModelDownload
			details.Hint = "raise transcription.model_download_timeout or check network throughput"
		}
		return "", false, err
	}
	return path, true, nil
}

func (s *Store) download(ctx context.Context, sel Selection, dest string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	logger := s.logger(ctx)
	url := s.URL(sel)
	started := time.Now()
	logger.Info("downloading model",
		logging.String("model", sel.String()),
		logging.String("url", url),
		logging.String(logging.FieldEventType, "model_download_started"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "build request", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "fetch", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.KindModelDownload, stageName, "fetch",
			fmt.Sprintf("%s returned %s", url, resp.Status), nil).
			WithStderr(strings.TrimSpace(string(snippet))).
			WithHint("check transcription.model_base_url and network access")
	}

	tmp, err := os.CreateTemp(s.Dir, "."+sel.FileName()+".*.part")
	if err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "create temp file", s.Dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	var sink io.Writer = tmp
	if s.Progress != nil {
		if observer, finish := s.Progress(sel.FileName(), resp.ContentLength); observer != nil {
			sink = io.MultiWriter(tmp, observer)
			if finish != nil {
				defer finish()
			}
		}
	}

	written, err := io.Copy(sink, resp.Body)
	if err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "write", tmpPath, err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return services.Wrap(services.KindModelDownload, stageName, "write",
			fmt.Sprintf("truncated download: got %d of %d bytes", written, resp.ContentLength), nil)
	}
	if written == 0 {
		return services.Wrap(services.KindModelDownload, stageName, "write", "empty response body", nil)
	}
	if err := tmp.Sync(); err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return services.Wrap(services.KindModelDownload, stageName, "commit", dest, err)
	}
	committed = true

	logger.Info("model downloaded",
		logging.String("model", sel.String()),
		logging.String("path", dest),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "model_download_completed"),
	)
	return nil
}

// Remove deletes the cached artifact for sel. Missing files are not an error.
func (s *Store) Remove(sel Selection) error {
	if err := fileutil.RemoveIfExists(s.Path(sel)); err != nil {
		return fmt.Errorf("remove model %s: %w", sel, err)
	}
	return nil
}

// List reports every distinct artifact and whether it is cached.
func (s *Store) List() []Entry {
	seen := map[string]struct{}{}
	entries := make([]Entry, 0, len(All()))
	for _, sel := range All() {
		name := sel.FileName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entry := Entry{Selection: sel, FileName: name, Path: s.Path(sel)}
		if info, err := os.Stat(entry.Path); err == nil && info.Mode().IsRegular() {
			entry.Present = true
			entry.Size = info.Size()
			entry.ModTime = info.ModTime()
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Selection < entries[j].Selection })
	return entries
}

func (s *Store) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, s.Logger)
}
