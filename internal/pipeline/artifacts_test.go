package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestArtifactsCleanupRemovesScopeOnly(t *testing.T) {
	dir := t.TempDir()
	scope, err := NewArtifacts(dir, "run1")
	if err != nil {
		t.Fatal(err)
	}
	wav := scope.Path("audio.wav")
	leftover := scope.Base() + "-source.m4a.part"
	workDir := scope.Base() + "-transcript.whisperx"
	foreign := filepath.Join(dir, "intohear-run2-audio.wav")
	for _, path := range []string{wav, leftover, foreign} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(workDir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	if got := len(scope.Existing()); got != 3 {
		t.Fatalf("expected 3 scoped artifacts, got %d", got)
	}
	if err := scope.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for _, path := range []string{wav, leftover, workDir} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", path)
		}
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("another run's artifact must survive: %v", err)
	}
	if err := scope.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}

func TestArtifactsBasesAreUnique(t *testing.T) {
	dir := t.TempDir()
	seen := make(map[string]struct{})
	for range 500 {
		scope, err := NewArtifacts(dir, uuid.NewString())
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[scope.Base()]; dup {
			t.Fatalf("duplicate temp base %s", scope.Base())
		}
		seen[scope.Base()] = struct{}{}
		if !strings.HasPrefix(filepath.Base(scope.Base()), "intohear-") {
			t.Fatalf("unexpected base %s", scope.Base())
		}
	}
}

func TestNewArtifactsRejectsEmptyRunID(t *testing.T) {
	if _, err := NewArtifacts(t.TempDir(), ""); err == nil {
		t.Fatal("expected error")
	}
}
