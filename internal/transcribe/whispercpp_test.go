package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"intohear/internal/deps"
	"intohear/internal/models"
	"intohear/internal/procexec"
	"intohear/internal/services"
	"intohear/internal/testsupport"
)

type scriptedRunner struct {
	calls  [][]string
	result procexec.Result
	err    error
	write  map[string]string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (procexec.Result, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	for path, body := range r.write {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return procexec.Result{}, err
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return procexec.Result{}, err
		}
	}
	return r.result, r.err
}

func stubLocator(t *testing.T, names ...string) deps.Locator {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		testsupport.WriteScript(t, dir, name, "exit 0\n")
	}
	return deps.Locator{PathEnv: dir}
}

func TestWhisperCPPArgs(t *testing.T) {
	engine := NewWhisperCPP("", nil, deps.Locator{}, nil)
	req := Request{AudioPath: "/tmp/a.wav", ModelPath: "/models/ggml-base.bin", Language: "auto", WorkBase: "/tmp/a-transcript"}

	want := []string{"-m", "/models/ggml-base.bin", "-f", "/tmp/a.wav", "-l", "auto", "-oj", "-of", "/tmp/a-transcript", "-np"}
	if got := engine.Args(req); !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}

	req.Language = "german"
	req.Threads = 6
	got := engine.Args(req)
	if got[5] != "de" || got[len(got)-2] != "-t" || got[len(got)-1] != "6" {
		t.Fatalf("expected language and thread flags, got %v", got)
	}
}

func TestWhisperCPPRecognize(t *testing.T) {
	dir := t.TempDir()
	req := Request{AudioPath: filepath.Join(dir, "a.wav"), ModelPath: "m.bin", WorkBase: filepath.Join(dir, "a-transcript"), Model: models.Base}
	runner := &scriptedRunner{write: map[string]string{req.WorkBase + ".json": whisperCPPJSON}}
	engine := NewWhisperCPP("whisper-cli", runner, stubLocator(t, "whisper-cli"), nil)

	seq, err := engine.Recognize(context.Background(), req)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	segments, err := Collect(seq)
	if err != nil || len(segments) != 2 || segments[1].Text != " world" {
		t.Fatalf("unexpected segments %+v, %v", segments, err)
	}
}

func TestWhisperCPPFailureClassification(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{name: "model load", stderr: "whisper_init_from_file_with_params_no_state: failed to load model\n", want: services.ErrModelLoad},
		{name: "context init", stderr: "error: failed to initialize whisper context\n", want: services.ErrModelLoad},
		{name: "audio read", stderr: "error: failed to read audio file 'a.wav'\n", want: services.ErrTranscription},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &scriptedRunner{result: procexec.Result{ExitCode: 2, Stderr: tc.stderr}}
			engine := NewWhisperCPP("whisper-cli", runner, stubLocator(t, "whisper-cli"), nil)
			_, err := engine.Recognize(context.Background(), Request{WorkBase: filepath.Join(t.TempDir(), "w")})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if details, _ := services.Details(err); details.Stderr != tc.stderr {
				t.Fatalf("expected stderr preserved, got %q", details.Stderr)
			}
		})
	}
}

func TestWhisperCPPMissingOutput(t *testing.T) {
	runner := &scriptedRunner{}
	engine := NewWhisperCPP("whisper-cli", runner, stubLocator(t, "whisper-cli"), nil)
	_, err := engine.Recognize(context.Background(), Request{WorkBase: filepath.Join(t.TempDir(), "none")})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

func TestWhisperCPPMissingBinary(t *testing.T) {
	engine := NewWhisperCPP("whisper-cli", &scriptedRunner{}, deps.Locator{PathEnv: t.TempDir()}, nil)
	_, err := engine.Recognize(context.Background(), Request{})
	if !errors.Is(err, services.ErrLaunch) || !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected launch error inside transcription error, got %v", err)
	}
	if details, _ := services.Details(err); !strings.Contains(details.Hint, "whisper") {
		t.Fatalf("expected whisper install hint, got %q", details.Hint)
	}
}
