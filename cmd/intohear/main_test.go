package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"intohear/internal/history"
	"intohear/internal/models"
	"intohear/internal/services"
	"intohear/internal/testsupport"
)

func TestTranscribeWritesCaptionsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "transcribe", "https://www.youtube.com/watch?v=abc123", "-o", "talk.srt", "--validate")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !strings.Contains(out, "Wrote 2 subtitles") {
		t.Fatalf("unexpected output %q", out)
	}
	content, err := os.ReadFile("talk.srt")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(content) != wantDocument {
		t.Fatalf("unexpected document %q", content)
	}
	assertNoTempArtifacts(t, env.cfg.Paths.TempDir)

	store, err := history.Open(env.cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != history.StatusSucceeded || entries[0].Segments != 2 {
		t.Fatalf("unexpected history %+v", entries)
	}
	if filepath.Base(entries[0].OutputPath) != "talk.srt" {
		t.Fatalf("expected output path recorded, got %q", entries[0].OutputPath)
	}

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "succeeded") || !strings.Contains(out, "medium") {
		t.Fatalf("history table missing run: %q", out)
	}
}

func TestRootPositionalFormWritesDefaultFile(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteModel(t, filepath.Join(env.cfg.Paths.ModelDir, models.Tiny.FileName()))
	local := filepath.Join(env.baseDir, "lecture.mp3")
	if err := os.WriteFile(local, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCLI(t, env, local, "tiny"); err != nil {
		t.Fatalf("root: %v", err)
	}
	content, err := os.ReadFile(defaultOutputFile)
	if err != nil {
		t.Fatalf("expected %s: %v", defaultOutputFile, err)
	}
	if string(content) != wantDocument {
		t.Fatalf("unexpected document %q", content)
	}
	if _, err := os.Stat(local); err != nil {
		t.Fatalf("local source must not be removed: %v", err)
	}
	assertNoTempArtifacts(t, env.cfg.Paths.TempDir)
}

func TestRootWithoutArgsShowsHelpWhenNotInteractive(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if !strings.Contains(out, "transcribe") || !strings.Contains(out, "batch") {
		t.Fatalf("expected help output, got %q", out)
	}
}

func TestTranscribeStdoutPrintsOnlyDocument(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "transcribe", "https://youtu.be/abc123", "--stdout")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if out != wantDocument {
		t.Fatalf("stdout should carry only the document, got %q", out)
	}
	if _, err := os.Stat(defaultOutputFile); !os.IsNotExist(err) {
		t.Fatal("--stdout must not write a file")
	}
}

func TestTranscribeFailureSurfacesStderrAndCleansUp(t *testing.T) {
	env := setupCLITestEnv(t)
	writeStubFFmpeg(t, env.binDir, "Invalid data found when processing input")

	_, _, err := runCLI(t, env, "transcribe", "https://youtu.be/abc123")
	if !errors.Is(err, services.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	for _, fragment := range []string{"normalization error", "exit status: 1", "Invalid data found when processing input"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
	if _, statErr := os.Stat(defaultOutputFile); !os.IsNotExist(statErr) {
		t.Fatal("no subtitle file may be written on failure")
	}
	assertNoTempArtifacts(t, env.cfg.Paths.TempDir)
}

func TestTranscribeMissingToolIsLaunchError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.YTDLP = filepath.Join(env.baseDir, "missing", "yt-dlp")
	env.writeConfig(t)

	_, _, err := runCLI(t, env, "transcribe", "https://youtu.be/abc123")
	if !errors.Is(err, services.ErrAcquisition) || !errors.Is(err, services.ErrLaunch) {
		t.Fatalf("expected acquisition launch error, got %v", err)
	}
	if !strings.Contains(err.Error(), "hint:") {
		t.Fatalf("expected install hint, got %q", err.Error())
	}
}

func TestTranscribeRejectsUnknownEngine(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "transcribe", "https://youtu.be/abc123", "--engine", "vosk"); err == nil {
		t.Fatal("expected engine error")
	}
}

func TestBatchWritesNumberedFilesAndIsolatesFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	writeStubYTDLP(t, env.binDir, "broken")
	outDir := filepath.Join(env.baseDir, "subs")

	out, _, err := runCLI(t, env, "batch", "-j", "2", "-d", outDir,
		"https://youtu.be/first", "https://example.com/broken", "https://www.youtube.com/watch?v=third")
	if err == nil || !strings.Contains(err.Error(), "1 of 3 sources failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "FAILED https://example.com/broken") || !strings.Contains(out, "Unsupported URL") {
		t.Fatalf("failure not reported: %q", out)
	}
	for _, name := range []string{"1-first.srt", "3-third.srt"} {
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if string(content) != wantDocument {
			t.Fatalf("unexpected %s content %q", name, content)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "2-broken.srt")); !os.IsNotExist(err) {
		t.Fatal("failed source must not produce a file")
	}
	assertNoTempArtifacts(t, env.cfg.Paths.TempDir)
}

func TestModelsFetchAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+models.Base.FileName() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(append([]byte("lmgg"), make([]byte, 128)...))
	}))
	defer srv.Close()
	env.cfg.Transcription.ModelBaseURL = srv.URL
	env.writeConfig(t)

	out, _, err := runCLI(t, env, "models", "fetch", "base")
	if err != nil {
		t.Fatalf("models fetch: %v", err)
	}
	if !strings.Contains(out, "Downloaded ggml-base.bin") {
		t.Fatalf("unexpected fetch output %q", out)
	}
	out, _, err = runCLI(t, env, "models", "fetch", "base")
	if err != nil || !strings.Contains(out, "already cached") {
		t.Fatalf("second fetch should be a cache hit, got %q, %v", out, err)
	}

	out, _, err = runCLI(t, env, "models", "list")
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	for _, fragment := range []string{"ggml-base.bin", "ggml-medium.bin", "medium *"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
	if strings.Contains(out, "ggml-large.bin") {
		t.Fatal("large shares the medium artifact and must not be listed separately")
	}

	if _, _, err := runCLI(t, env, "models", "fetch", "huge"); err == nil {
		t.Fatal("expected unknown model error")
	}
}

func TestDoctorReportsMissingTool(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.WhisperCPP = filepath.Join(env.baseDir, "missing", "whisper-cli")
	env.writeConfig(t)

	out, _, err := runCLI(t, env, "doctor")
	if err == nil {
		t.Fatal("expected doctor to report a problem")
	}
	if !strings.Contains(out, "whisper.cpp:") || !strings.Contains(out, "[ERROR]") {
		t.Fatalf("missing tool not rendered: %q", out)
	}
	if !strings.Contains(out, "FFprobe:") || !strings.Contains(out, "[WARN]") {
		t.Fatalf("optional tool should warn: %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "generated", "config.toml")

	out, _, err := runCLI(t, nil, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	sampleArtifact := filepath.Join(env.baseDir, ".cache", "intohear", "models", "ggml-medium.bin")
	for _, fragment := range []string{target, sampleArtifact + " (not cached)", "intohear models fetch medium"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in init output %q", fragment, out)
		}
	}
	if _, _, err := runCLI(t, nil, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	out, _, err = runCLI(t, nil, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}

	out, _, err = runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	seeded := filepath.Join(env.cfg.Paths.ModelDir, "ggml-medium.bin") + " (cached)"
	if !strings.Contains(out, seeded) || !strings.Contains(out, env.cfg.Paths.TempDir) {
		t.Fatalf("expected resolved settings in validate output %q", out)
	}
}

func TestLogsPrintsFormattedTail(t *testing.T) {
	env := setupCLITestEnv(t)
	lines := strings.Join([]string{
		`{"ts":"2024-05-01T12:00:00Z","level":"info","msg":"older run","run_id":"aaaaaaaaaaaa"}`,
		`{"ts":"2024-05-01T12:00:01Z","level":"warn","msg":"cleanup incomplete","component":"pipeline","run_id":"0123456789abcdef","stage":"transcribing","path":"/tmp/x"}`,
		"",
	}, "\n")
	logPath := filepath.Join(env.cfg.Paths.LogDir, "intohear.log")
	if err := os.WriteFile(logPath, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "older run") {
		t.Fatalf("expected only the last line, got %q", out)
	}
	for _, fragment := range []string{"WARN [pipeline] Run 01234567 (transcribing) - cleanup incomplete", "    - path: /tmp/x"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}

	out, _, err = runCLI(t, env, "logs", "-n", "1", "--raw")
	if err != nil {
		t.Fatalf("logs --raw: %v", err)
	}
	if !strings.HasPrefix(out, `{"ts":"2024-05-01T12:00:01Z"`) {
		t.Fatalf("expected raw JSON line, got %q", out)
	}
}

func TestLogsWithoutFile(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "No log entries available") {
		t.Fatalf("unexpected output %q", out)
	}
}
