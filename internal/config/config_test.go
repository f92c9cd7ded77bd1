package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"intohear/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	for _, key := range []string{"INTOHEAR_MODEL", "INTOHEAR_ENGINE", "INTOHEAR_LANGUAGE", "INTOHEAR_TEMP_DIR", "INTOHEAR_MODEL_DIR", "HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(home, ".config", "intohear", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.ModelDir != filepath.Join(home, ".cache", "intohear", "models") {
		t.Fatalf("unexpected model dir %q", cfg.Paths.ModelDir)
	}
	if cfg.Paths.LogDir != filepath.Join(home, ".local", "share", "intohear", "logs") {
		t.Fatalf("unexpected log dir %q", cfg.Paths.LogDir)
	}
	if !filepath.IsAbs(cfg.Paths.TempDir) {
		t.Fatalf("expected absolute temp dir, got %q", cfg.Paths.TempDir)
	}
	if cfg.Transcription.Model != "medium" || cfg.Transcription.Engine != config.EngineWhisperCPP || cfg.Transcription.Language != "auto" {
		t.Fatalf("unexpected transcription defaults %+v", cfg.Transcription)
	}
	if cfg.Batch.Concurrency != 2 || !cfg.History.Enabled {
		t.Fatalf("unexpected batch/history defaults %+v %+v", cfg.Batch, cfg.History)
	}

	cfg.Paths.TempDir = filepath.Join(home, "tmp")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.TempDir, cfg.Paths.ModelDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.HistoryDB)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "intohear.toml")

	type payload struct {
		Transcription struct {
			Model    string `toml:"model"`
			Language string `toml:"language"`
			Threads  int    `toml:"threads"`
		} `toml:"transcription"`
		Paths struct {
			ModelDir string `toml:"model_dir"`
		} `toml:"paths"`
		Batch struct {
			Concurrency int `toml:"concurrency"`
		} `toml:"batch"`
	}
	custom := payload{}
	custom.Transcription.Model = "small"
	custom.Transcription.Language = "en-US"
	custom.Transcription.Threads = 4
	custom.Paths.ModelDir = "~/models"
	custom.Batch.Concurrency = 5
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q (%v)", resolved, exists)
	}
	if cfg.Transcription.Model != "small" || cfg.Transcription.Threads != 4 || cfg.Transcription.Language != "en-US" {
		t.Fatalf("unexpected transcription %+v", cfg.Transcription)
	}
	home, _ := os.UserHomeDir()
	if cfg.Paths.ModelDir != filepath.Join(home, "models") {
		t.Fatalf("expected expanded model dir, got %q", cfg.Paths.ModelDir)
	}
	if cfg.Batch.Concurrency != 5 {
		t.Fatalf("unexpected concurrency %d", cfg.Batch.Concurrency)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected untouched defaults to survive, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "intohear.toml")
	if err := os.WriteFile(configPath, []byte("[transcription]\nmodle = \"tiny\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error for unknown key, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	t.Setenv("INTOHEAR_MODEL", "tiny")
	t.Setenv("INTOHEAR_ENGINE", "WhisperX")
	t.Setenv("INTOHEAR_TEMP_DIR", tempDir)
	t.Setenv("HF_TOKEN", "hf_test")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transcription.Model != "tiny" {
		t.Fatalf("expected env model, got %q", cfg.Transcription.Model)
	}
	if cfg.Transcription.Engine != config.EngineWhisperX {
		t.Fatalf("expected env engine, got %q", cfg.Transcription.Engine)
	}
	if cfg.Paths.TempDir != tempDir {
		t.Fatalf("expected env temp dir, got %q", cfg.Paths.TempDir)
	}
	if cfg.WhisperX.HFToken != "hf_test" {
		t.Fatalf("expected HF token from env, got %q", cfg.WhisperX.HFToken)
	}
}

func TestInvalidModelFallsBackToMedium(t *testing.T) {
	isolateEnv(t)
	for _, value := range []string{"gigantic", "bogus", "LARGE", "3", " Tiny "} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("INTOHEAR_MODEL", value)
			cfg, _, _, err := config.Load("")
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			want := map[string]string{"gigantic": "medium", "bogus": "medium", "LARGE": "large", "3": "medium", " Tiny ": "tiny"}[value]
			if cfg.Transcription.Model != want {
				t.Fatalf("model %q normalized to %q, want %q", value, cfg.Transcription.Model, want)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "engine", mutate: func(c *config.Config) { c.Transcription.Engine = "vosk" }, want: "transcription.engine"},
		{name: "language", mutate: func(c *config.Config) { c.Transcription.Language = "not a language" }, want: "transcription.language"},
		{name: "threads", mutate: func(c *config.Config) { c.Transcription.Threads = -1 }, want: "transcription.threads"},
		{name: "base url", mutate: func(c *config.Config) { c.Transcription.ModelBaseURL = "ftp://models" }, want: "model_base_url"},
		{name: "vad", mutate: func(c *config.Config) { c.WhisperX.VADMethod = "webrtc" }, want: "whisperx.vad_method"},
		{name: "pyannote token", mutate: func(c *config.Config) {
			c.Transcription.Engine = config.EngineWhisperX
			c.WhisperX.VADMethod = "pyannote"
		}, want: "whisperx.hf_token"},
		{name: "concurrency", mutate: func(c *config.Config) { c.Batch.Concurrency = 0 }, want: "batch.concurrency"},
		{name: "log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, want: "logging.format"},
		{name: "log level", mutate: func(c *config.Config) { c.Logging.Level = "trace" }, want: "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config must load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	defaults := config.Default()
	if cfg.Transcription.Model != defaults.Transcription.Model ||
		cfg.Transcription.Engine != defaults.Transcription.Engine ||
		cfg.Transcription.ModelBaseURL != defaults.Transcription.ModelBaseURL ||
		cfg.Batch.Concurrency != defaults.Batch.Concurrency ||
		cfg.Logging.RetentionDays != defaults.Logging.RetentionDays {
		t.Fatalf("sample config drifted from defaults: %+v", cfg)
	}
}
