package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"intohear/internal/config"
	"intohear/internal/models"
	"intohear/internal/testsupport"
)

const stubTranscript = `{"transcription":[` +
	`{"offsets":{"from":0,"to":1500},"text":" hello"},` +
	`{"offsets":{"from":1500,"to":3000},"text":" world"}]}`

const wantDocument = "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n2\n00:00:01,500 --> 00:00:03,000\nworld\n\n"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	binDir     string
}

// setupCLITestEnv writes a config pointing at per-test directories, stubs
// yt-dlp, ffmpeg, and whisper-cli on PATH, seeds the medium model, and
// changes into a scratch working directory.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	cfg.Logging.Level = "error"
	cfg.Tools.FFprobe = filepath.Join(base, "missing", "ffprobe")

	t.Setenv("HOME", base)
	for _, key := range []string{"INTOHEAR_MODEL", "INTOHEAR_ENGINE", "INTOHEAR_LANGUAGE", "INTOHEAR_TEMP_DIR", "INTOHEAR_MODEL_DIR"} {
		t.Setenv(key, "")
	}

	binDir := filepath.Join(base, "bin")
	writeStubYTDLP(t, binDir, "")
	writeStubFFmpeg(t, binDir, "")
	testsupport.WriteScript(t, binDir, "whisper-cli", `while [ $# -gt 0 ]; do
  case "$1" in
    -of) out="$2"; shift ;;
  esac
  shift
done
printf '%s' '`+stubTranscript+`' > "$out.json"
`)
	testsupport.PrependPath(t, binDir)
	testsupport.WriteModel(t, filepath.Join(cfg.Paths.ModelDir, models.Medium.FileName()))

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
		binDir:     binDir,
	}
	env.writeConfig(t)

	work := filepath.Join(base, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(work)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeStubYTDLP installs a yt-dlp that writes the source name into the
// templated output. A source containing failOn exits 1 instead.
func writeStubYTDLP(t *testing.T, dir, failOn string) {
	t.Helper()
	body := `out=$(printf '%s' "$6" | sed 's/%(ext)s/m4a/')
`
	if failOn != "" {
		body += `case "$8" in *` + failOn + `*) echo "ERROR: Unsupported URL: $8" >&2; exit 1 ;; esac
`
	}
	body += `printf '%s' "$8" > "$out.part"
printf '%s' "$8" > "$out"
`
	testsupport.WriteScript(t, dir, "yt-dlp", body)
}

// writeStubFFmpeg installs an ffmpeg that writes its last argument. A
// non-empty failMessage makes it exit 1 with that text on stderr.
func writeStubFFmpeg(t *testing.T, dir, failMessage string) {
	t.Helper()
	if failMessage != "" {
		testsupport.WriteScript(t, dir, "ffmpeg", "echo '"+failMessage+"' >&2\nexit 1\n")
		return
	}
	testsupport.WriteScript(t, dir, "ffmpeg", `for last; do :; done
printf 'RIFF0000WAVEfmt ' > "$last"
`)
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	flags := []string{}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func assertNoTempArtifacts(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "intohear-") {
			t.Fatalf("temporary artifact left behind: %s", entry.Name())
		}
	}
}
