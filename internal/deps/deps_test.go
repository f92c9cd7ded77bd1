package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeStub(t *testing.T, dir, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestLocatorFindsStubOnSearchPath(t *testing.T) {
	binDir := t.TempDir()
	want := writeStub(t, binDir, "fake-tool", 0o755)

	locator := Locator{PathEnv: binDir}
	got, ok := locator.Lookup("fake-tool")
	if !ok {
		t.Fatal("expected stub to be found")
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if !locator.Available("fake-tool") {
		t.Fatal("expected Available to agree with Lookup")
	}
}

func TestLocatorReportsAbsentToolWithoutPanic(t *testing.T) {
	locator := Locator{PathEnv: t.TempDir()}
	if locator.Available("clearly-not-present-binary") {
		t.Fatal("expected absent tool to be unavailable")
	}
	if locator.Available("") {
		t.Fatal("expected empty name to be unavailable")
	}
}

func TestLocatorUsesCurrentPATHByDefault(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "path-tool", 0o755)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	if !NewLocator(nil).Available("path-tool") {
		t.Fatal("expected tool on PATH to be found")
	}
}

func TestLocatorTriesConfiguredExtensions(t *testing.T) {
	binDir := t.TempDir()
	want := writeStub(t, binDir, "whisper-cli.cmd", 0o755)

	locator := Locator{PathEnv: binDir, Extensions: []string{".exe", ".cmd"}}
	got, ok := locator.Lookup("whisper-cli")
	if !ok || got != want {
		t.Fatalf("expected %q via extension list, got %q (%v)", want, got, ok)
	}
	if _, ok := (Locator{PathEnv: binDir}).Lookup("whisper-cli"); ok {
		t.Fatal("expected lookup without extensions to miss")
	}
}

func TestLocatorChecksExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	direct := writeStub(t, dir, "direct", 0o755)
	if got, ok := (Locator{PathEnv: ""}).Lookup(direct); !ok || got != direct {
		t.Fatalf("expected direct path to resolve, got %q (%v)", got, ok)
	}
	if runtime.GOOS != "windows" {
		plain := writeStub(t, dir, "not-executable", 0o644)
		if (Locator{}).Available(plain) {
			t.Fatal("expected non-executable file to be unavailable")
		}
	}
	if (Locator{}).Available(dir) {
		t.Fatal("directories are never executable")
	}
}

func TestDefaultExtensions(t *testing.T) {
	if exts := DefaultExtensions("linux"); exts != nil {
		t.Fatalf("expected no extensions on linux, got %v", exts)
	}
	t.Setenv("PATHEXT", "")
	if exts := DefaultExtensions("windows"); strings.Join(exts, ",") != ".com,.exe,.bat,.cmd" {
		t.Fatalf("unexpected windows defaults %v", exts)
	}
}

func TestSplitExtensionsNormalizes(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := splitExtensions(".EXE" + sep + " bat " + sep + sep + ".Cmd")
	if strings.Join(got, ",") != ".exe,.bat,.cmd" {
		t.Fatalf("unexpected extensions %v", got)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", 0o755)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "yt-dlp", Command: "yt-dlp"},
		{Name: "Unset", Command: " "},
	}

	results := CheckBinaries(Locator{PathEnv: t.TempDir()}, "linux", reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" || results[0].Resolved != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if !strings.Contains(results[1].Hint, "yt-dlp") {
		t.Fatalf("expected install hint for yt-dlp, got %q", results[1].Hint)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command %#v", results[2])
	}
}

func TestInstallHint(t *testing.T) {
	tests := []struct {
		tool string
		goos string
		want string
	}{
		{tool: "ffmpeg", goos: "darwin", want: "brew install ffmpeg"},
		{tool: "ffmpeg.exe", goos: "windows", want: "winget install ffmpeg"},
		{tool: "/usr/local/bin/whisper-cli", goos: "linux", want: "whisper.cpp"},
		{tool: "uvx", goos: "freebsd", want: "docs.astral.sh/uv"},
		{tool: "mystery", goos: "linux", want: "install mystery"},
	}
	for _, tc := range tests {
		if got := InstallHint(tc.tool, tc.goos); !strings.Contains(got, tc.want) {
			t.Errorf("InstallHint(%q, %q) = %q, want substring %q", tc.tool, tc.goos, got, tc.want)
		}
	}
}

func TestLocatorOnWindowsRequiresListedExtension(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "yt-dlp", 0o644)
	locator := Locator{PathEnv: binDir, Extensions: []string{".exe", ".cmd"}, goos: "windows"}

	if got, ok := locator.Lookup("yt-dlp"); ok {
		t.Fatalf("extensionless file must not resolve on windows, got %q", got)
	}

	want := writeStub(t, binDir, "yt-dlp.cmd", 0o644)
	if got, ok := locator.Lookup("yt-dlp"); !ok || got != want {
		t.Fatalf("expected %q via extension list, got %q (%v)", want, got, ok)
	}
	if got, ok := locator.Lookup(want); !ok || got != want {
		t.Fatalf("expected explicit %q to resolve, got %q (%v)", want, got, ok)
	}

	notes := writeStub(t, binDir, "notes.txt", 0o644)
	if locator.Available(notes) {
		t.Fatal("unlisted extension must not resolve on windows")
	}
}
