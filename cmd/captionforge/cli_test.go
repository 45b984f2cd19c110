package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command with args against a fresh command tree
// and returns combined stdout/stderr.
func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupCLIHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got %q", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	setupCLIHome(t)

	out, err := runCLI(t, []string{"config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatalf("expected config file at %s: %v", target, statErr)
	}
}

func TestConfigInitRefusesOverwriteWithoutFlag(t *testing.T) {
	setupCLIHome(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("overwrite init: %v", err)
	}
}

func TestGenerateRequiresAudioFlag(t *testing.T) {
	setupCLIHome(t)

	scriptPath := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(scriptPath, []byte("Speaker 1: Hello there."), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	if _, err := runCLI(t, []string{"generate", scriptPath}); err == nil {
		t.Fatal("expected error when --audio is omitted")
	}
}

func TestGenerateRejectsMissingScriptFile(t *testing.T) {
	setupCLIHome(t)

	missing := filepath.Join(t.TempDir(), "does-not-exist.txt")
	if _, err := runCLI(t, []string{"generate", missing, "--audio", missing}); err == nil {
		t.Fatal("expected error for missing script file")
	}
}

// heuristicFixture lays out a stub ffprobe, a fake audio file, a two-speaker
// script, and a config with both real aligners disabled, returning the paths
// a "generate" invocation needs.
func heuristicFixture(t *testing.T) (home, scriptPath, audioPath, configPath string) {
	t.Helper()
	home = setupCLIHome(t)

	binDir := filepath.Join(home, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffprobeStub := "#!/bin/sh\ncat <<'EOF'\n" +
		`{"streams":[],"format":{"duration":"10.0"}}` + "\nEOF\n"
	if err := os.WriteFile(filepath.Join(binDir, "ffprobe"), []byte(ffprobeStub), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}

	audioPath = filepath.Join(home, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	scriptPath = filepath.Join(home, "script.txt")
	script := "Speaker 1: Hello there friend.\nSpeaker 2: Hi back to you!\n"
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	configPath = filepath.Join(home, "config.toml")
	configContents := "word_aligner_enabled = false\n" +
		"silence_aligner_enabled = false\n" +
		"ffprobe_binary = \"" + filepath.Join(binDir, "ffprobe") + "\"\n"
	if err := os.WriteFile(configPath, []byte(configContents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return home, scriptPath, audioPath, configPath
}

// TestGenerateHeuristicHappyPath drives the full generate command with both
// aligners disabled so only a stub ffprobe binary is needed; the heuristic
// estimator fills in timings and every caption file should land on disk.
func TestGenerateHeuristicHappyPath(t *testing.T) {
	home, scriptPath, audioPath, configPath := heuristicFixture(t)
	outDir := filepath.Join(home, "out")

	out, err := runCLI(t, []string{
		"generate", scriptPath,
		"--config", configPath,
		"--audio", audioPath,
		"--output", outDir,
	})
	if err != nil {
		t.Fatalf("generate failed: %v (output: %s)", err, out)
	}
	requireContains(t, out, "heuristic_estimator")

	for _, ext := range []string{".srt", ".vtt", ".json", ".txt", ".timing.txt"} {
		path := filepath.Join(outDir, "script"+ext)
		if _, statErr := os.Stat(path); statErr != nil {
			t.Fatalf("expected %s to exist: %v", path, statErr)
		}
	}
}

// TestGenerateTableFlagPrintsSummary checks --table appends a rendered
// segment table after the usual one-line summary.
func TestGenerateTableFlagPrintsSummary(t *testing.T) {
	home, scriptPath, audioPath, configPath := heuristicFixture(t)
	outDir := filepath.Join(home, "out")

	out, err := runCLI(t, []string{
		"generate", scriptPath,
		"--config", configPath,
		"--audio", audioPath,
		"--output", outDir,
		"--table",
	})
	if err != nil {
		t.Fatalf("generate failed: %v (output: %s)", err, out)
	}
	requireContains(t, out, "Speaker")
	requireContains(t, out, "Hello there friend.")
}

// TestGenerateArchiveScriptCopiesSource checks that --archive-script copies
// the input script alongside the generated captions, byte for byte.
func TestGenerateArchiveScriptCopiesSource(t *testing.T) {
	home := setupCLIHome(t)

	binDir := filepath.Join(home, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffprobeStub := "#!/bin/sh\ncat <<'EOF'\n" +
		`{"streams":[],"format":{"duration":"8.0"}}` + "\nEOF\n"
	if err := os.WriteFile(filepath.Join(binDir, "ffprobe"), []byte(ffprobeStub), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}

	audioPath := filepath.Join(home, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	scriptPath := filepath.Join(home, "script.txt")
	scriptContents := "Speaker 1: Archive me please.\n"
	if err := os.WriteFile(scriptPath, []byte(scriptContents), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	outDir := filepath.Join(home, "out")
	configPath := filepath.Join(home, "config.toml")
	configContents := "word_aligner_enabled = false\n" +
		"silence_aligner_enabled = false\n" +
		"ffprobe_binary = \"" + filepath.Join(binDir, "ffprobe") + "\"\n"
	if err := os.WriteFile(configPath, []byte(configContents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := runCLI(t, []string{
		"generate", scriptPath,
		"--config", configPath,
		"--audio", audioPath,
		"--output", outDir,
		"--archive-script",
	}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	archived, err := os.ReadFile(filepath.Join(outDir, "script.txt"))
	if err != nil {
		t.Fatalf("expected archived script: %v", err)
	}
	if string(archived) != scriptContents {
		t.Fatalf("archived script mismatch: got %q, want %q", archived, scriptContents)
	}
}
