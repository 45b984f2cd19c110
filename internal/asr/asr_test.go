package asr_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lzhgus/captionforge/internal/asr"
)

func writeStubBinary(t *testing.T, dir string, words []asr.Word) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"segments": []map[string]any{{"words": words}},
	})
	if err != nil {
		t.Fatalf("marshal stub payload: %v", err)
	}
	script := "#!/bin/sh\ncat <<'EOF'\n" + string(payload) + "\nEOF\n"
	path := filepath.Join(dir, "stub-asr.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub binary: %v", err)
	}
	return path
}

func TestTranscribeParsesWordTimings(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake audio: %v", err)
	}
	words := []asr.Word{{Text: "hello", Start: 0.1, End: 0.4}, {Text: "world", Start: 0.5, End: 0.9}}
	bin := writeStubBinary(t, dir, words)

	runner := asr.NewRunner(bin, dir)
	got, err := runner.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(got) != 2 || got[0].Text != "hello" || got[1].End != 0.9 {
		t.Fatalf("unexpected words: %+v", got)
	}
}

func TestTranscribeFlattensWordsAcrossSegments(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake audio: %v", err)
	}

	payload, err := json.Marshal(map[string]any{
		"segments": []map[string]any{
			{"words": []asr.Word{{Text: "hello", Start: 0.1, End: 0.4}}},
			{"words": []asr.Word{{Text: "world", Start: 0.5, End: 0.9}}},
		},
	})
	if err != nil {
		t.Fatalf("marshal stub payload: %v", err)
	}
	script := "#!/bin/sh\ncat <<'EOF'\n" + string(payload) + "\nEOF\n"
	bin := filepath.Join(dir, "stub-asr.sh")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub binary: %v", err)
	}

	runner := asr.NewRunner(bin, dir)
	got, err := runner.Transcribe(context.Background(), audioPath)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(got) != 2 || got[0].Text != "hello" || got[1].Text != "world" {
		t.Fatalf("expected words flattened across segments in order, got %+v", got)
	}
}

func TestTranscribeMissingAudioFails(t *testing.T) {
	runner := asr.NewRunner("whisperx", t.TempDir())
	if _, err := runner.Transcribe(context.Background(), "/nonexistent/audio.wav"); err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

func TestTranscribeNoBinaryConfigured(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake audio: %v", err)
	}
	runner := asr.NewRunner("", dir)
	if _, err := runner.Transcribe(context.Background(), audioPath); err == nil {
		t.Fatal("expected error for unconfigured binary")
	}
}

func TestTranscribeCommandFailureWritesToolLog(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake audio: %v", err)
	}
	failScript := filepath.Join(dir, "fail-asr.sh")
	if err := os.WriteFile(failScript, []byte("#!/bin/sh\necho boom >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write failing stub: %v", err)
	}

	runner := asr.NewRunner(failScript, dir)
	if _, err := runner.Transcribe(context.Background(), audioPath); err == nil {
		t.Fatal("expected error from failing command")
	}

	entries, err := os.ReadDir(filepath.Join(dir, "tool"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected a tool log to be written, err=%v entries=%v", err, entries)
	}
}
