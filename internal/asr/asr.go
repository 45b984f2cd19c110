// Package asr invokes an external speech recognizer and parses its
// word-level timing output.
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/lzhgus/captionforge/internal/services"
)

// Word is a single recognized word with its timing span, in seconds.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperXSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Segments []whisperXSegment `json:"segments"`
}

// Runner invokes the configured ASR binary against an audio file and parses
// its word-timing JSON from stdout.
type Runner struct {
	Binary string
	LogDir string
}

// NewRunner constructs a Runner for the given binary name (resolved via
// PATH) and an optional directory for captured tool stderr on failure.
func NewRunner(binary, logDir string) *Runner {
	return &Runner{Binary: binary, LogDir: logDir}
}

// Transcribe runs the ASR tool requesting English word-level timestamps with
// beam size 5 on CPU int8 compute, and returns the ordered word list. A nil,
// nil return (no words, no error) signals "ran fine but produced nothing
// usable"; callers should treat that the same as an error for fallback
// purposes.
func (r *Runner) Transcribe(ctx context.Context, audioPath string) ([]Word, error) {
	if r == nil || strings.TrimSpace(r.Binary) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "word_aligner", "transcribe", "no ASR binary configured", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "word_aligner", "transcribe", "audio file not found", err)
	}

	args := []string{
		audioPath,
		"--language", "en",
		"--beam_size", "5",
		"--device", "cpu",
		"--compute_type", "int8",
		"--word_timestamps", "true",
		"--output_format", "json",
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detailPath := r.writeToolLog(args, stderr.String())
		return nil, &services.ServiceError{
			Marker:     services.ErrExternalTool,
			Kind:       services.ErrorKindExternal,
			Stage:      "word_aligner",
			Operation:  "transcribe",
			Message:    "ASR invocation failed",
			DetailPath: detailPath,
			Cause:      fmt.Errorf("%s: %w", r.Binary, err),
		}
	}

	var decoded payload
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "word_aligner", "transcribe", "failed to parse ASR word-timing output", err)
	}

	var words []Word
	for _, seg := range decoded.Segments {
		words = append(words, seg.Words...)
	}
	if len(words) == 0 {
		return nil, nil
	}
	return words, nil
}

func (r *Runner) writeToolLog(args []string, stderr string) string {
	if strings.TrimSpace(r.LogDir) == "" {
		return ""
	}
	toolDir := filepath.Join(r.LogDir, "tool")
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return ""
	}
	timestamp := time.Now().UTC().Format("20060102T150405.000Z")
	path := filepath.Join(toolDir, timestamp+"-"+filepath.Base(r.Binary)+".log")

	var b strings.Builder
	b.WriteString("command: ")
	b.WriteString(r.Binary)
	b.WriteByte(' ')
	b.WriteString(strings.Join(args, " "))
	b.WriteString("\nstderr:\n")
	b.WriteString(stderr)
	b.WriteByte('\n')
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return ""
	}
	return path
}

