package captionfmt

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/lzhgus/captionforge/internal/align"
	"github.com/lzhgus/captionforge/internal/logging"
	"github.com/lzhgus/captionforge/internal/services"
)

// Package is the full set of rendered caption artifacts for one run.
type Package struct {
	SRT              string
	VTT              string
	JSON             string
	Transcript       string
	ScriptWithTiming string
}

// Build renders every caption format for the given segments.
func Build(segments []align.Segment, transcriptOpts TranscriptOptions) (Package, error) {
	jsonDoc, err := JSON(segments)
	if err != nil {
		return Package{}, services.Wrap(services.ErrValidation, "formatter", "build", "failed to render JSON caption document", err)
	}
	return Package{
		SRT:              SRT(segments),
		VTT:              VTT(segments),
		JSON:             jsonDoc,
		Transcript:       Transcript(segments, transcriptOpts),
		ScriptWithTiming: ScriptWithTiming(segments),
	}, nil
}

// writeOrder fixes a deterministic iteration order for WriteAll, since map
// iteration order is randomized and tests/logs should be reproducible.
var writeOrder = []string{".srt", ".vtt", ".json", ".txt", ".timing.txt"}

// WriteAll writes every non-empty member of pkg to
// <outputDir>/<base>.{srt,vtt,json,txt,timing.txt}, holding a directory lock
// for the duration of the write so concurrent runs against the same output
// directory cannot interleave partial writes. A single format's write
// failure is logged and skipped rather than aborting the whole request;
// WriteAll only returns an error when every requested format failed, or
// when the output directory itself can't be prepared or locked.
func WriteAll(outputDir, base string, pkg Package, logger *slog.Logger) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "formatter", "write", "failed to create output directory", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock := flock.New(filepath.Join(outputDir, ".captionforge.lock"))
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		return services.Wrap(services.ErrTimeout, "formatter", "write", "timed out waiting for output directory lock", err)
	}
	defer lock.Unlock()

	files := map[string]string{
		".srt":        pkg.SRT,
		".vtt":        pkg.VTT,
		".json":       pkg.JSON,
		".txt":        pkg.Transcript,
		".timing.txt": pkg.ScriptWithTiming,
	}

	var wrote, failed int
	for _, ext := range writeOrder {
		content := files[ext]
		if content == "" {
			continue
		}
		name := base + ext
		if err := writeAtomic(filepath.Join(outputDir, name), content); err != nil {
			failed++
			if logger != nil {
				logger.Warn("failed to write caption file",
					logging.String("file", name),
					logging.Error(err),
				)
			}
			continue
		}
		wrote++
	}

	if wrote == 0 && failed > 0 {
		return services.Wrap(services.ErrExternalTool, "formatter", "write", "failed to write any caption file", nil)
	}
	return nil
}

func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
