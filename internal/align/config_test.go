package align_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lzhgus/captionforge/internal/align"
	"github.com/lzhgus/captionforge/internal/asr"
	"github.com/lzhgus/captionforge/internal/script"
	"github.com/lzhgus/captionforge/internal/silence"
	"github.com/lzhgus/captionforge/internal/testsupport"
)

// TestEngineFromConfigFallsThroughToHeuristic builds the cascade the same
// way the CLI does, from a config with both aligners disabled, and checks
// the engine reports the heuristic strategy.
func TestEngineFromConfigFallsThroughToHeuristic(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.DisableWordAligner(),
		testsupport.DisableSilenceAligner(),
	)

	runner := asr.NewRunner(cfg.ASRBinary, cfg.LogDir)
	wordAligner := align.NewWordAligner(runner, cfg.WordMatchHighRatio, cfg.WordMatchLowRatio, cfg.WordMatchSearchWindow, cfg.WordsPerMinute)
	detector := silence.NewDetector(cfg.FFmpegBinary, cfg.SilenceNoiseDB, cfg.SilenceMinDuration)
	silenceAligner := align.NewSilenceAligner(detector, cfg.SilenceMinSpeechSeconds, cfg.SilenceAdjacentMergeGap, cfg.SilenceCalibrationOffset)
	heuristic := align.NewHeuristicEstimator(cfg.PauseDiffSpeakerSeconds, cfg.PauseSameSpeakerSeconds, cfg.HeuristicMinSegmentSeconds, cfg.HeuristicMaxSegmentSeconds)
	engine := align.NewEngine(wordAligner, silenceAligner, heuristic, cfg.WordAlignerEnabled, cfg.SilenceAlignerEnabled)

	units := script.Parse("Speaker 1: Hello there.\nSpeaker 2: Hi back!")
	segments, strategy := engine.Align(context.Background(), units, 6.0, nil, "unused.wav")

	if strategy != align.StrategyHeuristicEstimate {
		t.Fatalf("expected heuristic fallback, got %s", strategy)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].EndTime != 6.0 {
		t.Fatalf("expected last segment to end at audio duration, got %v", segments[1].EndTime)
	}
}

// TestEngineFromConfigWithWordAlignerEnabledFallsBackOnNoASRMatch exercises
// the WordAligner path when it is enabled but the stub ASR binary produces
// no usable transcript, confirming the cascade still reaches heuristic.
func TestEngineFromConfigWithWordAlignerEnabledFallsBackOnNoASRMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.DisableSilenceAligner())

	runner := asr.NewRunner(cfg.ASRBinary, cfg.LogDir)
	wordAligner := align.NewWordAligner(runner, cfg.WordMatchHighRatio, cfg.WordMatchLowRatio, cfg.WordMatchSearchWindow, cfg.WordsPerMinute)
	heuristic := align.NewHeuristicEstimator(cfg.PauseDiffSpeakerSeconds, cfg.PauseSameSpeakerSeconds, cfg.HeuristicMinSegmentSeconds, cfg.HeuristicMaxSegmentSeconds)
	engine := align.NewEngine(wordAligner, nil, heuristic, cfg.WordAlignerEnabled, false)

	units := script.Parse("Speaker 1: Totally unrelated transcript content.")
	_, strategy := engine.Align(context.Background(), units, 5.0, nil, "unused.wav")

	if strategy != align.StrategyHeuristicEstimate {
		t.Fatalf("expected fallback to heuristic when ASR stub yields nothing usable, got %s", strategy)
	}
}

// TestWordAlignerFallsBackToConfiguredWPMForUnmatchedUnit exercises the
// per-unit proportional fallback inside the WordAligner: one unit matches
// the stub transcript exactly, the other shares no words with it, so its
// span must come from the configured words-per-minute rate rather than
// from a match.
func TestWordAlignerFallsBackToConfiguredWPMForUnmatchedUnit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWordsPerMinute(30), testsupport.DisableSilenceAligner())

	audioPath := filepath.Join(testsupport.BaseDir(cfg), "audio.wav")
	testsupport.WriteFile(t, audioPath, 2048)

	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	stubScript := "#!/bin/sh\ncat <<'EOF'\n" +
		`{"segments":[{"words":[{"word":"hello","start":0.0,"end":0.4},{"word":"there","start":0.4,"end":0.8}]}]}` +
		"\nEOF\n"
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	stubPath := filepath.Join(binDir, "whisperx")
	if err := os.WriteFile(stubPath, []byte(stubScript), 0o755); err != nil {
		t.Fatalf("write stub ASR: %v", err)
	}
	cfg.ASRBinary = stubPath

	runner := asr.NewRunner(cfg.ASRBinary, cfg.LogDir)
	wordAligner := align.NewWordAligner(runner, cfg.WordMatchHighRatio, cfg.WordMatchLowRatio, cfg.WordMatchSearchWindow, cfg.WordsPerMinute)

	units := script.Parse("Speaker 1: Hello there.\nSpeaker 1: Unrelated closing remark.\nSpeaker 1: Final line.")
	outcome := wordAligner.Align(context.Background(), audioPath, units, nil, 10.0)
	if outcome.Unavailable {
		t.Fatalf("expected word aligner to produce a partial outcome, got unavailable: %s", outcome.Reason)
	}
	segments := outcome.Segments
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	wantDuration := float64(units[1].WordCount) / (30.0 / 60.0)
	gotDuration := segments[1].EndTime - segments[1].StartTime
	if diff := gotDuration - wantDuration; diff > 0.01 || diff < -0.01 {
		t.Fatalf("expected fallback duration %.3f from configured WPM, got %.3f", wantDuration, gotDuration)
	}
}
