package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/lzhgus/captionforge/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "captionforge", "output")
	if cfg.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.OutputDir, wantOutput)
	}
	if cfg.WordsPerMinute != 150 {
		t.Fatalf("expected default words_per_minute 150, got %d", cfg.WordsPerMinute)
	}
	if cfg.MaxWordsPerUnit != 15 {
		t.Fatalf("expected default max_words_per_unit 15, got %d", cfg.MaxWordsPerUnit)
	}
	if !cfg.WordAlignerEnabled || !cfg.SilenceAlignerEnabled {
		t.Fatal("expected both aligners enabled by default")
	}
	if cfg.HeuristicMinSegmentSeconds != 1.0 {
		t.Fatalf("unexpected heuristic min segment seconds: %v", cfg.HeuristicMinSegmentSeconds)
	}
	if cfg.SilenceMinSpeechSeconds != 0.6 {
		t.Fatalf("unexpected silence min speech seconds: %v", cfg.SilenceMinSpeechSeconds)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.OutputDir, cfg.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "captionforge.toml")

	type payload struct {
		WordsPerMinute int    `toml:"words_per_minute"`
		ASRBinary      string `toml:"asr_binary"`
	}
	custom := payload{WordsPerMinute: 180, ASRBinary: "custom-asr"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.WordsPerMinute != 180 {
		t.Fatalf("expected words_per_minute 180, got %d", cfg.WordsPerMinute)
	}
	if cfg.ASRBinary != "custom-asr" {
		t.Fatalf("expected asr_binary override, got %q", cfg.ASRBinary)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "asr_binary") {
		t.Fatalf("sample config missing asr_binary: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.OutputDir, "captionforge") {
			t.Fatalf("expected output dir to contain captionforge, got %q", cfg.OutputDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.WordsPerMinute = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive words_per_minute")
	}

	cfg = config.Default()
	cfg.MaxWordsPerUnit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive max_words_per_unit")
	}

	cfg = config.Default()
	cfg.WordMatchHighRatio = 0.4
	cfg.WordMatchLowRatio = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when high ratio is below low ratio")
	}

	cfg = config.Default()
	cfg.HeuristicMinSegmentSeconds = 10
	cfg.HeuristicMaxSegmentSeconds = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when max segment seconds <= min segment seconds")
	}

	cfg = config.Default()
	cfg.MaxSegmentSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive max_segment_seconds")
	}
}
