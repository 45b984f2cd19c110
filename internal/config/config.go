// Package config loads and validates captionforge's runtime configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config encapsulates all configuration values for captionforge.
type Config struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`

	ASRBinary     string `toml:"asr_binary"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`

	WordsPerMinute int `toml:"words_per_minute"`
	MaxWordsPerUnit int `toml:"max_words_per_unit"`

	WordAlignerEnabled    bool    `toml:"word_aligner_enabled"`
	WordMatchSearchWindow int     `toml:"word_match_search_window"`
	WordMatchHighRatio    float64 `toml:"word_match_high_ratio"`
	WordMatchLowRatio     float64 `toml:"word_match_low_ratio"`

	SilenceAlignerEnabled    bool    `toml:"silence_aligner_enabled"`
	SilenceNoiseDB           float64 `toml:"silence_noise_db"`
	SilenceMinDuration       float64 `toml:"silence_min_duration"`
	SilenceMinSpeechSeconds  float64 `toml:"silence_min_speech_seconds"`
	SilenceAdjacentMergeGap  float64 `toml:"silence_adjacent_merge_seconds"`
	SilenceCalibrationOffset float64 `toml:"silence_calibration_offset_seconds"`

	HeuristicMinSegmentSeconds float64 `toml:"heuristic_min_segment_seconds"`
	HeuristicMaxSegmentSeconds float64 `toml:"heuristic_max_segment_seconds"`
	PauseDiffSpeakerSeconds    float64 `toml:"pause_diff_speaker_seconds"`
	PauseSameSpeakerSeconds    float64 `toml:"pause_same_speaker_seconds"`

	MaxSegmentSeconds float64 `toml:"max_segment_seconds"`
}

const (
	defaultOutputDir = "~/.local/share/captionforge/output"
	defaultLogDir    = "~/.local/share/captionforge/logs"
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultASRBinary     = "whisperx"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"

	defaultWordsPerMinute  = 150
	defaultMaxWordsPerUnit = 15

	defaultWordMatchSearchWindow = 200
	defaultWordMatchHighRatio    = 0.7
	defaultWordMatchLowRatio     = 0.5

	defaultSilenceNoiseDB           = -30.0
	defaultSilenceMinDuration       = 0.25
	defaultSilenceMinSpeechSeconds  = 0.6
	defaultSilenceAdjacentMergeGap  = 1.5
	defaultSilenceCalibrationOffset = 3.0

	defaultHeuristicMinSegmentSeconds = 1.0
	defaultHeuristicMaxSegmentSeconds = 60.0
	defaultPauseDiffSpeakerSeconds    = 1.0
	defaultPauseSameSpeakerSeconds    = 0.8

	defaultMaxSegmentSeconds = 8.0
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		OutputDir: defaultOutputDir,
		LogDir:    defaultLogDir,
		LogFormat: defaultLogFormat,
		LogLevel:  defaultLogLevel,

		ASRBinary:     defaultASRBinary,
		FFmpegBinary:  defaultFFmpegBinary,
		FFprobeBinary: defaultFFprobeBinary,

		WordsPerMinute:  defaultWordsPerMinute,
		MaxWordsPerUnit: defaultMaxWordsPerUnit,

		WordAlignerEnabled:    true,
		WordMatchSearchWindow: defaultWordMatchSearchWindow,
		WordMatchHighRatio:    defaultWordMatchHighRatio,
		WordMatchLowRatio:     defaultWordMatchLowRatio,

		SilenceAlignerEnabled:    true,
		SilenceNoiseDB:           defaultSilenceNoiseDB,
		SilenceMinDuration:       defaultSilenceMinDuration,
		SilenceMinSpeechSeconds:  defaultSilenceMinSpeechSeconds,
		SilenceAdjacentMergeGap:  defaultSilenceAdjacentMergeGap,
		SilenceCalibrationOffset: defaultSilenceCalibrationOffset,

		HeuristicMinSegmentSeconds: defaultHeuristicMinSegmentSeconds,
		HeuristicMaxSegmentSeconds: defaultHeuristicMaxSegmentSeconds,
		PauseDiffSpeakerSeconds:    defaultPauseDiffSpeakerSeconds,
		PauseSameSpeakerSeconds:    defaultPauseSameSpeakerSeconds,

		MaxSegmentSeconds: defaultMaxSegmentSeconds,
	}
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/captionforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/captionforge/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("captionforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.OutputDir, err = expandPath(c.OutputDir); err != nil {
		return fmt.Errorf("output_dir: %w", err)
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = defaultLogDir
	}
	if c.LogDir, err = expandPath(c.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "":
		c.LogFormat = defaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	c.ASRBinary = strings.TrimSpace(c.ASRBinary)
	if c.ASRBinary == "" {
		c.ASRBinary = defaultASRBinary
	}
	c.FFmpegBinary = strings.TrimSpace(c.FFmpegBinary)
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFprobeBinary = strings.TrimSpace(c.FFprobeBinary)
	if c.FFprobeBinary == "" {
		c.FFprobeBinary = defaultFFprobeBinary
	}

	if c.WordsPerMinute <= 0 {
		c.WordsPerMinute = defaultWordsPerMinute
	}
	if c.MaxWordsPerUnit <= 0 {
		c.MaxWordsPerUnit = defaultMaxWordsPerUnit
	}
	if c.WordMatchSearchWindow <= 0 {
		c.WordMatchSearchWindow = defaultWordMatchSearchWindow
	}
	if c.WordMatchHighRatio <= 0 {
		c.WordMatchHighRatio = defaultWordMatchHighRatio
	}
	if c.WordMatchLowRatio <= 0 {
		c.WordMatchLowRatio = defaultWordMatchLowRatio
	}
	if c.SilenceNoiseDB == 0 {
		c.SilenceNoiseDB = defaultSilenceNoiseDB
	}
	if c.SilenceMinDuration <= 0 {
		c.SilenceMinDuration = defaultSilenceMinDuration
	}
	if c.SilenceMinSpeechSeconds <= 0 {
		c.SilenceMinSpeechSeconds = defaultSilenceMinSpeechSeconds
	}
	if c.SilenceAdjacentMergeGap <= 0 {
		c.SilenceAdjacentMergeGap = defaultSilenceAdjacentMergeGap
	}
	if c.SilenceCalibrationOffset == 0 {
		c.SilenceCalibrationOffset = defaultSilenceCalibrationOffset
	}
	if c.HeuristicMinSegmentSeconds <= 0 {
		c.HeuristicMinSegmentSeconds = defaultHeuristicMinSegmentSeconds
	}
	if c.HeuristicMaxSegmentSeconds <= 0 {
		c.HeuristicMaxSegmentSeconds = defaultHeuristicMaxSegmentSeconds
	}
	if c.PauseDiffSpeakerSeconds <= 0 {
		c.PauseDiffSpeakerSeconds = defaultPauseDiffSpeakerSeconds
	}
	if c.PauseSameSpeakerSeconds <= 0 {
		c.PauseSameSpeakerSeconds = defaultPauseSameSpeakerSeconds
	}
	if c.MaxSegmentSeconds <= 0 {
		c.MaxSegmentSeconds = defaultMaxSegmentSeconds
	}

	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.WordsPerMinute <= 0 {
		return errors.New("words_per_minute must be positive")
	}
	if c.MaxWordsPerUnit <= 0 {
		return errors.New("max_words_per_unit must be positive")
	}
	if c.WordMatchHighRatio < c.WordMatchLowRatio {
		return errors.New("word_match_high_ratio must be >= word_match_low_ratio")
	}
	if c.HeuristicMaxSegmentSeconds <= c.HeuristicMinSegmentSeconds {
		return errors.New("heuristic_max_segment_seconds must be greater than heuristic_min_segment_seconds")
	}
	if err := ensurePositiveFloatMap(map[string]float64{
		"silence_min_duration":        c.SilenceMinDuration,
		"silence_min_speech_seconds":  c.SilenceMinSpeechSeconds,
		"max_segment_seconds":         c.MaxSegmentSeconds,
		"pause_diff_speaker_seconds":  c.PauseDiffSpeakerSeconds,
		"pause_same_speaker_seconds":  c.PauseSameSpeakerSeconds,
	}); err != nil {
		return err
	}
	return nil
}

// EnsureDirectories creates the directories captionforge writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := `# captionforge configuration
# ===========================

# ============================================================================
# PATHS
# ============================================================================

output_dir = "~/.local/share/captionforge/output"    # Where caption files are written
log_dir = "~/.local/share/captionforge/logs"         # Log output directory

# ============================================================================
# EXTERNAL TOOLS
# ============================================================================

asr_binary = "whisperx"                              # Word-aligner ASR binary on PATH
ffmpeg_binary = "ffmpeg"                             # Used for silencedetect fallback alignment
ffprobe_binary = "ffprobe"                           # Used to read source audio duration

# ============================================================================
# TIMING MODEL
# ============================================================================

words_per_minute = 150                               # Fallback speaking rate for units the word aligner cannot match
max_words_per_unit = 15                              # Validated only; script parsing uses its built-in 15-word budget
max_segment_seconds = 8.0                            # Segments longer than this are re-split after timing

word_aligner_enabled = true
word_match_search_window = 200
word_match_high_ratio = 0.7
word_match_low_ratio = 0.5

silence_aligner_enabled = true
silence_noise_db = -30.0
silence_min_duration = 0.25
silence_min_speech_seconds = 0.6
silence_adjacent_merge_seconds = 1.5
silence_calibration_offset_seconds = 3.0

heuristic_min_segment_seconds = 1.0
heuristic_max_segment_seconds = 60.0
pause_diff_speaker_seconds = 1.0
pause_same_speaker_seconds = 0.8

# ============================================================================
# LOGGING
# ============================================================================

log_format = "console"                               # "console" or "json"
log_level = "info"                                   # debug, info, warn, error
`

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func ensurePositiveFloatMap(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
