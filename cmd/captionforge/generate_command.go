package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lzhgus/captionforge/internal/align"
	"github.com/lzhgus/captionforge/internal/asr"
	"github.com/lzhgus/captionforge/internal/captionfmt"
	"github.com/lzhgus/captionforge/internal/config"
	"github.com/lzhgus/captionforge/internal/fileutil"
	"github.com/lzhgus/captionforge/internal/logging"
	"github.com/lzhgus/captionforge/internal/media/ffprobe"
	"github.com/lzhgus/captionforge/internal/script"
	"github.com/lzhgus/captionforge/internal/services"
	"github.com/lzhgus/captionforge/internal/silence"
)

// generateSteps names the pipeline phases shown on the progress bar.
var generateSteps = []string{"probing audio", "parsing script", "aligning", "formatting", "writing"}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var audioPath string
	var speakerNames []string
	var outputDir string
	var includeTimestamps bool
	var includeSpeakers bool
	var archiveScript bool
	var maxSegmentSeconds float64
	var showTable bool

	cmd := &cobra.Command{
		Use:   "generate <script-file>",
		Short: "Generate timed captions for a script and its matching audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requestID := uuid.NewString()
			runCtx := services.WithRequestID(cmd.Context(), requestID)

			bar := newGenerateProgressBar(cmd.OutOrStderr())
			defer bar.Close()

			scriptPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve script path: %w", err)
			}
			raw, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("read script file: %w", err)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			logger, err := ctx.newCLILogger(cfg, "generate")
			if err != nil {
				return err
			}
			logger = logger.With(logging.String("request_id", requestID))

			audio := strings.TrimSpace(audioPath)
			if audio == "" {
				return fmt.Errorf("--audio is required")
			}
			audio, err = filepath.Abs(audio)
			if err != nil {
				return fmt.Errorf("resolve audio path: %w", err)
			}

			bar.Describe(generateSteps[0])
			probe, err := ffprobe.Inspect(runCtx, cfg.FFprobeBinary, audio)
			if err != nil {
				return fmt.Errorf("inspect audio: %w", err)
			}
			duration := probe.DurationSeconds()
			if duration <= 0 {
				return fmt.Errorf("could not determine audio duration for %s", audio)
			}
			bar.Add(1)

			bar.Describe(generateSteps[1])
			units := script.Parse(string(raw))
			if len(units) == 0 {
				return fmt.Errorf("script contains no captioned units")
			}
			bar.Add(1)

			speakerMapping := parseSpeakerMapping(speakerNames)

			bar.Describe(generateSteps[2])
			engine := buildEngine(cfg, logger)
			segments, strategy := engine.Align(services.WithStage(runCtx, "align"), units, duration, speakerMapping, audio)
			splitAt := cfg.MaxSegmentSeconds
			if cmd.Flags().Changed("max-segment-seconds") {
				splitAt = maxSegmentSeconds
			}
			segments = align.SplitLongSegments(segments, splitAt)
			logger.Info("alignment complete",
				logging.String("strategy", string(strategy)),
				logging.Int("segment_count", len(segments)),
			)
			bar.Add(1)

			bar.Describe(generateSteps[3])
			pkg, err := captionfmt.Build(segments, captionfmt.TranscriptOptions{
				IncludeTimestamps: includeTimestamps,
				IncludeSpeakers:   includeSpeakers,
			})
			if err != nil {
				return fmt.Errorf("render captions: %w", err)
			}
			bar.Add(1)

			bar.Describe(generateSteps[4])
			outDir := strings.TrimSpace(outputDir)
			if outDir == "" {
				outDir = cfg.OutputDir
			}
			base := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
			if err := captionfmt.WriteAll(outDir, base, pkg, logger); err != nil {
				return fmt.Errorf("write captions: %w", err)
			}
			if archiveScript {
				archived := filepath.Join(outDir, base+filepath.Ext(scriptPath))
				if err := fileutil.CopyFileVerified(scriptPath, archived); err != nil {
					return fmt.Errorf("archive source script: %w", err)
				}
			}
			bar.Add(1)

			totalBytes := generatedOutputSize(outDir, base)
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d caption segments via %s -> %s (%s)\n",
				len(segments), strategy, outDir, humanize.Bytes(totalBytes))

			if showTable {
				fmt.Fprintln(cmd.OutOrStdout(), segmentTable(segments))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Path to the audio track matching the script (required)")
	cmd.Flags().StringSliceVar(&speakerNames, "speaker", nil, "Speaker name mapping as <id>=<name> (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for generated captions (default: config output_dir)")
	cmd.Flags().BoolVar(&includeTimestamps, "transcript-timestamps", true, "Include timestamps in the plain transcript output")
	cmd.Flags().BoolVar(&includeSpeakers, "transcript-speakers", true, "Include speaker names in the plain transcript output")
	cmd.Flags().BoolVar(&archiveScript, "archive-script", false, "Copy the source script into the output directory alongside the generated captions")
	cmd.Flags().Float64Var(&maxSegmentSeconds, "max-segment-seconds", 0, "Split segments longer than this many seconds into shorter cues (default: config max_segment_seconds)")
	cmd.Flags().BoolVar(&showTable, "table", false, "Print a summary table of the generated segments")

	return cmd
}

// newGenerateProgressBar renders a step progress bar when stderr is an
// interactive terminal, and a no-op bar otherwise so CI/pipe output stays
// clean.
func newGenerateProgressBar(out io.Writer) *progressbar.ProgressBar {
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return progressbar.NewOptions(len(generateSteps),
			progressbar.OptionSetWriter(f),
			progressbar.OptionSetDescription("starting"),
			progressbar.OptionClearOnFinish(),
		)
	}
	return progressbar.NewOptions(len(generateSteps), progressbar.OptionSetVisibility(false))
}

// segmentTable renders a rounded summary table of every generated segment:
// index, speaker, start/end timestamps, and the caption text.
func segmentTable(segments []align.Segment) string {
	headers := []string{"#", "Speaker", "Start", "End", "Text"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, len(segments))
	for i, seg := range segments {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			seg.SpeakerName,
			captionfmt.FormatSRTTimestamp(seg.StartTime),
			captionfmt.FormatSRTTimestamp(seg.EndTime),
			seg.Text,
		}
	}
	return renderTable(headers, rows, aligns)
}

func generatedOutputSize(outDir, base string) uint64 {
	var total uint64
	for _, ext := range []string{".srt", ".vtt", ".json", ".txt", ".timing.txt"} {
		info, err := os.Stat(filepath.Join(outDir, base+ext))
		if err != nil {
			continue
		}
		total += uint64(info.Size())
	}
	return total
}

// buildEngine wires the three cascading alignment strategies from config.
func buildEngine(cfg *config.Config, logger *slog.Logger) *align.Engine {
	runner := asr.NewRunner(cfg.ASRBinary, cfg.LogDir)
	wordAligner := align.NewWordAligner(runner, cfg.WordMatchHighRatio, cfg.WordMatchLowRatio, cfg.WordMatchSearchWindow, cfg.WordsPerMinute)

	detector := silence.NewDetector(cfg.FFmpegBinary, cfg.SilenceNoiseDB, cfg.SilenceMinDuration)
	silenceAligner := align.NewSilenceAligner(detector, cfg.SilenceMinSpeechSeconds, cfg.SilenceAdjacentMergeGap, cfg.SilenceCalibrationOffset)

	heuristic := align.NewHeuristicEstimator(cfg.PauseDiffSpeakerSeconds, cfg.PauseSameSpeakerSeconds, cfg.HeuristicMinSegmentSeconds, cfg.HeuristicMaxSegmentSeconds)

	logger.Debug("alignment engine constructed",
		logging.Bool("word_aligner_enabled", cfg.WordAlignerEnabled),
		logging.Bool("silence_aligner_enabled", cfg.SilenceAlignerEnabled),
	)

	return align.NewEngine(wordAligner, silenceAligner, heuristic, cfg.WordAlignerEnabled, cfg.SilenceAlignerEnabled)
}

func parseSpeakerMapping(entries []string) map[int]string {
	mapping := make(map[int]string, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		mapping[id] = strings.TrimSpace(parts[1])
	}
	return mapping
}
