package align

import (
	"context"
	"strings"

	"github.com/lzhgus/captionforge/internal/script"
	"github.com/lzhgus/captionforge/internal/silence"
)

// SilenceAligner derives segments from detected silence intervals, mapping
// units to the resulting speech spans proportionally by word count.
type SilenceAligner struct {
	Detector             *silence.Detector
	MinSpeechSeconds     float64
	AdjacentMergeSeconds float64
	CalibrationOffset    float64
}

// NewSilenceAligner constructs a SilenceAligner with the given detector and
// span-merging thresholds.
func NewSilenceAligner(detector *silence.Detector, minSpeechSeconds, adjacentMergeSeconds, calibrationOffset float64) *SilenceAligner {
	return &SilenceAligner{
		Detector:             detector,
		MinSpeechSeconds:     minSpeechSeconds,
		AdjacentMergeSeconds: adjacentMergeSeconds,
		CalibrationOffset:    calibrationOffset,
	}
}

// Align detects silences in audioPath, derives N speech spans (N = unit
// count), and allocates each unit's proportional share of the speech
// timeline. Returns Unavailable when silence detection fails or finds
// nothing.
func (a *SilenceAligner) Align(ctx context.Context, audioPath string, units []script.Unit, speakerMapping map[int]string, audioDuration float64) Outcome {
	if a == nil || a.Detector == nil || strings.TrimSpace(audioPath) == "" || len(units) == 0 {
		return NotAvailable("no audio path or silence detector configured")
	}

	silences, err := a.Detector.DetectSilences(ctx, audioPath)
	if err != nil {
		return NotAvailable("silence detection failed: " + err.Error())
	}

	spans := silence.SpeechSpans(silences, audioDuration, a.MinSpeechSeconds, a.AdjacentMergeSeconds)
	reconciled, err := silence.ReconcileCount(spans, silences, len(units), audioDuration)
	if err != nil {
		return NotAvailable("span reconciliation failed: " + err.Error())
	}

	totalSpeech := 0.0
	for _, s := range reconciled {
		totalSpeech += s.End - s.Start
	}
	totalWords := totalWordCount(units)
	if totalSpeech <= 0 || totalWords == 0 {
		return NotAvailable("no speech duration or words to allocate")
	}

	cursor := 0.0
	startCursors := make([]float64, len(units))
	endCursors := make([]float64, len(units))
	for i, unit := range units {
		share := totalSpeech * (float64(unit.WordCount) / float64(totalWords))
		startCursors[i] = cursor
		cursor += share
		endCursors[i] = cursor
	}

	segments := buildSegments(units, speakerMapping, func(i int) (float64, float64) {
		start := positionOnTimeline(reconciled, startCursors[i]) + a.CalibrationOffset
		end := positionOnTimeline(reconciled, endCursors[i]) + a.CalibrationOffset
		return clamp(start, 0, audioDuration), clamp(end, 0, audioDuration)
	})
	enforceMonotonic(segments)
	if len(segments) > 0 {
		segments[len(segments)-1].EndTime = audioDuration
	}
	return Available(segments)
}

// positionOnTimeline walks the concatenated speech spans and translates a
// cumulative-duration cursor position back into an absolute time.
func positionOnTimeline(spans []silence.Interval, cursor float64) float64 {
	remaining := cursor
	for _, span := range spans {
		length := span.End - span.Start
		if remaining <= length {
			return span.Start + remaining
		}
		remaining -= length
	}
	if len(spans) == 0 {
		return 0
	}
	return spans[len(spans)-1].End
}
