package align

import (
	"context"
	"math"
	"strings"

	"github.com/lzhgus/captionforge/internal/script"
)

// Engine cascades WordAligner -> SilenceAligner -> HeuristicEstimator,
// falling through to the next strategy whenever one signals Unavailable.
type Engine struct {
	WordAligner    *WordAligner
	SilenceAligner *SilenceAligner
	Heuristic      *HeuristicEstimator
	WordEnabled    bool
	SilenceEnabled bool
}

// NewEngine constructs an Engine from its component strategies.
func NewEngine(word *WordAligner, silence *SilenceAligner, heuristic *HeuristicEstimator, wordEnabled, silenceEnabled bool) *Engine {
	return &Engine{WordAligner: word, SilenceAligner: silence, Heuristic: heuristic, WordEnabled: wordEnabled, SilenceEnabled: silenceEnabled}
}

// Align runs the cascade and returns the segments produced by the first
// strategy that succeeds, plus the strategy name used.
func (e *Engine) Align(ctx context.Context, units []script.Unit, audioDuration float64, speakerMapping map[int]string, audioPath string) ([]Segment, Strategy) {
	if e.WordEnabled && e.WordAligner != nil {
		outcome := e.WordAligner.Align(ctx, audioPath, units, speakerMapping, audioDuration)
		if !outcome.Unavailable {
			return outcome.Segments, StrategyWordAligner
		}
	}
	if e.SilenceEnabled && e.SilenceAligner != nil {
		outcome := e.SilenceAligner.Align(ctx, audioPath, units, speakerMapping, audioDuration)
		if !outcome.Unavailable {
			return outcome.Segments, StrategySilenceAligner
		}
	}
	outcome := e.Heuristic.Estimate(units, speakerMapping, audioDuration)
	return outcome.Segments, StrategyHeuristicEstimate
}

// SplitLongSegments splits any segment longer than maxDuration into
// ceil(duration/maxDuration) equal sub-segments by dividing its word list as
// evenly as possible and distributing time uniformly. Does not preserve
// sentence boundaries.
func SplitLongSegments(segments []Segment, maxDuration float64) []Segment {
	if maxDuration <= 0 {
		return segments
	}
	var result []Segment
	for _, seg := range segments {
		duration := seg.EndTime - seg.StartTime
		if duration <= maxDuration {
			result = append(result, seg)
			continue
		}
		pieces := int(math.Ceil(duration / maxDuration))
		words := strings.Fields(seg.Text)
		if pieces > len(words) {
			pieces = len(words)
		}
		if pieces <= 1 {
			result = append(result, seg)
			continue
		}

		base := len(words) / pieces
		extra := len(words) % pieces
		pieceDuration := duration / float64(pieces)
		wordStart := 0
		cursor := seg.StartTime
		for i := 0; i < pieces; i++ {
			count := base
			if i < extra {
				count++
			}
			pieceWords := words[wordStart : wordStart+count]
			wordStart += count
			text := strings.Join(pieceWords, " ")
			sub := seg
			sub.Text = text
			sub.WordCount = len(pieceWords)
			sub.CharCount = len(text)
			sub.StartTime = cursor
			sub.EndTime = cursor + pieceDuration
			cursor = sub.EndTime
			result = append(result, sub)
		}
	}
	return result
}

// Rescale uniformly scales every segment's start/end times so the final
// segment ends exactly at targetDuration, preserving relative proportions.
func Rescale(segments []Segment, targetDuration float64) {
	if len(segments) == 0 {
		return
	}
	currentEnd := segments[len(segments)-1].EndTime
	if currentEnd <= 0 || currentEnd == targetDuration {
		return
	}
	scale := targetDuration / currentEnd
	for i := range segments {
		segments[i].StartTime *= scale
		segments[i].EndTime *= scale
	}
	segments[len(segments)-1].EndTime = targetDuration
}
