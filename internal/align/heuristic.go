package align

import (
	"github.com/lzhgus/captionforge/internal/script"
)

// HeuristicEstimator distributes audio_duration across units in proportion
// to their word counts, with pauses that depend on whether the speaker
// changes and a progressive-slowdown curve, without inspecting audio. It always produces segments summing to
// exactly audio_duration.
type HeuristicEstimator struct {
	PauseDiffSpeakerSeconds float64
	PauseSameSpeakerSeconds float64
	MinSegmentSeconds       float64
	MaxSegmentSeconds       float64
}

// NewHeuristicEstimator constructs a HeuristicEstimator with the given pause
// and clamp budgets.
func NewHeuristicEstimator(pauseDiff, pauseSame, minSeg, maxSeg float64) *HeuristicEstimator {
	return &HeuristicEstimator{
		PauseDiffSpeakerSeconds: pauseDiff,
		PauseSameSpeakerSeconds: pauseSame,
		MinSegmentSeconds:       minSeg,
		MaxSegmentSeconds:       maxSeg,
	}
}

// Estimate always succeeds for a non-empty unit list; an empty list returns
// Unavailable since there is nothing to time.
func (h *HeuristicEstimator) Estimate(units []script.Unit, speakerMapping map[int]string, audioDuration float64) Outcome {
	if h == nil || len(units) == 0 {
		return NotAvailable("no units to estimate")
	}

	pauses := h.computePauses(units)
	totalPause := sum(pauses)
	available := audioDuration - totalPause
	if available < 0 {
		available = 0
	}

	totalWords := totalWordCount(units)
	durations := make([]float64, len(units))
	for i, unit := range units {
		base := available * (float64(unit.WordCount) / float64(totalWords))
		if progress := pastTwentyPercent(i, len(units)); progress > 0 {
			base *= 1 + 0.60*progress
		}
		durations[i] = clamp(base, h.MinSegmentSeconds, h.MaxSegmentSeconds)
	}

	total := sum(durations) + totalPause
	if total > 0 && total != audioDuration {
		scale := audioDuration / total
		for i := range durations {
			durations[i] *= scale
		}
		for i := range pauses {
			pauses[i] *= scale
		}
	}

	cursor := 0.0
	spans := make([][2]float64, len(units))
	for i := range units {
		start := cursor
		end := start + durations[i]
		spans[i] = [2]float64{start, end}
		cursor = end
		if i < len(pauses) {
			cursor += pauses[i]
		}
	}

	segments := buildSegments(units, speakerMapping, func(i int) (float64, float64) {
		return spans[i][0], spans[i][1]
	})
	if len(segments) > 0 {
		segments[len(segments)-1].EndTime = audioDuration
	}
	return Available(segments)
}

// computePauses returns the pause following each unit except the last
// (length len(units)-1), scaled up in the latter half of the sequence.
func (h *HeuristicEstimator) computePauses(units []script.Unit) []float64 {
	if len(units) < 2 {
		return nil
	}
	pauses := make([]float64, len(units)-1)
	for i := 0; i < len(units)-1; i++ {
		pause := h.PauseSameSpeakerSeconds
		if units[i].SpeakerID != units[i+1].SpeakerID {
			pause = h.PauseDiffSpeakerSeconds
		}
		if progress := pastHalfway(i, len(units)); progress > 0 {
			pause *= 1 + 0.5*progress
		}
		pauses[i] = pause
	}
	return pauses
}

// pastHalfway returns progress in [0,1] for how far pairIndex is into the
// latter half of pairCount pairs, or 0 if it is in the first half.
func pastHalfway(pairIndex, pairCount int) float64 {
	if pairCount <= 0 {
		return 0
	}
	half := float64(pairCount) / 2
	if float64(pairIndex) < half {
		return 0
	}
	return (float64(pairIndex) - half) / half
}

// pastTwentyPercent returns progress in [0,1] for how far unitIndex is past
// the 20% mark of unitCount units, or 0 before that mark.
func pastTwentyPercent(unitIndex, unitCount int) float64 {
	if unitCount <= 0 {
		return 0
	}
	threshold := 0.2 * float64(unitCount)
	if float64(unitIndex) < threshold {
		return 0
	}
	span := float64(unitCount) - threshold
	if span <= 0 {
		return 1
	}
	return (float64(unitIndex) - threshold) / span
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
