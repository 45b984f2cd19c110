package align

import (
	"context"
	"strings"

	"github.com/lzhgus/captionforge/internal/asr"
	"github.com/lzhgus/captionforge/internal/script"
	"github.com/lzhgus/captionforge/internal/textutil"
)

const wordMatchSearchWindow = 200

// WordAligner matches parsed units against ASR word-level timings by
// forward-only monotonic search, falling back to proportional placement for
// unmatched units.
type WordAligner struct {
	Runner       *asr.Runner
	HighRatio    float64
	LowRatio     float64
	SearchWindow int
	DefaultWPM   int
}

// NewWordAligner constructs a WordAligner with the given matching
// thresholds. A zero SearchWindow falls back to wordMatchSearchWindow.
func NewWordAligner(runner *asr.Runner, highRatio, lowRatio float64, searchWindow, defaultWPM int) *WordAligner {
	if searchWindow <= 0 {
		searchWindow = wordMatchSearchWindow
	}
	return &WordAligner{Runner: runner, HighRatio: highRatio, LowRatio: lowRatio, SearchWindow: searchWindow, DefaultWPM: defaultWPM}
}

// Align invokes the ASR and matches its word stream to units in order.
// Returns Unavailable when the ASR cannot run or produces zero word
// timings.
func (a *WordAligner) Align(ctx context.Context, audioPath string, units []script.Unit, speakerMapping map[int]string, audioDuration float64) Outcome {
	if a == nil || a.Runner == nil || strings.TrimSpace(audioPath) == "" {
		return NotAvailable("no audio path or ASR runner configured")
	}
	words, err := a.Runner.Transcribe(ctx, audioPath)
	if err != nil || len(words) == 0 {
		return NotAvailable("ASR unavailable or produced no word timings")
	}

	normalizedASR := make([]string, len(words))
	for i, w := range words {
		normalizedASR[i] = textutil.NormalizeToken(w.Text)
	}

	totalWords := totalWordCount(units)
	cumulativeBefore := 0
	wordIdx := 0
	spans := make([][2]float64, len(units))
	matched := make([]bool, len(units))

	for i, unit := range units {
		unitWords := strings.Fields(unit.Text)
		normalizedUnit := make([]string, len(unitWords))
		for j, w := range unitWords {
			normalizedUnit[j] = textutil.NormalizeToken(w)
		}

		start, end, newIdx, ok := matchUnit(normalizedASR, words, normalizedUnit, wordIdx, a.SearchWindow, a.HighRatio, a.LowRatio)
		if ok {
			spans[i] = [2]float64{start, end}
			matched[i] = true
			wordIdx = newIdx
		} else {
			proportionalStart := (float64(cumulativeBefore) / float64(totalWords)) * audioDuration
			duration := float64(unit.WordCount) / (float64(a.DefaultWPM) / 60.0)
			spans[i] = [2]float64{proportionalStart, proportionalStart + duration}
		}
		cumulativeBefore += unit.WordCount
	}

	segments := buildSegments(units, speakerMapping, func(i int) (float64, float64) {
		return spans[i][0], spans[i][1]
	})
	enforceMonotonic(segments)
	if len(segments) > 0 {
		segments[len(segments)-1].EndTime = audioDuration
	}
	return Available(segments)
}

// matchUnit searches forward from wordIdx for the first ASR word equal to
// the unit's first normalized word, within window words. It returns the
// matched span, the cursor position after consuming the match, and whether
// the match met the acceptance threshold.
func matchUnit(normalizedASR []string, words []asr.Word, normalizedUnit []string, wordIdx, window int, highRatio, lowRatio float64) (float64, float64, int, bool) {
	if len(normalizedUnit) == 0 {
		return 0, 0, wordIdx, false
	}
	limit := wordIdx + window
	if limit > len(normalizedASR) {
		limit = len(normalizedASR)
	}

	for start := wordIdx; start < limit; start++ {
		if normalizedASR[start] != normalizedUnit[0] {
			continue
		}

		maxLookahead := start + len(normalizedUnit) + 5
		if maxLookahead > len(normalizedASR) {
			maxLookahead = len(normalizedASR)
		}

		matchedCount := 0
		asrCursor := start
		unitCursor := 0
		for asrCursor < maxLookahead && unitCursor < len(normalizedUnit) {
			if wordsEquivalent(normalizedASR[asrCursor], normalizedUnit[unitCursor]) {
				matchedCount++
				asrCursor++
				unitCursor++
				continue
			}
			if float64(matchedCount) >= highRatio*float64(len(normalizedUnit)) {
				break
			}
			asrCursor++
		}

		ratio := float64(matchedCount) / float64(len(normalizedUnit))
		if ratio >= lowRatio {
			lastIdx := asrCursor - 1
			if lastIdx < start {
				lastIdx = start
			}
			if lastIdx >= len(words) {
				lastIdx = len(words) - 1
			}
			return words[start].Start, words[lastIdx].End, asrCursor, true
		}
	}
	return 0, 0, wordIdx, false
}

func wordsEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	return strings.ReplaceAll(a, "'", "") == strings.ReplaceAll(b, "'", "")
}
