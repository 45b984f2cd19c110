// Package silence derives speech intervals from an audio file by invoking an
// external silence-detection filter and parsing its diagnostic output.
package silence

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/lzhgus/captionforge/internal/services"
)

// Interval is a [Start, End] span in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Detector invokes an audio-probe tool's silence filter and derives speech
// intervals from its output.
type Detector struct {
	Binary      string
	NoiseDB     float64
	MinDuration float64
}

// NewDetector constructs a Detector bound to the given binary and filter
// thresholds.
func NewDetector(binary string, noiseDB, minDuration float64) *Detector {
	return &Detector{Binary: binary, NoiseDB: noiseDB, MinDuration: minDuration}
}

var (
	silenceStartPattern = regexp.MustCompile(`silence_start:\s*(-?[0-9.]+)`)
	silenceEndPattern   = regexp.MustCompile(`silence_end:\s*(-?[0-9.]+)`)
)

// DetectSilences runs the configured audio tool's silencedetect filter
// against audioPath and returns the paired silence intervals it reports.
func (d *Detector) DetectSilences(ctx context.Context, audioPath string) ([]Interval, error) {
	if d == nil || strings.TrimSpace(d.Binary) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "silence_aligner", "detect", "no audio tool configured", nil)
	}

	filter := "silencedetect=noise=" + strconv.FormatFloat(d.NoiseDB, 'f', -1, 64) +
		"dB:duration=" + strconv.FormatFloat(d.MinDuration, 'f', -1, 64)
	args := []string{"-hide_banner", "-i", audioPath, "-af", filter, "-f", "null", "-"}

	cmd := exec.CommandContext(ctx, d.Binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "silence_aligner", "detect", "silence detection tool failed", err)
	}

	intervals, err := parseSilenceOutput(string(output))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "silence_aligner", "detect", "failed to parse silence detection output", err)
	}
	if len(intervals) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "silence_aligner", "detect", "no silences detected", nil)
	}
	return intervals, nil
}

func parseSilenceOutput(output string) ([]Interval, error) {
	var intervals []Interval
	var pendingStart float64
	haveStart := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if m := silenceStartPattern.FindStringSubmatch(line); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			pendingStart = value
			haveStart = true
			continue
		}
		if m := silenceEndPattern.FindStringSubmatch(line); m != nil {
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if !haveStart {
				continue
			}
			intervals = append(intervals, Interval{Start: pendingStart, End: value})
			haveStart = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return intervals, nil
}

// SpeechSpans derives speech intervals as the complement of silences within
// [0, duration], merging spans shorter than minSpeechSeconds into the
// preceding span and then merging adjacent pairs both shorter than
// adjacentMergeSeconds.
func SpeechSpans(silences []Interval, duration, minSpeechSeconds, adjacentMergeSeconds float64) []Interval {
	if duration <= 0 {
		return nil
	}

	cursor := 0.0
	var spans []Interval
	for _, s := range silences {
		if s.Start > cursor {
			spans = append(spans, Interval{Start: cursor, End: s.Start})
		}
		if s.End > cursor {
			cursor = s.End
		}
	}
	if cursor < duration {
		spans = append(spans, Interval{Start: cursor, End: duration})
	}

	spans = mergeShortSpans(spans, minSpeechSeconds)
	spans = mergeAdjacentShortPairs(spans, adjacentMergeSeconds)
	return spans
}

func mergeShortSpans(spans []Interval, minSpeechSeconds float64) []Interval {
	var merged []Interval
	for _, span := range spans {
		if len(merged) > 0 && (span.End-span.Start) < minSpeechSeconds {
			merged[len(merged)-1].End = span.End
			continue
		}
		merged = append(merged, span)
	}
	return merged
}

func mergeAdjacentShortPairs(spans []Interval, adjacentMergeSeconds float64) []Interval {
	for {
		mergedAny := false
		var result []Interval
		i := 0
		for i < len(spans) {
			if i+1 < len(spans) &&
				(spans[i].End-spans[i].Start) < adjacentMergeSeconds &&
				(spans[i+1].End-spans[i+1].Start) < adjacentMergeSeconds {
				result = append(result, Interval{Start: spans[i].Start, End: spans[i+1].End})
				i += 2
				mergedAny = true
				continue
			}
			result = append(result, spans[i])
			i++
		}
		spans = result
		if !mergedAny {
			break
		}
	}
	return spans
}

// ReconcileCount adjusts spans so there are exactly n of them, per the
// longest-silence-boundary / uniform-interpolation / split-longest rules.
func ReconcileCount(spans []Interval, silences []Interval, n int, duration float64) ([]Interval, error) {
	if n <= 0 {
		return nil, errors.New("reconcile: unit count must be positive")
	}
	switch {
	case len(spans) == n:
		return spans, nil
	case len(spans) > n-1 && n > 1:
		spans = spansFromTopSilenceBoundaries(silences, n, duration)
	case len(spans) < n-1:
		spans = interpolateSpans(n, duration)
	}
	return forceSpanCount(spans, n), nil
}

func spansFromTopSilenceBoundaries(silences []Interval, n int, duration float64) []Interval {
	needed := n - 1
	sorted := append([]Interval(nil), silences...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if (sorted[j].End - sorted[j].Start) > (sorted[i].End - sorted[i].Start) {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if needed > len(sorted) {
		needed = len(sorted)
	}
	boundaries := make([]float64, 0, needed)
	for _, s := range sorted[:needed] {
		boundaries = append(boundaries, s.Start)
	}
	for i := 0; i < len(boundaries); i++ {
		for j := i + 1; j < len(boundaries); j++ {
			if boundaries[j] < boundaries[i] {
				boundaries[i], boundaries[j] = boundaries[j], boundaries[i]
			}
		}
	}

	points := append([]float64{0}, boundaries...)
	points = append(points, duration)
	spans := make([]Interval, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		spans = append(spans, Interval{Start: points[i], End: points[i+1]})
	}
	return spans
}

func interpolateSpans(n int, duration float64) []Interval {
	spans := make([]Interval, n)
	step := duration / float64(n)
	for i := 0; i < n; i++ {
		spans[i] = Interval{Start: float64(i) * step, End: float64(i+1) * step}
	}
	return spans
}

func forceSpanCount(spans []Interval, n int) []Interval {
	for len(spans) > n {
		spans = mergeSmallestPair(spans)
	}
	for len(spans) < n {
		spans = splitLongestSpan(spans)
	}
	return spans
}

func mergeSmallestPair(spans []Interval) []Interval {
	if len(spans) < 2 {
		return spans
	}
	bestIdx := 0
	bestCombined := spans[0].End - spans[0].Start + spans[1].End - spans[1].Start
	for i := 1; i < len(spans)-1; i++ {
		combined := spans[i].End - spans[i].Start + spans[i+1].End - spans[i+1].Start
		if combined < bestCombined {
			bestCombined = combined
			bestIdx = i
		}
	}
	merged := append([]Interval(nil), spans[:bestIdx]...)
	merged = append(merged, Interval{Start: spans[bestIdx].Start, End: spans[bestIdx+1].End})
	merged = append(merged, spans[bestIdx+2:]...)
	return merged
}

func splitLongestSpan(spans []Interval) []Interval {
	if len(spans) == 0 {
		return spans
	}
	longestIdx := 0
	longest := spans[0].End - spans[0].Start
	for i, span := range spans {
		if d := span.End - span.Start; d > longest {
			longest = d
			longestIdx = i
		}
	}
	mid := (spans[longestIdx].Start + spans[longestIdx].End) / 2
	result := append([]Interval(nil), spans[:longestIdx]...)
	result = append(result,
		Interval{Start: spans[longestIdx].Start, End: mid},
		Interval{Start: mid, End: spans[longestIdx].End},
	)
	result = append(result, spans[longestIdx+1:]...)
	return result
}
