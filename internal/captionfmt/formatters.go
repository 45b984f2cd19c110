// Package captionfmt renders aligned caption segments into the standard
// subtitle formats and writes them atomically as a package of sibling
// files.
package captionfmt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lzhgus/captionforge/internal/align"
)

// JSONFormatVersion is the bit-exact format tag embedded in the JSON output.
const JSONFormatVersion = "captionforge.v1"

// SRT renders segments as SubRip text.
func SRT(segments []align.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatSRTTimestamp(seg.StartTime), FormatSRTTimestamp(seg.EndTime))
		b.WriteString(captionLine(seg))
		b.WriteString("\n\n")
	}
	return b.String()
}

// VTT renders segments as WebVTT text.
func VTT(segments []align.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s --> %s\n", FormatVTTTimestamp(seg.StartTime), FormatVTTTimestamp(seg.EndTime))
		if strings.TrimSpace(seg.SpeakerName) != "" {
			fmt.Fprintf(&b, "<v %s>%s\n\n", seg.SpeakerName, seg.Text)
		} else {
			fmt.Fprintf(&b, "%s\n\n", seg.Text)
		}
	}
	return b.String()
}

func captionLine(seg align.Segment) string {
	if strings.TrimSpace(seg.SpeakerName) == "" {
		return seg.Text
	}
	return fmt.Sprintf("[%s] %s", seg.SpeakerName, seg.Text)
}

type jsonSegment struct {
	SpeakerID   int     `json:"speaker_id"`
	SpeakerName string  `json:"speaker_name"`
	Text        string  `json:"text"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	WordCount   int     `json:"word_count"`
	CharCount   int     `json:"char_count"`
	Confidence  float64 `json:"confidence"`
}

type jsonDocument struct {
	Format        string        `json:"format"`
	Version       string        `json:"version"`
	Segments      []jsonSegment `json:"segments"`
	TotalSegments int           `json:"total_segments"`
	TotalDuration float64       `json:"total_duration"`
}

// JSON renders segments as the package's structured JSON document, UTF-8,
// two-space indent, non-ASCII preserved verbatim.
func JSON(segments []align.Segment) (string, error) {
	doc := jsonDocument{
		Format:        JSONFormatVersion,
		Version:       "1.0",
		TotalSegments: len(segments),
	}
	doc.Segments = make([]jsonSegment, len(segments))
	for i, seg := range segments {
		doc.Segments[i] = jsonSegment{
			SpeakerID:   seg.SpeakerID,
			SpeakerName: seg.SpeakerName,
			Text:        seg.Text,
			StartTime:   seg.StartTime,
			EndTime:     seg.EndTime,
			WordCount:   seg.WordCount,
			CharCount:   seg.CharCount,
			Confidence:  seg.Confidence,
		}
		if seg.EndTime > doc.TotalDuration {
			doc.TotalDuration = seg.EndTime
		}
	}

	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

// TranscriptOptions toggles which fields the Transcript formatter emits.
type TranscriptOptions struct {
	IncludeTimestamps bool
	IncludeSpeakers   bool
}

// Transcript renders one line per segment: "[MM:SS] SpeakerName: text",
// with timestamps and speaker labels independently toggleable.
func Transcript(segments []align.Segment, opts TranscriptOptions) string {
	var b strings.Builder
	for _, seg := range segments {
		if opts.IncludeTimestamps {
			fmt.Fprintf(&b, "[%s] ", FormatMinutesSeconds(seg.StartTime))
		}
		if opts.IncludeSpeakers && strings.TrimSpace(seg.SpeakerName) != "" {
			fmt.Fprintf(&b, "%s: ", seg.SpeakerName)
		}
		b.WriteString(seg.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// ScriptWithTiming renders the line-oriented "[start-end] speaker: text"
// report, with start/end formatted to one decimal second.
func ScriptWithTiming(segments []align.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%.1f-%.1f] %s: %s\n",
			seg.StartTime,
			seg.EndTime,
			seg.SpeakerName,
			seg.Text,
		)
	}
	return b.String()
}
