// Package script parses dialogue scripts into ordered, sentence-grained
// caption units ready for timing.
package script

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxWordsPerUnit is the default word budget a unit should not exceed unless
// a single sentence alone is already longer.
const MaxWordsPerUnit = 15

// Unit is one parsed, sentence-aligned caption candidate before timing is
// assigned.
type Unit struct {
	SpeakerID int
	Text      string
	WordCount int
	CharCount int
}

var speakerLinePattern = regexp.MustCompile(`(?i)^Speaker\s+(\d+)\s*:\s*(.*)$`)

// Parse turns a raw script into an ordered list of units. Lines without a
// "Speaker N:" prefix continue the previous speaker; the very first
// unlabeled line defaults to speaker 1. An empty or blank script yields a
// nil slice.
func Parse(text string) []Unit {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var units []Unit
	currentSpeaker := 0
	haveSpeaker := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := speakerLinePattern.FindStringSubmatch(line); m != nil {
			id, _ := strconv.Atoi(m[1])
			currentSpeaker = id
			haveSpeaker = true
			if body := strings.TrimSpace(m[2]); body != "" {
				units = append(units, splitLongSegment(currentSpeaker, body, MaxWordsPerUnit)...)
			}
			continue
		}

		if !haveSpeaker {
			currentSpeaker = 1
			haveSpeaker = true
		}
		units = append(units, splitLongSegment(currentSpeaker, line, MaxWordsPerUnit)...)
	}

	return units
}

// splitLongSegment groups sentences from text into units of at most
// maxWords words, never splitting a sentence across units.
func splitLongSegment(speakerID int, text string, maxWords int) []Unit {
	sentences := SplitIntoSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var units []Unit
	var chunk []string
	wordCount := 0

	flush := func() {
		if len(chunk) == 0 {
			return
		}
		joined := strings.Join(chunk, " ")
		units = append(units, Unit{
			SpeakerID: speakerID,
			Text:      joined,
			WordCount: wordCount,
			CharCount: len(joined),
		})
		chunk = nil
		wordCount = 0
	}

	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if wordCount+words > maxWords && len(chunk) > 0 {
			flush()
		}
		chunk = append(chunk, sentence)
		wordCount += words
	}
	flush()

	return units
}

// SplitIntoSentences splits text on sentence-ending punctuation (., !, ?)
// followed by whitespace, keeping the punctuation attached to its sentence.
// Go's regexp engine has no lookbehind, so the split is a manual rune scan
// rather than the lookbehind pattern `(?<=[.!?])\s+`.
func SplitIntoSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var sentences []string
	runes := []rune(trimmed)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isSentenceEnd(runes[j]) {
			j++
		}
		if j >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[j]) {
			continue
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		sentence := strings.TrimSpace(string(runes[start:j]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = k
		i = k - 1
	}

	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}

	if len(sentences) == 0 {
		return []string{trimmed}
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

var titleCaser = cases.Title(language.English)

// SpeakerName resolves a speaker id to a display name using the optional
// mapping, falling back to "Speaker <id>".
func SpeakerName(speakerID int, mapping map[int]string) string {
	if mapping != nil {
		if name, ok := mapping[speakerID]; ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return titleCaser.String("speaker " + strconv.Itoa(speakerID))
}
