// Package transcript turns loosely structured transcript text into ordered
// speaker segments.
package transcript

import (
	"regexp"
	"strings"
)

// Segment is one timestamped, speaker-attributed utterance.
// Time is a free-form label and is never parsed further.
type Segment struct {
	Time      string `json:"time"`
	SpeakerID string `json:"speaker-id"`
	Text      string `json:"text"`
}

// linePattern matches "[<time>] <speakerId>: <text>". The speaker id is a
// single Unicode word token; anything after the colon is the utterance.
var linePattern = regexp.MustCompile(`^\[(.*?)\] ([\p{L}\p{N}_]+):\s*(.*)`)

// Parse splits raw into lines and returns one Segment per matching line, in
// order. Lines that do not match are dropped. Empty input yields an empty,
// non-nil slice.
func Parse(raw string) []Segment {
	segments := make([]Segment, 0)
	for _, line := range splitLines(raw) {
		m := linePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		segments = append(segments, Segment{
			Time:      strings.TrimSpace(m[1]),
			SpeakerID: strings.TrimSpace(m[2]),
			Text:      strings.TrimSpace(m[3]),
		})
	}
	return segments
}

// Texts returns the utterance text of each segment.
func Texts(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}

// splitLines breaks on \n, \r\n and lone \r.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return strings.Split(raw, "\n")
}
