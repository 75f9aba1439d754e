package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleLine(t *testing.T) {
	segments := Parse("[00:01] A: Bonjour tout le monde")
	require.Len(t, segments, 1)
	assert.Equal(t, Segment{Time: "00:01", SpeakerID: "A", Text: "Bonjour tout le monde"}, segments[0])
}

func TestParseKeepsOrderAndDropsNoise(t *testing.T) {
	raw := strings.Join([]string{
		"Meeting notes",
		"[00:00:01] spk_1: Hello there.",
		"",
		"[00:00:05] spk_2:   How are you?  ",
		"not a segment: [00:10] X: nope",
		"[00:00:09] spk_1: Fine, thanks.",
		"[00:00:12] two words: dropped",
	}, "\n")

	segments := Parse(raw)
	require.Len(t, segments, 3)
	assert.Equal(t, []string{"Hello there.", "How are you?", "Fine, thanks."}, Texts(segments))
	assert.Equal(t, "spk_2", segments[1].SpeakerID)
	assert.Equal(t, "00:00:09", segments[2].Time)
}

func TestParseEmptyAndNonMatching(t *testing.T) {
	for _, raw := range []string{"", "\n\n", "just some text\nwithout markers"} {
		segments := Parse(raw)
		assert.NotNil(t, segments)
		assert.Empty(t, segments)
	}
}

func TestParseDuplicatesAllowed(t *testing.T) {
	segments := Parse("[1] A: one\n[1] A: one\n")
	require.Len(t, segments, 2)
	assert.Equal(t, segments[0], segments[1])
}

func TestParseUnicodeSpeaker(t *testing.T) {
	segments := Parse("[00:03] Éloïse: Ça va ?")
	require.Len(t, segments, 1)
	assert.Equal(t, "Éloïse", segments[0].SpeakerID)
	assert.Equal(t, "Ça va ?", segments[0].Text)
}

func TestParseLineEndings(t *testing.T) {
	segments := Parse("[1] A: one\r\n[2] B: two\r[3] C: three")
	require.Len(t, segments, 3)
	assert.Equal(t, "two", segments[1].Text)
	assert.Equal(t, "C", segments[2].SpeakerID)
}

func TestParseEmptyTextAndTrimmedTime(t *testing.T) {
	segments := Parse("[ 00:07 ] Bob:")
	require.Len(t, segments, 1)
	assert.Equal(t, "00:07", segments[0].Time)
	assert.Equal(t, "Bob", segments[0].SpeakerID)
	assert.Equal(t, "", segments[0].Text)
}

func TestParseMatchCountProperty(t *testing.T) {
	lines := []string{"[a] X: 1", "junk", "[b] Y: 2", "[c]Z: 3", "[d] W: 4"}
	matched := 0
	for _, l := range lines {
		if linePattern.MatchString(l) {
			matched++
		}
	}
	assert.Len(t, Parse(strings.Join(lines, "\n")), matched)
	assert.Equal(t, 3, matched)
}
