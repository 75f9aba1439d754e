package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdeps/kxlate/pkg/transcript"
)

func segs(texts ...string) []transcript.Segment {
	out := make([]transcript.Segment, len(texts))
	for i, t := range texts {
		out[i] = transcript.Segment{Time: "0", SpeakerID: "A", Text: t}
	}
	return out
}

func TestResolve(t *testing.T) {
	assert.Equal(t, []string{"eng_Latn", "spa_Latn"}, Resolve("fr"))
	assert.Equal(t, []string{"fra_Latn", "eng_Latn"}, Resolve("es"))
	assert.Equal(t, []string{"fra_Latn", "spa_Latn"}, Resolve("en"))

	for _, other := range []string{"de", "", "EN", "fr-CA", "und"} {
		got := Resolve(other)
		assert.NotNil(t, got)
		assert.Empty(t, got, other)
		assert.False(t, Supported(other))
	}
	assert.True(t, Supported("es"))
}

func TestResolveReturnsCopy(t *testing.T) {
	first := Resolve("fr")
	first[0] = "mutated"
	assert.Equal(t, "eng_Latn", Resolve("fr")[0])
}

func TestDetectEmptyReturnsDefault(t *testing.T) {
	called := false
	d := NewDetector(IdentifierFunc(func(string) (string, bool) {
		called = true
		return "fr", true
	}))
	assert.Equal(t, DefaultSource, d.Detect(nil))
	assert.Equal(t, DefaultSource, d.Detect([]transcript.Segment{}))
	assert.Equal(t, DefaultSource, d.Detect(segs("", "  ")))
	assert.False(t, called)
}

func TestDetectSamplesFirstFiveSegments(t *testing.T) {
	var sample string
	d := NewDetector(IdentifierFunc(func(s string) (string, bool) {
		sample = s
		return "fra", true
	}))

	got := d.Detect(segs("a", "b", "c", "d", "e", "f", "g"))
	assert.Equal(t, "fr", got)
	assert.Equal(t, "a b c d e", sample)
}

func TestDetectUnidentifiedFallsBack(t *testing.T) {
	d := NewDetector(IdentifierFunc(func(string) (string, bool) { return "", false }))
	assert.Equal(t, DefaultSource, d.Detect(segs("???")))
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"fr":    "fr",
		"FR":    "fr",
		"fra":   "fr",
		"fr-CA": "fr",
		"spa":   "es",
		"":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestWhatlangIdentifier(t *testing.T) {
	d := NewDetector(nil)

	french := segs(
		"Bonjour tout le monde, je suis très heureux de vous retrouver aujourd'hui.",
		"Nous allons parler de la réunion de la semaine prochaine avec toute l'équipe.",
	)
	assert.Equal(t, "fr", d.Detect(french))

	spanish := segs(
		"Buenos días a todos, estamos muy contentos de estar aquí con ustedes.",
		"Vamos a hablar sobre el proyecto y los próximos pasos del equipo.",
	)
	assert.Equal(t, "es", d.Detect(spanish))

	english := segs(
		"Good morning everyone, thank you for joining the meeting today.",
		"We are going to discuss the roadmap and the next steps for the team.",
	)
	assert.Equal(t, "en", d.Detect(english))
}

func TestWhatlangIdentifierUnknown(t *testing.T) {
	code, ok := WhatlangIdentifier{}.Identify("")
	if ok {
		require.NotEmpty(t, code)
	}
}
