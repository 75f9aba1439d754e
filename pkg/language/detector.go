// Package language detects the source language of a transcript and maps it to
// the fixed set of translation targets.
package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/kdeps/kxlate/pkg/transcript"
)

const (
	// DefaultSource is reported when there is nothing to detect.
	DefaultSource = "en"
	// SampleSize is the number of leading segments fed to identification.
	SampleSize = 5
)

// Identifier runs statistical language identification on a text sample and
// returns a two-letter code when one can be determined.
type Identifier interface {
	Identify(sample string) (code string, ok bool)
}

// IdentifierFunc adapts a function to the Identifier interface.
type IdentifierFunc func(sample string) (string, bool)

func (f IdentifierFunc) Identify(sample string) (string, bool) { return f(sample) }

// Detector infers a single source language from a transcript.
type Detector struct {
	identifier Identifier
}

// NewDetector returns a Detector backed by id. A nil id uses whatlanggo.
func NewDetector(id Identifier) *Detector {
	if id == nil {
		id = WhatlangIdentifier{}
	}
	return &Detector{identifier: id}
}

// Detect joins the text of at most the first SampleSize segments and
// identifies its language. Empty input, or a sample identification cannot
// classify, yields DefaultSource.
func (d *Detector) Detect(segments []transcript.Segment) string {
	if len(segments) == 0 {
		return DefaultSource
	}
	n := len(segments)
	if n > SampleSize {
		n = SampleSize
	}
	sample := strings.Join(transcript.Texts(segments[:n]), " ")
	if strings.TrimSpace(sample) == "" {
		return DefaultSource
	}

	code, ok := d.identifier.Identify(sample)
	if !ok {
		return DefaultSource
	}
	return Normalize(code)
}

// Normalize canonicalizes a language code to its shortest base form, so
// "fra", "FR" and "fr-CA" all become "fr". Unparseable codes are lowercased.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if tag, err := language.Parse(code); err == nil {
		base, _ := tag.Base()
		return base.String()
	}
	if base, err := language.ParseBase(code); err == nil {
		return base.String()
	}
	return strings.ToLower(code)
}

// WhatlangIdentifier identifies languages with trigram statistics.
type WhatlangIdentifier struct{}

// Identify implements Identifier.
func (WhatlangIdentifier) Identify(sample string) (string, bool) {
	info := whatlanggo.Detect(sample)
	if info.Lang < 0 {
		return "", false
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code, true
	}
	if code := info.Lang.Iso6393(); code != "" {
		return code, true
	}
	return "", false
}
