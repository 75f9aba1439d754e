// Package artifact assembles translated segments into the per-language JSON
// document written to the output bucket.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/kdeps/kxlate/pkg/translate"
)

// Prefix is the folder every translation artifact is written under.
const Prefix = "translations_accuracy_mode/"

// ContentType is the content type artifacts are stored with.
const ContentType = "application/json"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_\-./]`)

// Artifact is one target language's translated transcript.
type Artifact struct {
	TargetLanguage  string
	Records         []translate.TranslatedSegment
	DestinationName string
}

// New builds the artifact for sourceObject translated into target.
func New(sourceObject, target string, records []translate.TranslatedSegment) Artifact {
	if records == nil {
		records = []translate.TranslatedSegment{}
	}
	return Artifact{
		TargetLanguage:  target,
		Records:         records,
		DestinationName: DestinationName(sourceObject, target),
	}
}

// DestinationName derives the object key for sourceObject translated into
// target. Only the base name of the source object is kept.
func DestinationName(sourceObject, target string) string {
	base := path.Base(strings.ReplaceAll(sourceObject, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	return Sanitize(fmt.Sprintf("%s%s_%s.json", Prefix, base, target))
}

// Sanitize replaces every character outside [A-Za-z0-9_-./] with '_'.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Encode renders the records as an indented JSON array. Non-ASCII text is
// written as UTF-8 rather than escaped.
func (a Artifact) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(a.Records); err != nil {
		return nil, fmt.Errorf("encode %s artifact: %w", a.TargetLanguage, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
