package language

// Target language tags as understood by the translation backend.
const (
	English = "eng_Latn"
	French  = "fra_Latn"
	Spanish = "spa_Latn"
)

var targetTable = map[string][]string{
	"fr": {English, Spanish},
	"es": {French, English},
	"en": {French, Spanish},
}

// Resolve maps a detected source language to its ordered target tags.
// Unsupported sources yield an empty slice.
func Resolve(source string) []string {
	targets, ok := targetTable[source]
	if !ok {
		return []string{}
	}
	return append([]string(nil), targets...)
}

// Supported reports whether Resolve produces any targets for source.
func Supported(source string) bool {
	_, ok := targetTable[source]
	return ok
}
