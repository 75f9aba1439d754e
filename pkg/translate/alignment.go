package translate

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Alignment asks for a translation that keeps the sentence count, length and
// idioms of the source aligned with the original. The prompt already forbids
// commentary so the answer is only trimmed.
type Alignment struct {
	runner
}

// NewAlignment returns the alignment-preserving strategy.
func NewAlignment(model llms.Model, opts Options) *Alignment {
	return &Alignment{runner: newRunner(ModeRealignment.String(), model, opts, AlignmentPrompt, nil)}
}

// AlignmentPrompt builds the alignment-preserving instruction.
func AlignmentPrompt(text, target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "As an expert translator specializing in %s, translate the following text to %s ", target, target)
	b.WriteString("with a focus on preserving both meaning and alignment with the original text's length and structure. ")
	b.WriteString("Prioritize sentence-by-sentence translation to closely match the word count and layout of the source text, ")
	fmt.Fprintf(&b, "maintaining readability and natural flow in %s. ", target)
	b.WriteString("Ensure that cultural and idiomatic expressions are preserved, using equivalent expressions where necessary. ")
	fmt.Fprintf(&b, "The text to translate is: \"%s\". ", text)
	b.WriteString("Provide only the translated text, aligned with the original sentence structure and length, without any added commentary or formatting.")
	return b.String()
}
