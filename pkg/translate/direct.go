package translate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// boilerplate matches introductions models like to put before the answer.
var boilerplate = regexp.MustCompile(`(?i)^(Here is the translation.*?:|Translate.*?:|Translation.*?:)`)

// Direct asks for a literal translation and strips known introductory
// boilerplate from the answer.
type Direct struct {
	runner
}

// NewDirect returns the literal translation strategy.
func NewDirect(model llms.Model, opts Options) *Direct {
	return &Direct{runner: newRunner(ModeAccuracy.String(), model, opts, DirectPrompt, CleanTranslation)}
}

// DirectPrompt builds the literal translation instruction.
func DirectPrompt(text, target string) string {
	return fmt.Sprintf("Translate to %s only the following text without any additional explanation or introduction: %s", target, text)
}

// CleanTranslation removes a leading "Here is the translation...:",
// "Translate...:" or "Translation...:" and trims the rest.
func CleanTranslation(response string) string {
	return strings.TrimSpace(boilerplate.ReplaceAllString(strings.TrimSpace(response), ""))
}
