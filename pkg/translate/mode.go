package translate

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Mode selects a Strategy.
type Mode string

const (
	// ModeAccuracy uses the Direct strategy.
	ModeAccuracy Mode = "accuracy"
	// ModeRealignment uses the Alignment strategy.
	ModeRealignment Mode = "realignment"
)

func (m Mode) String() string { return string(m) }

// ParseMode accepts "accuracy"/"direct" and "realignment"/"alignment".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accuracy", "direct", "":
		return ModeAccuracy, nil
	case "realignment", "alignment":
		return ModeRealignment, nil
	default:
		return "", fmt.Errorf("unknown translation mode %q", s)
	}
}

// New returns the Strategy for mode.
func New(mode Mode, model llms.Model, opts Options) (Strategy, error) {
	switch mode {
	case ModeAccuracy:
		return NewDirect(model, opts), nil
	case ModeRealignment:
		return NewAlignment(model, opts), nil
	default:
		return nil, fmt.Errorf("unknown translation mode %q", mode)
	}
}
