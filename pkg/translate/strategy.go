// Package translate converts transcript segments into a target language one
// segment at a time, isolating failures to the segment that failed.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"

	"github.com/kdeps/kxlate/pkg/cache"
	kerrors "github.com/kdeps/kxlate/pkg/errors"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/transcript"
)

const (
	// DefaultMaxTokens bounds a completion when Options.MaxTokens is unset.
	DefaultMaxTokens = 1024
	// DefaultTimeout bounds a backend call when Options.Timeout is unset.
	DefaultTimeout = 60 * time.Second
)

// ErrNoChoices is returned when the backend answers without any completion.
var ErrNoChoices = errors.New("response contained no completion choices")

// TranslatedSegment mirrors transcript.Segment with Text replaced by its
// translation. An empty Text marks a segment whose translation failed.
type TranslatedSegment struct {
	Time      string `json:"time"`
	SpeakerID string `json:"speaker-id"`
	Text      string `json:"text"`
}

// Strategy translates a whole segment list into one target language. The
// result always has the same length and order as the input.
type Strategy interface {
	Name() string
	Translate(ctx context.Context, segments []transcript.Segment, target string) []TranslatedSegment
}

// Options tune how a strategy talks to the backend.
type Options struct {
	// MaxTokens bounds the completion length of each call.
	MaxTokens int
	// Timeout bounds each backend call.
	Timeout time.Duration
	// Concurrency is the number of segments translated at once.
	Concurrency int
	// Cache, when set, memoizes successful translations.
	Cache  *cache.TranslationCache
	Logger *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Logger == nil {
		o.Logger = logging.GetLogger()
	}
	return o
}

// promptFunc builds the instruction for one segment.
type promptFunc func(text, target string) string

// runner holds the per-segment loop shared by every strategy.
type runner struct {
	name   string
	model  llms.Model
	opts   Options
	prompt promptFunc
	clean  func(string) string
}

func newRunner(name string, model llms.Model, opts Options, prompt promptFunc, clean func(string) string) runner {
	if clean == nil {
		clean = strings.TrimSpace
	}
	return runner{name: name, model: model, opts: opts.withDefaults(), prompt: prompt, clean: clean}
}

// Name implements Strategy.
func (r runner) Name() string {
	return r.name
}

// Translate implements Strategy. Segments are dispatched through a bounded
// group; each result lands in its own slot so order is preserved.
func (r runner) Translate(ctx context.Context, segments []transcript.Segment, target string) []TranslatedSegment {
	out := make([]TranslatedSegment, len(segments))
	logger := r.opts.Logger.With("strategy", r.name, "target", target)

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			out[i] = TranslatedSegment{Time: seg.Time, SpeakerID: seg.SpeakerID}
			text, err := r.translateOne(ctx, seg.Text, target)
			if err != nil {
				jobErr := kerrors.NewSegmentTranslationError(i, target, err)
				logger.Warn("segment translation failed", "segment", i, "code", jobErr.Code, "error", err)
				return nil
			}
			out[i].Text = text
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// translateOne performs a single bounded backend call and returns the first
// completion's cleaned text.
func (r runner) translateOne(ctx context.Context, text, target string) (string, error) {
	var key string
	if r.opts.Cache != nil {
		key = cache.Key(r.name, target, text)
		if v, ok := r.opts.Cache.Get(key); ok {
			return v, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, r.prompt(text, target)),
	}
	resp, err := r.model.GenerateContent(callCtx, content, llms.WithMaxTokens(r.opts.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrNoChoices
	}
	out := r.clean(strings.TrimSpace(resp.Choices[0].Content))
	if r.opts.Cache != nil && out != "" {
		r.opts.Cache.Set(key, out)
	}
	return out, nil
}
