package llm

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockLLM is a mock implementation of llms.Model for testing. Respond, when
// set, decides the result for each prompt; otherwise Response is returned.
type MockLLM struct {
	Response string
	Respond  func(prompt string) (*llms.ContentResponse, error)

	mu      sync.Mutex
	prompts []string
	options []llms.CallOptions
}

// GenerateContent records the prompt and returns the configured response.
func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := ""
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}

	var callOpts llms.CallOptions
	for _, opt := range opts {
		opt(&callOpts)
	}

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, callOpts)
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(prompt)
	}
	return TextResponse(m.Response), nil
}

// Call implements the single-prompt convenience method.
func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts returns every prompt received so far.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallOptions returns the options passed with every call so far.
func (m *MockLLM) CallOptions() []llms.CallOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llms.CallOptions(nil), m.options...)
}

// TextResponse builds a single-choice response.
func TextResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}
