package gemini

import (
	"context"
	"strings"
)

// MockClient is a local fallback generator used when no API key is
// configured. It recognizes the pipeline's two prompt shapes and answers
// with fixed, well-formed output so the rest of the stack stays exercisable.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (m *MockClient) GenerateText(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "Reply with only the language code") {
		return "en-US", nil
	}
	return `{
  "intent": "unknown",
  "entities": {"restaurant": null, "items": null, "location": null},
  "confidence": 0.0,
  "language": "en-US",
  "response": "I'm running without a language model right now, so I can't take orders. Please browse the menu instead."
}`, nil
}
