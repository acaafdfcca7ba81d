// Package evidence contains clients for the web-evidence search used to
// verify user corrections.
package evidence

import (
	"errors"
	"fmt"

	"github.com/Harshitk-cp/factlearn/internal/domain"
)

var (
	ErrProvider = errors.New("evidence provider error")
	// ErrProviderTimeout is returned when the call exceeded its deadline.
	ErrProviderTimeout = fmt.Errorf("%w: timeout", ErrProvider)
	// ErrMalformedResponse means the provider answered but the verdict could not be parsed.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrProvider)
)

// Provider constants
const (
	ProviderXAI    = "xai"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient creates an evidence provider based on the provider name. An empty
// model selects the provider default; rps <= 0 disables pacing.
func NewClient(provider, apiKey, model string, rps float64) (domain.EvidenceProvider, error) {
	switch provider {
	case ProviderXAI:
		if apiKey == "" {
			return nil, fmt.Errorf("XAI_API_KEY is required for xAI provider")
		}
		return NewXAIClient(apiKey, model, rps), nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(apiKey, model, rps), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown evidence provider: %s (valid options: xai, openai, mock)", provider)
	}
}
