package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
)

// New selects the provider by name. Empty means openai.
func New(ctx context.Context, name, apiKey, baseURL string) (domain.AIProvider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", domain.ProviderOpenAI:
		return NewOpenAIProvider(apiKey, baseURL)
	case domain.ProviderGemini:
		return NewGeminiProvider(ctx, apiKey, baseURL)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", name)
	}
}
