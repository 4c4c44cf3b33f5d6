package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiProvider is the adapter for the Gemini generateContent API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider builds one client for the Gemini API.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini provider requires an API key")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return domain.ProviderGemini }

// CallTool forces the call through FunctionCallingConfigModeAny. Failures are
// returned as-is; the caller decides whether to try again.
func (p *GeminiProvider) CallTool(ctx context.Context, req domain.ToolRequest) (*domain.ToolCall, error) {
	model := req.Model
	if model == "" {
		model = domain.DefaultGeminiModel
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:                 req.Tool.Name,
				Description:          req.Tool.Description,
				ParametersJsonSchema: req.Tool.Parameters,
			}},
		}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{req.Tool.Name},
			},
		},
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, "")
	}

	contents := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, err
	}

	usage := p.extractUsage(model, result.UsageMetadata)
	if usage != nil {
		logrus.WithFields(logrus.Fields{
			"model":         model,
			"input_tokens":  usage.InputTokens,
			"output_tokens": usage.OutputTokens,
			"cost_usd":      fmt.Sprintf("$%.6f", usage.CostUSD),
		}).Debug("[GEMINI] Tool call completed")
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, nil
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall == nil || part.FunctionCall.Name != req.Tool.Name {
			continue
		}
		args, err := json.Marshal(part.FunctionCall.Args)
		if err != nil {
			return nil, fmt.Errorf("encode gemini function args: %w", err)
		}
		return &domain.ToolCall{
			Name:      part.FunctionCall.Name,
			Arguments: string(args),
			Usage:     usage,
		}, nil
	}
	return nil, nil
}

func (p *GeminiProvider) extractUsage(model string, usage *genai.GenerateContentResponseUsageMetadata) *domain.UsageStats {
	if usage == nil {
		return nil
	}
	input := int(usage.PromptTokenCount)
	output := int(usage.CandidatesTokenCount)
	cached := int(usage.CachedContentTokenCount)

	return &domain.UsageStats{
		Model:        model,
		InputTokens:  input,
		OutputTokens: output,
		CachedTokens: cached,
		CostUSD:      domain.EstimateCost(domain.GeminiModelPrices, domain.DefaultGeminiModel, model, input, output, cached),
	}
}
