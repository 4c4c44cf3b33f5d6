package providers

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider is the adapter for the OpenAI chat completions API.
// It also serves OpenAI-compatible gateways through a custom base URL.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai provider requires an API key")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}, nil
}

func (p *OpenAIProvider) Name() string { return domain.ProviderOpenAI }

// CallTool forces the model to answer through req.Tool.
func (p *OpenAIProvider) CallTool(ctx context.Context, req domain.ToolRequest) (*domain.ToolCall, error) {
	model := req.Model
	if model == "" {
		model = domain.DefaultOpenAIModel
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
		Tools: []openai.ChatCompletionToolUnionParam{{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        req.Tool.Name,
					Description: openai.String(req.Tool.Description),
					Parameters:  openai.FunctionParameters(req.Tool.Parameters),
				},
			},
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: req.Tool.Name},
			},
		},
		Temperature: openai.Float(0),
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	usage := p.extractUsage(model, completion.Usage)
	logrus.WithFields(logrus.Fields{
		"model":         model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"cost_usd":      fmt.Sprintf("$%.6f", usage.CostUSD),
		"tool_calls":    len(completion.Choices[0].Message.ToolCalls),
	}).Debug("[OPENAI] Tool call completed")

	for _, tc := range completion.Choices[0].Message.ToolCalls {
		if tc.Function.Name != req.Tool.Name {
			continue
		}
		return &domain.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
			Usage:     usage,
		}, nil
	}
	return nil, nil
}

func (p *OpenAIProvider) extractUsage(model string, usage openai.CompletionUsage) *domain.UsageStats {
	input := int(usage.PromptTokens)
	output := int(usage.CompletionTokens)
	cached := int(usage.PromptTokensDetails.CachedTokens)

	return &domain.UsageStats{
		Model:        model,
		InputTokens:  input,
		OutputTokens: output,
		CachedTokens: cached,
		CostUSD:      domain.EstimateCost(domain.OpenAIModelPrices, domain.DefaultOpenAIModel, model, input, output, cached),
	}
}
