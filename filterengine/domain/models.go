package domain

// ModelPricing holds USD prices per 1M tokens.
type ModelPricing struct {
	InputPerMToken  float64 `json:"input_per_m_token"`
	OutputPerMToken float64 `json:"output_per_m_token"`
	CacheInputPerMT float64 `json:"cache_input_per_mt"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"
)

var OpenAIModelPrices = map[string]ModelPricing{
	"gpt-4o-mini":  {InputPerMToken: 0.15, OutputPerMToken: 0.60, CacheInputPerMT: 0.075},
	"gpt-4o":       {InputPerMToken: 2.50, OutputPerMToken: 10.00, CacheInputPerMT: 1.25},
	"gpt-4.1-mini": {InputPerMToken: 0.40, OutputPerMToken: 1.60, CacheInputPerMT: 0.10},
	"gpt-4.1-nano": {InputPerMToken: 0.10, OutputPerMToken: 0.40, CacheInputPerMT: 0.025},
}

// GeminiModelPrices are the Google paid-tier prices.
var GeminiModelPrices = map[string]ModelPricing{
	"gemini-2.5-flash":      {InputPerMToken: 0.30, OutputPerMToken: 2.50, CacheInputPerMT: 0.075},
	"gemini-2.5-flash-lite": {InputPerMToken: 0.10, OutputPerMToken: 0.40, CacheInputPerMT: 0.025},
	"gemini-2.0-flash":      {InputPerMToken: 0.10, OutputPerMToken: 0.40, CacheInputPerMT: 0.025},
	"gemini-2.0-flash-lite": {InputPerMToken: 0.075, OutputPerMToken: 0.30},
}

// EstimateCost prices a call, falling back to the default model of the table.
func EstimateCost(prices map[string]ModelPricing, fallback, model string, input, output, cached int) float64 {
	pricing, ok := prices[model]
	if !ok {
		pricing = prices[fallback]
	}
	regular := input - cached
	if regular < 0 {
		regular = 0
	}
	return (float64(regular)*pricing.InputPerMToken +
		float64(cached)*pricing.CacheInputPerMT +
		float64(output)*pricing.OutputPerMToken) / 1_000_000
}
