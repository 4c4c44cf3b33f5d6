package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/pkg/fuzzy"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 8 * time.Second

	TimeoutExplanation    = "The search took too long. Please try again or use fewer words."
	NoToolCallExplanation = "We couldn't process that search. Try rephrasing it."
)

// Resolver turns a query into filters through one forced tool call.
type Resolver struct {
	provider  domain.AIProvider
	model     string
	timeout   time.Duration
	threshold float64
}

func NewResolver(provider domain.AIProvider, model string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		provider:  provider,
		model:     model,
		timeout:   timeout,
		threshold: fuzzy.DefaultThreshold,
	}
}

// Resolve returns an empty result, not an error, when the model times out or
// skips the tool. Any other provider failure is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, in domain.ResolveInput) (domain.Result, error) {
	system, user := BuildPrompt(in)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	call, err := r.provider.CallTool(callCtx, domain.ToolRequest{
		Model:        r.model,
		SystemPrompt: system,
		UserPrompt:   user,
		Tool:         SetFiltersDefinition(),
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			logrus.WithFields(logrus.Fields{
				"provider":   r.provider.Name(),
				"latency_ms": latency,
			}).Warn("[RESOLVER] Model call timed out")
			return emptyResult(TimeoutExplanation, latency), nil
		}
		return domain.Result{}, fmt.Errorf("%s tool call: %w", r.provider.Name(), err)
	}

	if call == nil || (call.Name != "" && call.Name != SetFiltersTool) {
		logrus.Warnf("[RESOLVER] Model answered without calling %s", SetFiltersTool)
		res := emptyResult(NoToolCallExplanation, latency)
		if call != nil {
			res.Usage = call.Usage
		}
		return res, nil
	}

	args, err := ParseToolArguments(call.Arguments)
	if err != nil {
		logrus.WithError(err).Warn("[RESOLVER] Discarding malformed tool arguments")
		res := emptyResult(NoToolCallExplanation, latency)
		res.Usage = call.Usage
		return res, nil
	}

	filters := CorrectFilters(Merge(Sanitize(args.Filters)), in.Taxonomy, r.threshold)

	logrus.WithFields(logrus.Fields{
		"provider":     r.provider.Name(),
		"filters":      len(filters),
		"search_query": args.SearchQuery != "",
		"latency_ms":   latency,
	}).Debug("[RESOLVER] Query resolved")

	return domain.Result{
		Filters:     filters,
		Explanation: args.Explanation,
		SearchQuery: args.SearchQuery,
		LatencyMs:   latency,
		Usage:       call.Usage,
	}, nil
}

func emptyResult(explanation string, latency int64) domain.Result {
	return domain.Result{
		Filters:     []domain.Filter{},
		Explanation: explanation,
		LatencyMs:   latency,
	}
}
