package candidates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bhuvan-advantix/Back-testing/internal/domain"
	"github.com/bhuvan-advantix/Back-testing/internal/util"
)

// Compile-time interface check.
var _ Feed = (*OpenAIFeed)(nil)

const suggestSystemPrompt = `You are a professional equity analyst ranking stocks for a historical trading simulation.

You will be given a trading date and a universe of symbols. Using only information that would have been available on or before that date, select the most promising symbols.

Respond with ONLY a JSON array, no prose, where each element has exactly these fields:
  "symbol": one of the given universe symbols
  "confidence": integer 0-100, your conviction in the call
  "bias": "BULLISH" or "BEARISH"
  "reason": one short sentence

Rules:
- Return between 3 and 5 elements, best first.
- Never invent symbols outside the given universe.
- Never use information dated after the trading date.`

// OpenAIFeed asks an OpenAI chat model to rank universe symbols for a date.
// Calls are rate limited and retried; the model's answer is parsed from a
// JSON array and validated field by field, and anything malformed is dropped
// rather than propagated into the simulation.
type OpenAIFeed struct {
	client    oa.Client
	model     string
	maxStocks int
	limiter   *util.RateLimiter
}

// NewOpenAIFeed creates an OpenAI-backed candidate feed.
func NewOpenAIFeed(apiKey, model string, maxStocks, rateLimitPerMin int) *OpenAIFeed {
	return &OpenAIFeed{
		client:    oa.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxStocks: maxStocks,
		limiter:   util.NewRateLimiter(rateLimitPerMin),
	}
}

// Name returns "openai".
func (f *OpenAIFeed) Name() string {
	return "openai"
}

// Suggest queries the model and returns validated, sorted candidates with
// AsOf pinned to the queried date.
func (f *OpenAIFeed) Suggest(ctx context.Context, date time.Time, universe []string) ([]domain.Candidate, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	userPrompt := fmt.Sprintf("Trading date: %s\nUniverse: %s",
		date.Format("2006-01-02"), strings.Join(universe, ", "))

	var content string
	err := util.Retry(ctx, 3, 2*time.Second, func() error {
		resp, err := f.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
			Model: oa.ChatModel(f.model),
			Messages: []oa.ChatCompletionMessageParamUnion{
				oa.SystemMessage(suggestSystemPrompt),
				oa.UserMessage(userPrompt),
			},
			MaxTokens: oa.Int(1000),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices in response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: openai: %w", domain.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: openai: %w", domain.ErrProviderError, err)
	}

	cands, err := parseSuggestions(content, date, universe)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", domain.ErrProviderError, err)
	}

	SortCandidates(cands)
	if len(cands) > f.maxStocks {
		cands = cands[:f.maxStocks]
	}
	return cands, nil
}

// suggestion is the wire schema the model is instructed to emit.
type suggestion struct {
	Symbol     string  `json:"symbol"`
	Confidence float64 `json:"confidence"`
	Bias       string  `json:"bias"`
	Reason     string  `json:"reason"`
}

// parseSuggestions extracts the JSON array from a model response, tolerating
// markdown code fences and surrounding prose, and validates each element.
func parseSuggestions(content string, date time.Time, universe []string) ([]domain.Candidate, error) {
	raw := extractJSONArray(content)
	if raw == "" {
		return nil, errors.New("no JSON array in response")
	}

	var sugs []suggestion
	if err := json.Unmarshal([]byte(raw), &sugs); err != nil {
		return nil, fmt.Errorf("unmarshaling suggestions: %w", err)
	}

	allowed := make(map[string]bool, len(universe))
	for _, sym := range universe {
		allowed[sym] = true
	}

	var cands []domain.Candidate
	for _, s := range sugs {
		if !validSuggestion(s, allowed) {
			continue
		}
		cands = append(cands, domain.Candidate{
			Symbol: s.Symbol,
			Score:  s.Confidence,
			Bias:   domain.Bias(s.Bias),
			Reason: s.Reason,
			AsOf:   date,
		})
	}
	return cands, nil
}

// extractJSONArray returns the outermost [...] span in the text, stripping a
// ```json code fence when present.
func extractJSONArray(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		text = text[i+len("```json"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func validSuggestion(s suggestion, allowed map[string]bool) bool {
	if s.Symbol == "" || !allowed[s.Symbol] {
		return false
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return false
	}
	if b := domain.Bias(s.Bias); b != domain.BiasBullish && b != domain.BiasBearish {
		return false
	}
	return true
}
