package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/models"
)

const (
	defaultGeminiModel = "gemini-flash-latest"
	geminiTimeout      = 30 * time.Second
	summaryCacheSize   = 256
)

// Summarizer explains a decision in plain English.
type Summarizer interface {
	Summarize(ctx context.Context, cardName string, fv models.FeatureVector, decision models.Decision) (string, error)
}

// generateFunc sends a prompt to a model and returns its text answer.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiSummarizer asks Gemini for a short hold/sell explanation. Answers are
// cached by card, label and rounded prices.
type GeminiSummarizer struct {
	generate generateFunc
	model    string
	cache    *lru.Cache[string, string]
}

// NewGeminiSummarizer returns nil (summaries disabled) when apiKey is empty.
func NewGeminiSummarizer(ctx context.Context, apiKey, model string) (*GeminiSummarizer, error) {
	if apiKey == "" {
		zap.L().Info("gemini summaries disabled (no GEMINI_API_KEY)")
		return nil, nil
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.3),
			MaxOutputTokens: 300,
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}

	zap.L().Info("gemini summaries enabled", zap.String("model", model))
	return newGeminiSummarizer(generate, model), nil
}

func newGeminiSummarizer(generate generateFunc, model string) *GeminiSummarizer {
	cache, _ := lru.New[string, string](summaryCacheSize)
	return &GeminiSummarizer{
		generate: generate,
		model:    model,
		cache:    cache,
	}
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, cardName string, fv models.FeatureVector, decision models.Decision) (string, error) {
	key := fmt.Sprintf("%s|%s|%.2f|%.2f", cardName, decision.Label, fv.RecentPrice, fv.OldPrice)
	if cached, ok := s.cache.Get(key); ok {
		metrics.GeminiCacheHits.Inc()
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	metrics.GeminiRequestsTotal.Inc()
	start := time.Now()
	text, err := s.generate(ctx, BuildSummaryPrompt(cardName, fv, decision))
	metrics.GeminiAPILatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeminiErrorsTotal.WithLabelValues("api").Inc()
		return "", fmt.Errorf("gemini summary for %q: %w", cardName, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		metrics.GeminiErrorsTotal.WithLabelValues("empty").Inc()
		return "", errors.New("gemini returned an empty summary")
	}

	s.cache.Add(key, text)
	return text, nil
}

// BuildSummaryPrompt renders the investment assistant prompt for one card.
func BuildSummaryPrompt(cardName string, fv models.FeatureVector, decision models.Decision) string {
	var sb strings.Builder
	sb.WriteString("You are an investment assistant for trading Pokemon cards.\n\n")
	fmt.Fprintf(&sb, "Card: %s\n", cardName)
	fmt.Fprintf(&sb, "Recent price: $%.2f\n", fv.RecentPrice)
	fmt.Fprintf(&sb, "Old price: $%.2f\n", fv.OldPrice)
	fmt.Fprintf(&sb, "Trend: %.2f%%\n", fv.TrendPct)
	fmt.Fprintf(&sb, "Recent volume: %.0f sales (average %.1f)\n", fv.RecentVolume, fv.AvgVolume)
	fmt.Fprintf(&sb, "Volatility: %.2f%%\n", fv.Volatility)
	if fv.ProfitMargin != nil {
		fmt.Fprintf(&sb, "Profit margin over buy price: %.2f%%\n", *fv.ProfitMargin)
	} else {
		sb.WriteString("The card was pulled from a pack; its cost is unknown.\n")
	}
	fmt.Fprintf(&sb, "Decision: %s (%s)\n\n", decision.Label, decision.Reason)
	sb.WriteString("Explain in plain English whether the user should hold or sell, and why. Keep it to three sentences.")
	return sb.String()
}
