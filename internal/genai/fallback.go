package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/quizbot-go/internal/metrics"
)

// FallbackClassifier tries each provider in order, retrying transient
// failures on the same provider before moving on.
type FallbackClassifier struct {
	chain   []Classifier
	retry   RetryConfig
	metrics *metrics.Metrics
}

// NewFallbackClassifier wraps an ordered chain of classifiers.
// m may be nil.
func NewFallbackClassifier(chain []Classifier, retry RetryConfig, m *metrics.Metrics) *FallbackClassifier {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &FallbackClassifier{chain: chain, retry: retry, metrics: m}
}

// Classify implements Classifier.
func (f *FallbackClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	if len(f.chain) == 0 {
		return nil, errors.New("no classifier configured")
	}

	var lastErr error
	for i, c := range f.chain {
		result, err := f.classifyWithRetry(ctx, c, text)
		if err == nil {
			if i > 0 {
				slog.InfoContext(ctx, "intent classification served by fallback provider",
					"provider", c.Provider(),
					"position", i)
			}
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) == ActionFail {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

func (f *FallbackClassifier) classifyWithRetry(ctx context.Context, c Classifier, text string) (*Classification, error) {
	provider := c.Provider().String()
	var lastErr error

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		start := time.Now()
		result, err := c.Classify(ctx, text)
		duration := time.Since(start).Seconds()

		if err == nil {
			f.record(provider, "success", duration)
			return result, nil
		}
		lastErr = err
		f.record(provider, "error", duration)

		if ClassifyError(err) != ActionRetry || attempt == f.retry.MaxAttempts {
			break
		}

		delay := CalculateBackoff(attempt, f.retry.InitialDelay, f.retry.MaxDelay)
		if !HasSufficientBudget(ctx, delay+ClassifyTimeout/2) {
			break
		}
		slog.DebugContext(ctx, "retrying intent classification",
			"provider", provider,
			"attempt", attempt,
			"delay", delay,
			"error", err)
		if err := Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *FallbackClassifier) record(provider, status string, duration float64) {
	if f.metrics != nil {
		f.metrics.RecordLLM(provider, status, duration)
	}
}

// Provider returns the first provider in the chain.
func (f *FallbackClassifier) Provider() Provider {
	if len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Close closes every classifier in the chain.
func (f *FallbackClassifier) Close() error {
	var errs []error
	for _, c := range f.chain {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewClassifier builds the configured provider chain.
// Returns nil, nil when no provider has an API key.
func NewClassifier(ctx context.Context, cfg Config, m *metrics.Metrics) (Classifier, error) {
	var chain []Classifier
	for _, p := range cfg.ConfiguredProviders() {
		switch p {
		case ProviderGemini:
			c, err := newGeminiClassifier(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
			if err != nil {
				return nil, fmt.Errorf("gemini classifier: %w", err)
			}
			if c != nil {
				chain = append(chain, c)
			}
		case ProviderOpenAI:
			if c := newOpenAIClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL); c != nil {
				chain = append(chain, c)
			}
		}
	}
	if len(chain) == 0 {
		return nil, nil //nolint:nilnil // classification disabled
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	return NewFallbackClassifier(chain, retry, m), nil
}
