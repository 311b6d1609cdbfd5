// Package genai classifies free-form chat utterances into bot commands with
// an LLM when the keyword matcher cannot resolve them.
//
// Providers:
//   - Gemini: google.golang.org/genai (official SDK)
//   - OpenAI and compatible endpoints: github.com/openai/openai-go/v3
//
// Both use forced function calling so every answer is either a command
// selection or a short direct reply.
package genai

import (
	"context"
	"time"

	"github.com/garyellow/quizbot-go/internal/intent"
)

// Provider represents an LLM provider.
type Provider string

// Providers
const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Classifier maps an utterance to one of the no-argument chat commands.
type Classifier interface {
	// Classify returns the command the user most likely meant.
	Classify(ctx context.Context, text string) (*Classification, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any resources held by the classifier.
	Close() error
}

// Classification is the result of one classification call.
type Classification struct {
	// Command is intent.CmdUnknown when the model replied directly.
	Command intent.Command
	// Reply is the model's short answer for chit-chat or clarification.
	Reply string
	// Provider that produced the result.
	Provider Provider
	// FunctionName is the raw function name from the model (for debugging).
	FunctionName string
}

// RetryConfig defines retry behavior for LLM API calls.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds credentials and model for one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible endpoints only
}

// Config holds configuration for all LLM providers.
type Config struct {
	// Providers is the ordered fallback chain.
	Providers []Provider
	Gemini    ProviderConfig
	OpenAI    ProviderConfig
	Retry     RetryConfig
}

// Defaults
const (
	DefaultGeminiModel = "gemini-2.5-flash-lite"
	DefaultOpenAIModel = "gpt-4.1-mini"

	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 300 * time.Millisecond
	DefaultMaxRetryDelay     = time.Second

	// ClassifyTimeout bounds one provider call.
	ClassifyTimeout = 3 * time.Second
)

// DefaultRetryConfig returns the retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// HasProvider returns true if the provider is configured with an API key.
func (c *Config) HasProvider(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	default:
		return false
	}
}

// ConfiguredProviders returns providers with API keys, in c.Providers order.
func (c *Config) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
