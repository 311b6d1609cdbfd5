package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// geminiClassifier classifies utterances with Gemini function calling.
type geminiClassifier struct {
	client *genai.Client
	model  string
	tools  []*genai.Tool
}

// newGeminiClassifier creates a Gemini classifier. Returns nil when apiKey is empty.
func newGeminiClassifier(ctx context.Context, apiKey, model string) (*geminiClassifier, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // disabled without an API key
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiClassifier{
		client: client,
		model:  model,
		tools:  []*genai.Tool{{FunctionDeclarations: BuildFunctions()}},
	}, nil
}

// Classify implements Classifier.
func (c *geminiClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, ClassifyTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Tools:             c.tools,
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), config)
	if err != nil {
		var apiErr genai.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		slog.WarnContext(ctx, "intent classification call failed",
			"provider", ProviderGemini,
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("generate content: %w", err), ProviderGemini, status)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, &LLMError{Err: errors.New("empty response from model"), Provider: ProviderGemini}
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			return toClassification(ProviderGemini, part.FunctionCall.Name, part.FunctionCall.Args)
		}
	}
	return nil, &LLMError{Err: errors.New("no function call in response"), Provider: ProviderGemini}
}

// Provider implements Classifier.
func (c *geminiClassifier) Provider() Provider { return ProviderGemini }

// Close implements Classifier. The genai client holds no resources to release.
func (c *geminiClassifier) Close() error { return nil }
