package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiClassifier classifies utterances through an OpenAI-compatible
// chat completions endpoint with required tool calling.
type openaiClassifier struct {
	client openai.Client
	model  string
	tools  []openai.ChatCompletionToolUnionParam
}

// newOpenAIClassifier creates an OpenAI classifier. Returns nil when apiKey is empty.
func newOpenAIClassifier(apiKey, model, baseURL string, opts ...option.RequestOption) *openaiClassifier {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &openaiClassifier{
		client: openai.NewClient(reqOpts...),
		model:  model,
		tools:  buildOpenAITools(),
	}
}

// buildOpenAITools converts the shared declarations to JSON Schema tools.
// genai type constants are upper case ("STRING"); JSON Schema wants lower case.
func buildOpenAITools() []openai.ChatCompletionToolUnionParam {
	decls := BuildFunctions()
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(decls))
	for _, fd := range decls {
		properties := make(map[string]any, len(fd.Parameters.Properties))
		for name, schema := range fd.Parameters.Properties {
			prop := map[string]any{
				"type":        strings.ToLower(string(schema.Type)),
				"description": schema.Description,
			}
			if len(schema.Enum) > 0 {
				prop["enum"] = schema.Enum
			}
			properties[name] = prop
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fd.Name,
			Description: openai.String(fd.Description),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   fd.Parameters.Required,
			},
		}))
	}
	return out
}

// Classify implements Classifier.
func (c *openaiClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, ClassifyTimeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(text),
		},
		Tools: c.tools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		slog.WarnContext(ctx, "intent classification call failed",
			"provider", ProviderOpenAI,
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, WrapError(fmt.Errorf("chat completion: %w", err), ProviderOpenAI, status)
	}

	if resp == nil || len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, &LLMError{Err: errors.New("no tool call in response"), Provider: ProviderOpenAI}
	}

	call := resp.Choices[0].Message.ToolCalls[0]
	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, &LLMError{Err: fmt.Errorf("decode tool arguments: %w", err), Provider: ProviderOpenAI}
		}
	}
	return toClassification(ProviderOpenAI, call.Function.Name, args)
}

// Provider implements Classifier.
func (c *openaiClassifier) Provider() Provider { return ProviderOpenAI }

// Close implements Classifier.
func (c *openaiClassifier) Close() error { return nil }
