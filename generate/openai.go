package generate

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/geniteam/policyrag/helper"
)

const (
	// DefaultChatModel is the default model for answer generation
	DefaultChatModel = "gpt-4o-mini"
	// DefaultMaxTokens caps answer length; the prompt already demands
	// 2-4 sentences.
	DefaultMaxTokens = 800
	// DefaultTemperature keeps answers close to the retrieved text.
	DefaultTemperature = 0.3
)

// OpenAIConfig holds configuration for the OpenAI generator
type OpenAIConfig struct {
	APIKey      string
	ChatModel   string
	MaxTokens   int
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
}

// DefaultOpenAIConfig returns the default generator configuration
func DefaultOpenAIConfig(apiKey string) *OpenAIConfig {
	return &OpenAIConfig{
		APIKey:      apiKey,
		ChatModel:   DefaultChatModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		MaxRetries:  3,
		RetryDelay:  2 * time.Second,
	}
}

// OpenAIGenerator produces answers through the OpenAI chat API with
// simple retry and exponential backoff.
type OpenAIGenerator struct {
	client      *openai.Client
	chatModel   string
	maxTokens   int
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
}

// NewOpenAIGenerator creates a generator with default configuration
func NewOpenAIGenerator(apiKey string) (*OpenAIGenerator, error) {
	return NewOpenAIGeneratorWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIGeneratorWithConfig creates a generator with custom configuration
func NewOpenAIGeneratorWithConfig(config *OpenAIConfig) (*OpenAIGenerator, error) {
	if config.APIKey == "" {
		return nil, helper.NewError("create generator", fmt.Errorf("OpenAI API key is required"))
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(config.APIKey),
		chatModel:   config.ChatModel,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		maxRetries:  config.MaxRetries,
		retryDelay:  config.RetryDelay,
	}, nil
}

// Generate renders the confidence-branching prompt and calls the chat
// API, retrying transient failures.
func (g *OpenAIGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	prompt := BuildPrompt(req)

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.retryDelay * time.Duration(1<<(attempt-1))):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.chatModel,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion returned", attempt+1)
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", helper.NewError("generate answer", fmt.Errorf("failed after %d attempts: %w", g.maxRetries+1, lastErr))
}
