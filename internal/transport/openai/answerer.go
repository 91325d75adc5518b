package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/domain"
)

const systemPrompt = "You are a Red Hat expert. Answer the user's question using ONLY the following " +
	"documentation excerpts. If the excerpts do not contain enough information, say so. " +
	"Do not invent details."

// noContext replaces an empty retrieval context in the prompt.
const noContext = "No documentation found."

// Answerer answers questions from retrieved documentation through an
// OpenAI-compatible chat completion API.
type Answerer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewAnswerer creates an OpenAI-compatible answerer.
func NewAnswerer(cfg *Config) *Answerer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Answerer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Messages builds the chat messages for a question and its retrieved excerpts.
func Messages(question, excerpts string) []openai.ChatCompletionMessage {
	if strings.TrimSpace(excerpts) == "" {
		excerpts = noContext
	}
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Documentation excerpts:\n\n" + excerpts + "\n\nQuestion: " + question},
	}
}

// Answer asks the model to answer question using only the given excerpts.
func (a *Answerer) Answer(ctx context.Context, question, excerpts string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    Messages(question, excerpts),
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		a.logger.Warn("chat completion failed", zap.String("model", a.model), zap.Error(err))
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrAnswerProvider)
	}

	a.logger.Debug("chat completion",
		zap.String("model", a.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (a *Answerer) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrAnswerProvider.
func parseAPIError(err error) error {
	wrap := domain.ErrAnswerProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("chat request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
