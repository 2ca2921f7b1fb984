// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lingotag/lingotag/internal/model"
)

// OpenAIProvider implements Provider using OpenAI's chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL for compatible endpoints (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	m := cfg.Model
	if m == "" {
		m = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       m,
		temperature: temperature,
	}
}

// Translate translates a batch of texts.
func (p *OpenAIProvider) Translate(ctx context.Context, req Request) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &Error{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req Request) string {
	targetName := model.LanguageName(req.TargetLang)

	prompt := fmt.Sprintf(`You are an expert native translator. Translate the provided course content into idiomatic %s.

Rules:
- Do NOT translate HTML tags, class names, IDs, attributes, URLs, or content inside <code> blocks.
- Preserve the markup structure of HTML fragments exactly.
- Preserve meaningful whitespace, including leading and trailing spaces.
- Never translate tokens of the form {t:...}; keep them exactly as they appear.

Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input.
Example: { "translations": ["first translation", "second translation"] }
Do NOT wrap the response in Markdown code blocks.`, targetName)

	if req.SourceLang != "" {
		prompt += fmt.Sprintf("\nThe source language is %s.", model.LanguageName(req.SourceLang))
	}
	return prompt
}

func (p *OpenAIProvider) buildUserMessage(req Request) string {
	data, _ := json.Marshal(req.Texts)
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	var result struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil || result.Translations == nil {
		return nil, &MalformedResponseError{Detail: "invalid response format from OpenAI"}
	}

	if len(result.Translations) != expectedCount {
		return nil, &CountMismatchError{
			Expected: expectedCount,
			Got:      len(result.Translations),
		}
	}

	return result.Translations, nil
}

// isRetryableError classifies OpenAI client errors. Rate limits and server
// errors are transient; auth and quota failures would fail identically for
// every retry and are permanent.
func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
			return false
		}
	}

	// Network-level failures without a status code are worth retrying.
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection refused", "connection reset", "temporary"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
