// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package llm

import (
	stdctx "context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI is a [Completer] backed by the Chat Completions API. Any compatible
// endpoint works through the base URL.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI constructs an [OpenAI] completer.
func NewOpenAI(apiKey, baseURL, model string, temperature float32) *OpenAI {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
	}
}

func (completer *OpenAI) Provider() string { return ProviderOpenAI }
func (completer *OpenAI) Model() string    { return completer.model }

// Complete sends the prompt as a single user message.
func (completer *OpenAI) Complete(context stdctx.Context, prompt string) (string, error) {
	response, err := completer.client.CreateChatCompletion(context, openai.ChatCompletionRequest{
		Model:       completer.model,
		Temperature: completer.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}

	text := strings.TrimSpace(response.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: empty response")
	}
	return text, nil
}
