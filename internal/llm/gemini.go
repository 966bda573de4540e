// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package llm

import (
	stdctx "context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini is a [Completer] backed by the Google Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini opens a Gemini client. Call [Gemini.Close] on shutdown.
func NewGemini(context stdctx.Context, apiKey, model string, temperature float32) (*Gemini, error) {
	client, err := genai.NewClient(context, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       strings.TrimSpace(model),
		temperature: temperature,
	}, nil
}

func (completer *Gemini) Provider() string { return ProviderGemini }
func (completer *Gemini) Model() string    { return completer.model }

// Close releases the underlying client connection.
func (completer *Gemini) Close() error {
	return completer.client.Close()
}

// Complete sends the prompt as a single text part and returns the first text candidate.
func (completer *Gemini) Complete(context stdctx.Context, prompt string) (string, error) {
	model := completer.client.GenerativeModel(completer.model)
	temperature := completer.temperature
	model.GenerationConfig = genai.GenerationConfig{Temperature: &temperature}

	response, err := model.GenerateContent(context, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := strings.TrimSpace(firstText(response))
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}

// firstText returns the first text part of the first candidate that has one.
func firstText(response *genai.GenerateContentResponse) string {
	if response == nil {
		return ""
	}
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text)
			}
		}
	}
	return ""
}
