// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package llm generates essay text with a hosted language model.

It is split into two layers:

  - Completer: a single prompt in, a single completion out. One implementation
    per provider (OpenAI chat completions, Google Gemini).
  - Agents: renders the embedded prompt templates and calls a Completer for the
    plan, the fixed sections and each chapter.

Every generated body follows the same markup:

	<document>
	    <content>...</content>
	    <formulas>...</formulas>
	</document>
*/
package llm

import (
	stdctx "context"
	"fmt"
	"strings"

	"github.com/zt-a/refgen-ai-backend/internal/platform/config"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Completer sends one prompt to a model and returns the raw completion.
type Completer interface {
	Complete(context stdctx.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

// NewCompleter builds the [Completer] selected by LLM_PROVIDER.
func NewCompleter(context stdctx.Context, cfg *config.Config) (Completer, error) {
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("llm: OPENAI_API_KEY is empty")
		}
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLM.Model, cfg.LLM.Temperature), nil
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("llm: GEMINI_API_KEY is empty")
		}
		return NewGemini(context, cfg.GeminiAPIKey, cfg.LLM.Model, cfg.LLM.Temperature)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.LLM.Provider)
	}
}

// StripCodeFences removes a surrounding markdown code fence such as ```xml ... ```.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence line, including any language tag.
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
