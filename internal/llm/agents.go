// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package llm

import (
	stdctx "context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/platform/metrics"
)

// Section kinds accepted by [Agents.WriteSection].
const (
	SectionIntroduction = "introduction"
	SectionConclusion   = "conclusion"
	SectionReferences   = "references"
)

var languageNames = map[string]string{
	"ru": "Russian",
	"en": "English",
	"kg": "Kyrgyz",
}

// languageName expands a language code for the prompt. Unknown codes pass through.
func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// # Agents

// Agents produces the plan and every essay section with one [Completer].
type Agents struct {
	completer Completer
	prompts   *Prompts
	logger    *slog.Logger
}

// NewAgents constructs [Agents]. A nil prompts value selects the embedded set.
func NewAgents(completer Completer, prompts *Prompts, logger *slog.Logger) (*Agents, error) {
	if prompts == nil {
		var err error
		if prompts, err = DefaultPrompts(); err != nil {
			return nil, err
		}
	}
	return &Agents{completer: completer, prompts: prompts, logger: logger}, nil
}

// Close releases the completer if it holds a connection.
func (agents *Agents) Close() error {
	if closer, ok := agents.completer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

/*
GeneratePlan asks the model for a chapter outline.

Returns:
  - string: Raw markup with one <h2> per chapter title
  - error: Provider failures
*/
func (agents *Agents) GeneratePlan(context stdctx.Context, topic string, chaptersCount int, language string) (string, error) {
	return agents.run(context, PromptPlan, PromptData{
		Topic:         topic,
		Language:      languageName(language),
		ChaptersCount: chaptersCount,
	})
}

// WriteSection writes the introduction, conclusion or references.
func (agents *Agents) WriteSection(context stdctx.Context, kind, topic, language string, chars int) (string, error) {
	switch kind {
	case SectionIntroduction, SectionConclusion, SectionReferences:
	default:
		return "", fmt.Errorf("llm: unknown section kind %q", kind)
	}

	return agents.run(context, kind, PromptData{
		Topic:    topic,
		Language: languageName(language),
		Chars:    chars,
	})
}

// WriteChapter writes one chapter sized by its character budget.
func (agents *Agents) WriteChapter(context stdctx.Context, topic, title string, position int, language string, size budget.CharBudget) (string, error) {
	return agents.run(context, PromptChapter, PromptData{
		Topic:        topic,
		Language:     languageName(language),
		ChapterTitle: title,
		Position:     position,
		Chars:        size.Chars,
		FullChars:    size.FullChars,
		Words:        size.Words,
	})
}

// run renders a prompt, calls the completer and records the call.
func (agents *Agents) run(context stdctx.Context, prompt string, data PromptData) (string, error) {
	text, err := agents.prompts.Render(prompt, data)
	if err != nil {
		return "", err
	}

	provider, model := agents.completer.Provider(), agents.completer.Model()
	start := time.Now()

	completion, err := agents.completer.Complete(context, text)

	elapsed := time.Since(start)
	metrics.LLMCallDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())

	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, model, metrics.OutcomeFailure).Inc()
		agents.logger.Warn("llm_call_failed",
			slog.String("prompt", prompt),
			slog.String("provider", provider),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
		return "", err
	}

	metrics.LLMCallTotal.WithLabelValues(provider, model, metrics.OutcomeSuccess).Inc()
	agents.logger.Debug("llm_call_completed",
		slog.String("prompt", prompt),
		slog.String("provider", provider),
		slog.Duration("elapsed", elapsed),
		slog.Int("length", len(completion)),
	)

	return StripCodeFences(completion), nil
}
