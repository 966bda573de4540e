// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/platform/metrics"
)

// # Background Generation

// Generator is the worker-side unit of work that writes an essay's text.
type Generator struct {
	repository Repository
	sections   SectionWriter
	chapters   ChapterWriter
	budget     budget.Config
	logger     *slog.Logger
}

// NewGenerator constructs a [Generator].
func NewGenerator(repository Repository, sections SectionWriter, chapters ChapterWriter, cfg budget.Config, logger *slog.Logger) *Generator {
	return &Generator{
		repository: repository,
		sections:   sections,
		chapters:   chapters,
		budget:     cfg,
		logger:     logger,
	}
}

/*
Run generates every section of an essay and stores them at once.

Description: The job runs only while the essay is GENERATING under taskID; a
duplicate or stale job returns ErrTaskSuperseded without writing anything. The
sections are written one after another. Nothing is stored until all of them
succeed; any failure marks the essay FAILURE with the reason and is returned so
the task is reported as failed. There are no retries.

Parameters:
  - context: context.Context
  - taskID: string
  - essayID: int64

Returns:
  - error: The first failure, or nil when the essay is GENERATED
*/
func (generator *Generator) Run(context context.Context, taskID string, essayID int64) error {
	start := time.Now()
	logger := generator.logger.With(slog.Int64("essay_id", essayID), slog.String("task_id", taskID))

	err := generator.run(context, taskID, essayID, logger)
	if !errors.Is(err, ErrTaskSuperseded) {
		metrics.EssayGenerationDuration.Observe(time.Since(start).Seconds())
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrTaskSuperseded):
		metrics.EssayGenerationTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		logger.Info("essay_generation_skipped")
		return err
	case errors.Is(err, ErrNotFound):
		metrics.EssayGenerationTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return fmt.Errorf("essay %d not found", essayID)
	default:
		metrics.EssayGenerationTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		logger.Error("essay_generation_failed", slog.Any("error", err))
		markCtx, cancel := detach(context)
		defer cancel()
		if _, markErr := generator.repository.MarkFailedForTask(markCtx, essayID, taskID, err.Error()); markErr != nil {
			logger.Error("essay_mark_failed_failed", slog.Any("error", markErr))
		}
		return err
	}

	metrics.EssayGenerationTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logger.Info("essay_generated", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (generator *Generator) run(context context.Context, taskID string, essayID int64, logger *slog.Logger) error {
	// 1. Load
	essay, err := generator.repository.FindByID(context, essayID)
	if err != nil {
		return err
	}

	// 2. Current task only
	if essay.TaskID == nil || *essay.TaskID != taskID || essay.Status != StatusGenerating {
		return ErrTaskSuperseded
	}

	chapters, err := generator.repository.ListChapters(context, essayID)
	if err != nil {
		return err
	}

	text := GeneratedText{Chapters: make(map[int64]string, len(chapters))}

	// 3. Fixed sections
	sections := []struct {
		kind   string
		chars  int
		target **string
	}{
		{SectionIntroduction, essay.IntroductionCharsCount, &text.Introduction},
		{SectionConclusion, essay.ConclusionCharsCount, &text.Conclusion},
		{SectionReferences, essay.ReferencesCharsCount, &text.References},
	}
	for _, section := range sections {
		if section.chars <= 0 {
			continue
		}
		body, err := generator.sections.WriteSection(context, section.kind, essay.Topic, essay.Language, section.chars)
		if err != nil {
			return fmt.Errorf("write %s: %w", section.kind, err)
		}
		*section.target = &body
		logger.Debug("section_written", slog.String("section", section.kind))
	}

	// 4. Chapters in position order
	for _, chapter := range chapters {
		if chapter.Chars <= 0 {
			continue
		}
		size := budget.ScaleForChapter(chapter.Chars, generator.budget)
		body, err := generator.chapters.WriteChapter(context, essay.Topic, chapter.Title, chapter.Position, essay.Language, size)
		if err != nil {
			return fmt.Errorf("write chapter %d: %w", chapter.Position, err)
		}
		text.Chapters[chapter.ID] = body
		logger.Debug("chapter_written", slog.Int("position", chapter.Position))
	}

	// 5. Persist
	return generator.repository.SaveGenerated(context, essayID, taskID, text)
}

// detach keeps failure bookkeeping alive when the job context is cancelled by shutdown.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}
