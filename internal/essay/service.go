// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/essay/plan"
	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/metrics"
	"github.com/zt-a/refgen-ai-backend/internal/platform/validate"
	"github.com/zt-a/refgen-ai-backend/internal/queue"
	"github.com/zt-a/refgen-ai-backend/internal/users/profile"
	"github.com/zt-a/refgen-ai-backend/pkg/pagination"
)

// Request defaults and limits.
const (
	DefaultPageCount     = 20
	DefaultChaptersCount = 6
	MinPageCount         = 5
	MaxPageCount         = 200
	MaxChaptersCount     = 30
	maxLabelLength       = 255
)

// # Service Layer

// Service orchestrates planning, dispatch and reads of essays.
type Service struct {
	repository Repository
	profiles   ProfileReader
	planner    PlanGenerator
	tasks      TaskQueue
	budget     budget.Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs a new [Service] with its collaborators.
func NewService(repository Repository, profiles ProfileReader, planner PlanGenerator, tasks TaskQueue, cfg budget.Config, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		profiles:   profiles,
		planner:    planner,
		tasks:      tasks,
		budget:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// CreatePlanInput is the caller's request for a new essay.
type CreatePlanInput struct {
	Topic         string
	Subject       string
	CheckedBy     string
	PageCount     int
	ChaptersCount int
	Language      string
}

// normalize trims text fields and fills defaults for omitted values.
func (input CreatePlanInput) normalize() CreatePlanInput {
	input.Topic = strings.TrimSpace(input.Topic)
	input.Subject = strings.TrimSpace(input.Subject)
	input.CheckedBy = strings.TrimSpace(input.CheckedBy)
	input.Language = strings.ToLower(strings.TrimSpace(input.Language))

	if input.PageCount == 0 {
		input.PageCount = DefaultPageCount
	}
	if input.ChaptersCount == 0 {
		input.ChaptersCount = DefaultChaptersCount
	}
	if input.Language == "" {
		input.Language = LanguageRussian
	}
	return input
}

func (input CreatePlanInput) validate() error {
	validator := &validate.Validator{}
	validator.Required(FieldTopic, input.Topic).MaxLen(FieldTopic, input.Topic, maxLabelLength).
		Required(FieldSubject, input.Subject).MaxLen(FieldSubject, input.Subject, maxLabelLength).
		Required(FieldCheckedBy, input.CheckedBy).MaxLen(FieldCheckedBy, input.CheckedBy, maxLabelLength).
		Range(FieldPageCount, input.PageCount, MinPageCount, MaxPageCount).
		Range(FieldChaptersCount, input.ChaptersCount, 1, MaxChaptersCount).
		OneOf(FieldLanguage, input.Language, LanguageRussian, LanguageEnglish, LanguageKyrgyz)
	return validator.Err()
}

// PlanResult is returned by [Service.CreatePlan].
type PlanResult struct {
	EssayID int64  `json:"essay_id"`
	Plan    string `json:"plan"`
}

// requiredProfileFields lists the profile fields printed on the title page.
var requiredProfileFields = []string{
	profile.FieldName,
	profile.FieldSurname,
	profile.FieldUniversity,
	profile.FieldFaculty,
	profile.FieldCourse,
	profile.FieldGroup,
	profile.FieldCity,
}

// missingProfileFields returns every required field that is blank, in a fixed order.
func missingProfileFields(owner *profile.Profile) []string {
	if owner == nil {
		return append([]string(nil), requiredProfileFields...)
	}

	present := map[string]bool{
		profile.FieldName:       strings.TrimSpace(owner.Name) != "",
		profile.FieldSurname:    strings.TrimSpace(owner.Surname) != "",
		profile.FieldUniversity: strings.TrimSpace(owner.University) != "",
		profile.FieldFaculty:    strings.TrimSpace(owner.Faculty) != "",
		profile.FieldCourse:     owner.Course > 0,
		profile.FieldGroup:      strings.TrimSpace(owner.Group) != "",
		profile.FieldCity:       strings.TrimSpace(owner.City) != "",
	}

	var missing []string
	for _, field := range requiredProfileFields {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

// # Planning

/*
CreatePlan plans a new essay and stores it with its chapters.

Description: Checks the owner's profile, asks the plan collaborator for chapter
titles, reconciles them with the requested count, distributes the pages and
writes the essay, its metadata snapshot and every chapter in one transaction.

Parameters:
  - context: context.Context
  - ownerID: string
  - input: CreatePlanInput

Returns:
  - *PlanResult: New essay id and the raw plan text
  - error: Validation, IncompleteProfile, PlanGenerationFailed or storage failures
*/
func (service *Service) CreatePlan(context context.Context, ownerID string, input CreatePlanInput) (*PlanResult, error) {
	result, err := service.createPlan(context, ownerID, input)
	if err != nil {
		metrics.EssayPlansTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.EssayPlansTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return result, nil
}

func (service *Service) createPlan(context context.Context, ownerID string, input CreatePlanInput) (*PlanResult, error) {
	input = input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	// 1. Profile completeness
	owner, err := service.profiles.FindByUserID(context, ownerID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		owner = nil
	}
	if missing := missingProfileFields(owner); len(missing) > 0 {
		return nil, apperr.IncompleteProfile(missing)
	}

	// 2. Fixed section weight
	weight := budget.SectionWeight(input.PageCount)
	const referencesPages = 1

	// 3. Plan collaborator
	raw, err := service.planner.GeneratePlan(context, input.Topic, input.ChaptersCount, input.Language)
	if err != nil {
		return nil, apperr.UpstreamFailed("PLAN_GENERATION_FAILED", "Plan generation failed, please retry later", err)
	}

	// 4. Authoritative chapter list
	titles := plan.Reconcile(plan.ExtractTitles(raw), input.ChaptersCount)
	if len(titles) != input.ChaptersCount {
		service.logger.Info("plan_chapter_count_mismatch",
			slog.String("user_id", ownerID),
			slog.Int("requested", input.ChaptersCount),
			slog.Int("planned", len(titles)),
		)
	}

	// 5. Page distribution
	distribution, err := budget.DistributePages(input.PageCount, weight, weight, referencesPages, len(titles))
	if err != nil {
		return nil, apperr.PlanGenerationFailed(err.Error(), err)
	}

	// 6. Character budgets
	introduction := budget.PagesToCharBudget(distribution.Introduction, service.budget)
	conclusion := budget.PagesToCharBudget(distribution.Conclusion, service.budget)
	references := budget.PagesToCharBudget(distribution.References, service.budget)

	chapterChars := make([]int, 0, len(distribution.Chapters))
	for _, pages := range distribution.Chapters {
		chapterChars = append(chapterChars, budget.PagesToCharBudget(pages, service.budget).Chars)
	}

	// 7. Chapter specs, checked before any write
	specs, err := plan.Specs(titles, chapterChars)
	if err != nil {
		return nil, apperr.InternalInconsistency(err)
	}

	essay := &Essay{
		UserID:                 ownerID,
		Topic:                  input.Topic,
		PageCount:              input.PageCount,
		ChapterCount:           len(specs),
		Language:               input.Language,
		Status:                 StatusPlanGenerated,
		IntroductionCharsCount: introduction.Chars,
		ConclusionCharsCount:   conclusion.Chars,
		ReferencesCharsCount:   references.Chars,
	}

	metadata := &Metadata{
		University:  owner.University,
		Faculty:     owner.Faculty,
		Subject:     input.Subject,
		Course:      owner.Course,
		PerformedBy: owner.FullName(),
		CheckedBy:   input.CheckedBy,
		Group:       owner.Group,
		City:        owner.City,
		Year:        service.now().Year(),
	}

	chapters := make([]*Chapter, 0, len(specs))
	for _, spec := range specs {
		chapters = append(chapters, &Chapter{Title: spec.Title, Position: spec.Position, Chars: spec.Chars})
	}

	if err := service.repository.CreateWithPlan(context, essay, metadata, chapters); err != nil {
		return nil, err
	}

	service.logger.Info("essay_planned",
		slog.Int64("essay_id", essay.ID),
		slog.String("user_id", ownerID),
		slog.Int("page_count", essay.PageCount),
		slog.Int("chapter_count", essay.ChapterCount),
	)

	return &PlanResult{EssayID: essay.ID, Plan: raw}, nil
}

// # Dispatch

/*
StartGeneration queues background generation unless a job is already in flight.

Description: Runs under the essay row lock, so concurrent calls for the same
essay dispatch exactly one job. Later calls return the stored task id.

Parameters:
  - context: context.Context
  - essayID: int64
  - ownerID: string

Returns:
  - *GenerationState: Status and task id
  - error: ErrNotFound, DispatchFailed or storage failures
*/
func (service *Service) StartGeneration(context context.Context, essayID int64, ownerID string) (*GenerationState, error) {
	var dispatchErr error
	dispatch := service.enqueue(essayID, &dispatchErr)

	state, dispatched, err := service.repository.DispatchGeneration(context, essayID, ownerID, dispatch)
	if err != nil {
		if dispatchErr != nil {
			service.logger.Error("generation_dispatch_failed",
				slog.Int64("essay_id", essayID),
				slog.Any("error", dispatchErr),
			)
			return nil, apperr.DispatchFailed(dispatchErr)
		}
		return nil, err
	}

	if dispatched {
		service.logger.Info("generation_dispatched",
			slog.Int64("essay_id", essayID),
			slog.String("task_id", deref(state.TaskID)),
		)
	}
	return state, nil
}

// enqueue adapts the task queue to a [DispatchFunc] and records its error in failure.
func (service *Service) enqueue(essayID int64, failure *error) DispatchFunc {
	return func(ctx context.Context) (string, error) {
		taskID, err := service.tasks.Enqueue(ctx, essayID)
		*failure = err
		return taskID, err
	}
}

/*
PollStatus returns the essay's generation status.

Description: When the essay is GENERATING, the queue is asked for its task's
state. Only an observed task failure is written back, as FAILURE with the task's
reason, and only if the essay is still GENERATING under that task.

Parameters:
  - context: context.Context
  - essayID: int64
  - ownerID: string

Returns:
  - *GenerationState: Current status and task id
  - error: ErrNotFound or storage failures
*/
func (service *Service) PollStatus(context context.Context, essayID int64, ownerID string) (*GenerationState, error) {
	essay, err := service.repository.FindByIDForOwner(context, essayID, ownerID)
	if err != nil {
		return nil, err
	}

	if essay.TaskID == nil || essay.Status != StatusGenerating {
		return essay.state(), nil
	}

	task, err := service.tasks.State(context, *essay.TaskID)
	if err != nil {
		service.logger.Warn("task_state_unavailable",
			slog.Int64("essay_id", essayID),
			slog.Any("error", err),
		)
		return essay.state(), nil
	}

	if task.State != queue.StateFailure {
		return essay.state(), nil
	}

	reason := task.Reason
	if reason == "" {
		reason = "generation failed"
	}
	applied, err := service.repository.MarkFailedForTask(context, essayID, *essay.TaskID, reason)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The essay moved on while the queue was read.
		current, err := service.repository.FindByIDForOwner(context, essayID, ownerID)
		if err != nil {
			return nil, err
		}
		return current.state(), nil
	}

	essay.Status = StatusFailure
	essay.FailureReason = &reason
	return essay.state(), nil
}

// # Reads & Edits

// GetEssay returns the owner's essay with its metadata and chapters.
func (service *Service) GetEssay(context context.Context, essayID int64, ownerID string) (*Essay, error) {
	essay, err := service.repository.FindByIDForOwner(context, essayID, ownerID)
	if err != nil {
		return nil, err
	}

	chapters, err := service.repository.ListChapters(context, essayID)
	if err != nil {
		return nil, err
	}
	essay.Chapters = chapters

	return essay, nil
}

// ListEssays returns a page of the owner's essays and the total count.
func (service *Service) ListEssays(context context.Context, ownerID string, page pagination.Params) ([]*Essay, int, error) {
	return service.repository.ListByOwner(context, ownerID, page.Limit, page.Offset())
}

// ListChapters returns the chapters of the owner's essay ordered by position.
func (service *Service) ListChapters(context context.Context, essayID int64, ownerID string) ([]*Chapter, error) {
	if _, err := service.repository.FindByIDForOwner(context, essayID, ownerID); err != nil {
		return nil, err
	}
	return service.repository.ListChapters(context, essayID)
}

/*
UpdateChapterTitle renames a chapter of one of the owner's essays.

Parameters:
  - context: context.Context
  - ownerID: string
  - chapterID: int64
  - title: string

Returns:
  - *Chapter: The renamed chapter
  - error: Validation, ErrChapterNotFound, ErrChapterForbidden or storage failures
*/
func (service *Service) UpdateChapterTitle(context context.Context, ownerID string, chapterID int64, title string) (*Chapter, error) {
	title = strings.TrimSpace(title)

	validator := &validate.Validator{}
	validator.Custom(FieldChapterID, chapterID <= 0, "Must be a positive integer").
		Required(FieldTitle, title).
		MaxLen(FieldTitle, title, maxLabelLength)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	_, essayOwner, err := service.repository.FindChapterOwner(context, chapterID)
	if err != nil {
		return nil, err
	}
	if essayOwner != ownerID {
		return nil, ErrChapterForbidden
	}

	chapter, err := service.repository.UpdateChapterTitle(context, chapterID, title)
	if err != nil {
		return nil, err
	}

	service.logger.Info("chapter_title_updated",
		slog.Int64("chapter_id", chapterID),
		slog.Int64("essay_id", chapter.EssayID),
	)
	return chapter, nil
}

/*
Export renders the owner's essay as a standalone HTML document.

Returns:
  - string: Attachment file name
  - []byte: Document body
  - error: ErrNotFound or storage failures
*/
func (service *Service) Export(context context.Context, essayID int64, ownerID string) (string, []byte, error) {
	essay, err := service.GetEssay(context, essayID, ownerID)
	if err != nil {
		return "", nil, err
	}

	body, err := Render(essay)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	return ExportFileName(essay), body, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
