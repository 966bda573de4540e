// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay

import (
	"context"
	"fmt"

	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/queue"
	"github.com/zt-a/refgen-ai-backend/internal/users/profile"
)

var (
	// ErrNotFound is returned when no essay matches the id and owner.
	ErrNotFound = apperr.NotFound("Essay")

	// ErrChapterNotFound is returned when a chapter id does not exist.
	ErrChapterNotFound = apperr.NotFound("Chapter")

	// ErrChapterForbidden is returned when the chapter belongs to another user's essay.
	ErrChapterForbidden = apperr.Forbidden("You do not have access to this chapter")

	// ErrTaskSuperseded is returned when a job's task is not the essay's current
	// generating task. It wraps [queue.ErrSkipped].
	ErrTaskSuperseded = fmt.Errorf("%w: essay is not generating under this task", queue.ErrSkipped)
)

// DispatchFunc queues the background job and returns its task id.
type DispatchFunc func(context context.Context) (string, error)

// # Data Access

// Repository defines the persistence contract for essays and their children.
type Repository interface {

	/*
		CreateWithPlan inserts the essay, its metadata and its chapters in one
		transaction. The generated ids are written back into the arguments.

		Parameters:
		  - context: context.Context
		  - essay: *Essay
		  - metadata: *Metadata
		  - chapters: []*Chapter

		Returns:
		  - error: Storage failures; nothing is persisted on error
	*/
	CreateWithPlan(context context.Context, essay *Essay, metadata *Metadata, chapters []*Chapter) error

	/*
		DispatchGeneration locks the owner's essay row and, unless a job is already
		in flight, calls dispatch and stores the returned task id with status GENERATING.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - ownerID: string
		  - dispatch: DispatchFunc

		Returns:
		  - *GenerationState: The state after the call
		  - bool: Whether dispatch was called and committed
		  - error: ErrNotFound, the dispatch error, or storage failures
	*/
	DispatchGeneration(context context.Context, id int64, ownerID string, dispatch DispatchFunc) (*GenerationState, bool, error)

	// FindByIDForOwner returns the owner's essay with its metadata. ErrNotFound otherwise.
	FindByIDForOwner(context context.Context, id int64, ownerID string) (*Essay, error)

	// FindByID returns an essay regardless of owner, after any in-progress
	// dispatch on it has committed. Used by the worker.
	FindByID(context context.Context, id int64) (*Essay, error)

	// ListByOwner returns a page of the owner's essays, newest first, and the total count.
	ListByOwner(context context.Context, ownerID string, limit, offset int) ([]*Essay, int, error)

	// ListChapters returns the chapters of an essay ordered by position.
	ListChapters(context context.Context, essayID int64) ([]*Chapter, error)

	// FindChapterOwner returns the chapter and the user id owning its essay.
	FindChapterOwner(context context.Context, chapterID int64) (*Chapter, string, error)

	// UpdateChapterTitle renames a chapter.
	UpdateChapterTitle(context context.Context, chapterID int64, title string) (*Chapter, error)

	/*
		SaveGenerated stores every generated text and status GENERATED in one
		transaction, provided the essay is still GENERATING under taskID.

		Returns:
		  - error: ErrTaskSuperseded when the task is no longer current, or storage failures
	*/
	SaveGenerated(context context.Context, id int64, taskID string, text GeneratedText) error

	/*
		MarkFailedForTask sets status FAILURE with a reason, provided the essay is
		still GENERATING under taskID.

		Returns:
		  - bool: Whether the row was updated
		  - error: Storage failures
	*/
	MarkFailedForTask(context context.Context, id int64, taskID, reason string) (bool, error)
}

// # Collaborators

// ProfileReader looks up the owner's academic profile.
type ProfileReader interface {
	FindByUserID(context context.Context, userID string) (*profile.Profile, error)
}

// TaskQueue dispatches generation jobs and reports their state.
type TaskQueue interface {
	Enqueue(context context.Context, essayID int64) (string, error)
	State(context context.Context, taskID string) (queue.TaskState, error)
}

// PlanGenerator proposes chapter titles as marked-up text.
type PlanGenerator interface {
	GeneratePlan(context context.Context, topic string, chaptersCount int, language string) (string, error)
}

// SectionWriter writes the introduction, conclusion or references.
type SectionWriter interface {
	WriteSection(context context.Context, kind, topic, language string, chars int) (string, error)
}

// ChapterWriter writes one chapter.
type ChapterWriter interface {
	WriteChapter(context context.Context, topic, title string, position int, language string, size budget.CharBudget) (string, error)
}
