// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zt-a/refgen-ai-backend/internal/essay"
	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/essay/plan"
	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/queue"
	"github.com/zt-a/refgen-ai-backend/pkg/pagination"
)

const owner = "0190a4a8-0000-7000-8000-000000000001"

type fixture struct {
	repository *memoryRepository
	planner    *fakePlanner
	tasks      *fakeQueue
	service    *essay.Service
}

func newFixture(t *testing.T, withProfile bool) *fixture {
	t.Helper()

	profiles := staticProfiles{}
	if withProfile {
		profiles.profile = completeProfile(owner)
	}

	f := &fixture{
		repository: newMemoryRepository(),
		planner:    &fakePlanner{raw: planMarkup("Origins", "Structure", "Heroes", "Legacy")},
		tasks:      &fakeQueue{states: map[string]queue.TaskState{}},
	}
	f.service = essay.NewService(f.repository, profiles, f.planner, f.tasks, budget.DefaultConfig(), discardLogger())
	return f
}

func validInput() essay.CreatePlanInput {
	return essay.CreatePlanInput{
		Topic:         "Epic of Manas",
		Subject:       "Literature",
		CheckedBy:     "Prof. Bekov",
		PageCount:     25,
		ChaptersCount: 6,
		Language:      "ru",
	}
}

func requireAppError(t *testing.T, err error, code string, status int) *apperr.AppError {
	t.Helper()
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

/*
TestCreatePlan_PlanLengthWins verifies that a 4-title plan against a request for
6 chapters stores exactly 4 chapters with the distributed budgets.
*/
func TestCreatePlan_PlanLengthWins(t *testing.T) {
	f := newFixture(t, true)

	result, err := f.service.CreatePlan(context.Background(), owner, validInput())
	require.NoError(t, err)
	assert.Equal(t, f.planner.raw, result.Plan)

	stored, err := f.service.GetEssay(context.Background(), result.EssayID, owner)
	require.NoError(t, err)

	assert.Equal(t, essay.StatusPlanGenerated, stored.Status)
	assert.Equal(t, 4, stored.ChapterCount)
	assert.Equal(t, 25, stored.PageCount)

	// 25 pages: weight 2 for introduction and conclusion, 1 for references, 5 per chapter.
	assert.Equal(t, 3000, stored.IntroductionCharsCount)
	assert.Equal(t, 3000, stored.ConclusionCharsCount)
	assert.Equal(t, 1500, stored.ReferencesCharsCount)

	require.Len(t, stored.Chapters, 4)
	for index, chapter := range stored.Chapters {
		assert.Equal(t, index+1, chapter.Position)
		assert.Equal(t, 7500, chapter.Chars)
		assert.Nil(t, chapter.Content)
	}
	assert.Equal(t, "Origins", stored.Chapters[0].Title)
	assert.Equal(t, "Legacy", stored.Chapters[3].Title)

	require.NotNil(t, stored.Metadata)
	assert.Equal(t, "Asanova Aida", stored.Metadata.PerformedBy)
	assert.Equal(t, "Literature", stored.Metadata.Subject)
	assert.Equal(t, "Prof. Bekov", stored.Metadata.CheckedBy)
	assert.Equal(t, "HIS-21", stored.Metadata.Group)
	assert.Equal(t, time.Now().Year(), stored.Metadata.Year)
}

/*
TestCreatePlan_EmptyPlan verifies placeholder titles when the outline has no headings.
*/
func TestCreatePlan_EmptyPlan(t *testing.T) {
	f := newFixture(t, true)
	f.planner.raw = "I cannot help with that."

	input := validInput()
	input.PageCount = 20
	input.ChaptersCount = 5

	result, err := f.service.CreatePlan(context.Background(), owner, input)
	require.NoError(t, err)

	chapters, err := f.service.ListChapters(context.Background(), result.EssayID, owner)
	require.NoError(t, err)
	require.Len(t, chapters, 5)
	for index, chapter := range chapters {
		assert.Equal(t, plan.Placeholder(index+1), chapter.Title)
	}

	// 20 pages: 3 fixed, 17 over 5 chapters gives 4, 4, 3, 3, 3.
	assert.Equal(t, 6000, chapters[0].Chars)
	assert.Equal(t, 6000, chapters[1].Chars)
	assert.Equal(t, 4500, chapters[4].Chars)
}

/*
TestCreatePlan_IncompleteProfile verifies that every missing field is reported
and that nothing is written.
*/
func TestCreatePlan_IncompleteProfile(t *testing.T) {
	t.Run("blank_fields", func(t *testing.T) {
		f := newFixture(t, true)
		incomplete := completeProfile(owner)
		incomplete.University = ""
		incomplete.City = "  "
		f.service = essay.NewService(f.repository, staticProfiles{profile: incomplete}, f.planner, f.tasks, budget.DefaultConfig(), discardLogger())

		_, err := f.service.CreatePlan(context.Background(), owner, validInput())
		appErr := requireAppError(t, err, "PROFILE_INCOMPLETE", http.StatusBadRequest)

		fields := make([]string, 0, len(appErr.Details))
		for _, detail := range appErr.Details {
			fields = append(fields, detail.Field)
		}
		assert.Equal(t, []string{"university", "city"}, fields)
		assert.Zero(t, f.repository.essayCount())
		assert.Zero(t, f.planner.calls.Load())
	})

	t.Run("missing_profile", func(t *testing.T) {
		f := newFixture(t, false)

		_, err := f.service.CreatePlan(context.Background(), owner, validInput())
		appErr := requireAppError(t, err, "PROFILE_INCOMPLETE", http.StatusBadRequest)
		assert.Len(t, appErr.Details, 7)
		assert.Zero(t, f.repository.essayCount())
	})
}

/*
TestCreatePlan_Failures covers validation, allocator and collaborator failures.
*/
func TestCreatePlan_Failures(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		f := newFixture(t, true)
		input := validInput()
		input.Topic = " "
		input.Language = "de"

		_, err := f.service.CreatePlan(context.Background(), owner, input)
		appErr := requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
		assert.Len(t, appErr.Details, 2)
	})

	t.Run("too_many_chapters", func(t *testing.T) {
		f := newFixture(t, true)
		f.planner.raw = ""
		input := validInput()
		input.PageCount = 5
		input.ChaptersCount = 6

		_, err := f.service.CreatePlan(context.Background(), owner, input)
		appErr := requireAppError(t, err, "PLAN_GENERATION_FAILED", http.StatusUnprocessableEntity)
		assert.ErrorIs(t, appErr, budget.ErrTooManyChapters)
		assert.Zero(t, f.repository.essayCount())
	})

	t.Run("planner_error", func(t *testing.T) {
		f := newFixture(t, true)
		f.planner.err = errors.New("rate limited")

		_, err := f.service.CreatePlan(context.Background(), owner, validInput())
		requireAppError(t, err, "PLAN_GENERATION_FAILED", http.StatusBadGateway)
		assert.Zero(t, f.repository.essayCount())
	})
}

func planned(t *testing.T, f *fixture) int64 {
	t.Helper()
	result, err := f.service.CreatePlan(context.Background(), owner, validInput())
	require.NoError(t, err)
	return result.EssayID
}

// generating starts generation of the essay and returns its task id.
func generating(t *testing.T, f *fixture, essayID int64) (int64, string) {
	t.Helper()
	state, err := f.service.StartGeneration(context.Background(), essayID, owner)
	require.NoError(t, err)
	require.NotNil(t, state.TaskID)
	return essayID, *state.TaskID
}

/*
TestStartGeneration_SingleDispatch verifies that concurrent calls queue one job
and all observe the same task id.
*/
func TestStartGeneration_SingleDispatch(t *testing.T) {
	f := newFixture(t, true)
	essayID := planned(t, f)

	const callers = 8
	taskIDs := make([]string, callers)
	var wg sync.WaitGroup
	for index := 0; index < callers; index++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			state, err := f.service.StartGeneration(context.Background(), essayID, owner)
			if assert.NoError(t, err) && assert.NotNil(t, state.TaskID) {
				taskIDs[index] = *state.TaskID
			}
		}(index)
	}
	wg.Wait()

	assert.Equal(t, 1, f.tasks.count())
	for _, taskID := range taskIDs {
		assert.Equal(t, taskIDs[0], taskID)
	}
	assert.Equal(t, essay.StatusGenerating, f.repository.stored(essayID).Status)
}

func TestStartGeneration_Errors(t *testing.T) {
	t.Run("not_owner", func(t *testing.T) {
		f := newFixture(t, true)
		essayID := planned(t, f)

		_, err := f.service.StartGeneration(context.Background(), essayID, "someone-else")
		requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
	})

	t.Run("dispatch_failed", func(t *testing.T) {
		f := newFixture(t, true)
		essayID := planned(t, f)
		f.tasks.err = errors.New("redis unavailable")

		_, err := f.service.StartGeneration(context.Background(), essayID, owner)
		requireAppError(t, err, "DISPATCH_FAILED", http.StatusServiceUnavailable)

		stored := f.repository.stored(essayID)
		assert.Equal(t, essay.StatusPlanGenerated, stored.Status)
		assert.Nil(t, stored.TaskID)
	})

	t.Run("redispatch_after_failure", func(t *testing.T) {
		f := newFixture(t, true)
		essayID := planned(t, f)
		_, taskID := generating(t, f, essayID)
		applied, err := f.repository.MarkFailedForTask(context.Background(), essayID, taskID, "boom")
		require.NoError(t, err)
		require.True(t, applied)

		state, err := f.service.StartGeneration(context.Background(), essayID, owner)
		require.NoError(t, err)
		assert.Equal(t, essay.StatusGenerating, state.Status)
		assert.Nil(t, state.FailureReason)
		assert.Equal(t, 2, f.tasks.count())
		assert.NotEqual(t, taskID, *state.TaskID)
	})
}

/*
TestPollStatus verifies that only an observed task failure is written back.
*/
func TestPollStatus(t *testing.T) {
	t.Run("no_task", func(t *testing.T) {
		f := newFixture(t, true)
		essayID := planned(t, f)

		state, err := f.service.PollStatus(context.Background(), essayID, owner)
		require.NoError(t, err)
		assert.Equal(t, essay.StatusPlanGenerated, state.Status)
		assert.Zero(t, f.repository.failedCalls)
	})

	t.Run("running", func(t *testing.T) {
		f := newFixture(t, true)
		essayID := planned(t, f)
		started, err := f.service.StartGeneration(context.Background(), essayID, owner)
		require.NoError(t, err)
		f.tasks.states[*started.TaskID] = queue.TaskState{State: queue.StateStarted}

		state, err := f.service.PollStatus(context.Background(), essayID, owner)
		require.NoError(t, err)
		assert.Equal(t, essay.StatusGenerating, state.Status)
		assert.Zero(t, f.repository.failedCalls)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t, true)
		essayID := planned(t, f)
		started, err := f.service.StartGeneration(context.Background(), essayID, owner)
		require.NoError(t, err)
		f.tasks.states[*started.TaskID] = queue.TaskState{State: queue.StateFailure, Reason: "worker crashed"}

		state, err := f.service.PollStatus(context.Background(), essayID, owner)
		require.NoError(t, err)
		assert.Equal(t, essay.StatusFailure, state.Status)
		require.NotNil(t, state.FailureReason)
		assert.Equal(t, "worker crashed", *state.FailureReason)
		assert.Equal(t, 1, f.repository.failedCalls)

		// A second poll reads the stored failure without writing again.
		_, err = f.service.PollStatus(context.Background(), essayID, owner)
		require.NoError(t, err)
		assert.Equal(t, 1, f.repository.failedCalls)
	})

	t.Run("generated_ignores_failed_task", func(t *testing.T) {
		f := newFixture(t, true)
		essayID, taskID := generating(t, f, planned(t, f))
		require.NoError(t, f.repository.SaveGenerated(context.Background(), essayID, taskID, essay.GeneratedText{}))
		f.tasks.states[taskID] = queue.TaskState{State: queue.StateFailure, Reason: "duplicate job"}

		state, err := f.service.PollStatus(context.Background(), essayID, owner)
		require.NoError(t, err)
		assert.Equal(t, essay.StatusGenerated, state.Status)
		assert.Zero(t, f.repository.failedCalls)
	})

	t.Run("redispatched_while_polling", func(t *testing.T) {
		f := newFixture(t, true)
		essayID, staleTask := generating(t, f, planned(t, f))
		f.tasks.states[staleTask] = queue.TaskState{State: queue.StateFailure, Reason: "worker crashed"}

		// Between the queue read and the write back, the worker fails the
		// essay and the owner starts generation again.
		var freshTask string
		fired := false
		f.tasks.afterState = func(taskID string) {
			if fired || taskID != staleTask {
				return
			}
			fired = true
			_, err := f.repository.MarkFailedForTask(context.Background(), essayID, staleTask, "worker crashed")
			require.NoError(t, err)
			restarted, err := f.service.StartGeneration(context.Background(), essayID, owner)
			require.NoError(t, err)
			freshTask = *restarted.TaskID
		}

		state, err := f.service.PollStatus(context.Background(), essayID, owner)
		require.NoError(t, err)
		require.True(t, fired)
		assert.Equal(t, essay.StatusGenerating, state.Status)
		require.NotNil(t, state.TaskID)
		assert.Equal(t, freshTask, *state.TaskID)
		assert.Nil(t, state.FailureReason)

		stored := f.repository.stored(essayID)
		assert.Equal(t, essay.StatusGenerating, stored.Status)
		assert.Equal(t, freshTask, *stored.TaskID)
	})
}

/*
TestUpdateChapterTitle covers ownership, existence and validation.
*/
func TestUpdateChapterTitle(t *testing.T) {
	f := newFixture(t, true)
	essayID := planned(t, f)
	chapters, err := f.service.ListChapters(context.Background(), essayID, owner)
	require.NoError(t, err)
	chapterID := chapters[0].ID

	t.Run("renamed", func(t *testing.T) {
		chapter, err := f.service.UpdateChapterTitle(context.Background(), owner, chapterID, "  Oral tradition ")
		require.NoError(t, err)
		assert.Equal(t, "Oral tradition", chapter.Title)
	})

	t.Run("other_owner", func(t *testing.T) {
		_, err := f.service.UpdateChapterTitle(context.Background(), "someone-else", chapterID, "Mine")
		requireAppError(t, err, "FORBIDDEN", http.StatusForbidden)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.service.UpdateChapterTitle(context.Background(), owner, 9999, "Nothing")
		requireAppError(t, err, "NOT_FOUND", http.StatusNotFound)
	})

	t.Run("blank_title", func(t *testing.T) {
		_, err := f.service.UpdateChapterTitle(context.Background(), owner, chapterID, " ")
		requireAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
	})
}

func TestListEssays(t *testing.T) {
	f := newFixture(t, true)
	planned(t, f)
	planned(t, f)
	planned(t, f)

	essays, total, err := f.service.ListEssays(context.Background(), owner, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, essays, 2)

	essays, total, err = f.service.ListEssays(context.Background(), "nobody", pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, essays)
}
