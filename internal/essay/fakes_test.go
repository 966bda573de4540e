// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zt-a/refgen-ai-backend/internal/essay"
	"github.com/zt-a/refgen-ai-backend/internal/essay/budget"
	"github.com/zt-a/refgen-ai-backend/internal/queue"
	"github.com/zt-a/refgen-ai-backend/internal/users/profile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Repository

// memoryRepository is an in-memory [essay.Repository]. A single mutex stands
// in for the row lock taken by DispatchGeneration.
type memoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	essays   map[int64]*essay.Essay
	metadata map[int64]*essay.Metadata
	chapters map[int64]*essay.Chapter

	saveCalls   int
	failedCalls int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		essays:   map[int64]*essay.Essay{},
		metadata: map[int64]*essay.Metadata{},
		chapters: map[int64]*essay.Chapter{},
	}
}

func (repository *memoryRepository) id() int64 {
	repository.nextID++
	return repository.nextID
}

func (repository *memoryRepository) CreateWithPlan(_ context.Context, item *essay.Essay, metadata *essay.Metadata, chapters []*essay.Chapter) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	item.ID = repository.id()
	stored := *item
	repository.essays[item.ID] = &stored

	metadata.EssayID = item.ID
	storedMetadata := *metadata
	repository.metadata[item.ID] = &storedMetadata

	for _, chapter := range chapters {
		chapter.ID = repository.id()
		chapter.EssayID = item.ID
		storedChapter := *chapter
		repository.chapters[chapter.ID] = &storedChapter
	}
	return nil
}

func (repository *memoryRepository) DispatchGeneration(ctx context.Context, id int64, ownerID string, dispatch essay.DispatchFunc) (*essay.GenerationState, bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	item, ok := repository.essays[id]
	if !ok || item.UserID != ownerID {
		return nil, false, essay.ErrNotFound
	}

	if item.Status.IsInFlight() {
		return &essay.GenerationState{EssayID: id, Status: item.Status, TaskID: item.TaskID}, false, nil
	}

	taskID, err := dispatch(ctx)
	if err != nil {
		return nil, false, err
	}

	item.Status = essay.StatusGenerating
	item.TaskID = &taskID
	item.FailureReason = nil
	return &essay.GenerationState{EssayID: id, Status: item.Status, TaskID: item.TaskID}, true, nil
}

func (repository *memoryRepository) FindByIDForOwner(_ context.Context, id int64, ownerID string) (*essay.Essay, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	item, ok := repository.essays[id]
	if !ok || item.UserID != ownerID {
		return nil, essay.ErrNotFound
	}
	copied := *item
	if metadata, ok := repository.metadata[id]; ok {
		storedMetadata := *metadata
		copied.Metadata = &storedMetadata
	}
	return &copied, nil
}

func (repository *memoryRepository) FindByID(_ context.Context, id int64) (*essay.Essay, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	item, ok := repository.essays[id]
	if !ok {
		return nil, essay.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (repository *memoryRepository) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]*essay.Essay, int, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var owned []*essay.Essay
	for _, item := range repository.essays {
		if item.UserID == ownerID {
			copied := *item
			owned = append(owned, &copied)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID > owned[j].ID })

	total := len(owned)
	if offset >= total {
		return []*essay.Essay{}, total, nil
	}
	end := min(offset+limit, total)
	return owned[offset:end], total, nil
}

func (repository *memoryRepository) ListChapters(_ context.Context, essayID int64) ([]*essay.Chapter, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return repository.chaptersOf(essayID), nil
}

func (repository *memoryRepository) chaptersOf(essayID int64) []*essay.Chapter {
	chapters := []*essay.Chapter{}
	for _, chapter := range repository.chapters {
		if chapter.EssayID == essayID {
			copied := *chapter
			chapters = append(chapters, &copied)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Position < chapters[j].Position })
	return chapters
}

func (repository *memoryRepository) FindChapterOwner(_ context.Context, chapterID int64) (*essay.Chapter, string, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	chapter, ok := repository.chapters[chapterID]
	if !ok {
		return nil, "", essay.ErrChapterNotFound
	}
	copied := *chapter
	return &copied, repository.essays[chapter.EssayID].UserID, nil
}

func (repository *memoryRepository) UpdateChapterTitle(_ context.Context, chapterID int64, title string) (*essay.Chapter, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	chapter, ok := repository.chapters[chapterID]
	if !ok {
		return nil, essay.ErrChapterNotFound
	}
	chapter.Title = title
	copied := *chapter
	return &copied, nil
}

func (repository *memoryRepository) SaveGenerated(_ context.Context, id int64, taskID string, text essay.GeneratedText) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.saveCalls++
	item, ok := repository.essays[id]
	if !ok || !generatingUnder(item, taskID) {
		return essay.ErrTaskSuperseded
	}
	item.Introduction = text.Introduction
	item.Conclusion = text.Conclusion
	item.References = text.References
	item.Status = essay.StatusGenerated
	item.FailureReason = nil
	for chapterID, content := range text.Chapters {
		body := content
		repository.chapters[chapterID].Content = &body
	}
	return nil
}

func (repository *memoryRepository) MarkFailedForTask(_ context.Context, id int64, taskID, reason string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.failedCalls++
	item, ok := repository.essays[id]
	if !ok || !generatingUnder(item, taskID) {
		return false, nil
	}
	item.Status = essay.StatusFailure
	item.FailureReason = &reason
	return true, nil
}

func generatingUnder(item *essay.Essay, taskID string) bool {
	return item.Status == essay.StatusGenerating && item.TaskID != nil && *item.TaskID == taskID
}

func (repository *memoryRepository) essayCount() int {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return len(repository.essays)
}

func (repository *memoryRepository) stored(id int64) essay.Essay {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return *repository.essays[id]
}

// # Collaborators

type staticProfiles struct {
	profile *profile.Profile
}

func (reader staticProfiles) FindByUserID(_ context.Context, userID string) (*profile.Profile, error) {
	if reader.profile == nil || reader.profile.UserID != userID {
		return nil, profile.ErrNotFound
	}
	copied := *reader.profile
	return &copied, nil
}

func completeProfile(userID string) *profile.Profile {
	return &profile.Profile{
		UserID:     userID,
		Name:       "Aida",
		Surname:    "Asanova",
		University: "KNU",
		Faculty:    "History",
		Course:     2,
		Group:      "HIS-21",
		City:       "Bishkek",
	}
}

type fakePlanner struct {
	raw   string
	err   error
	calls atomic.Int32
}

func (planner *fakePlanner) GeneratePlan(context.Context, string, int, string) (string, error) {
	planner.calls.Add(1)
	return planner.raw, planner.err
}

// planMarkup builds an outline with one <h2> per title.
func planMarkup(titles ...string) string {
	markup := "<document><content><ul>"
	for _, title := range titles {
		markup += "<li><h2>" + title + "</h2></li>"
	}
	return markup + "</ul></content></document>"
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued int
	err      error
	states   map[string]queue.TaskState

	// afterState runs once a state has been read, outside the lock.
	afterState func(taskID string)
}

func (tasks *fakeQueue) Enqueue(_ context.Context, essayID int64) (string, error) {
	tasks.mu.Lock()
	defer tasks.mu.Unlock()

	if tasks.err != nil {
		return "", tasks.err
	}
	tasks.enqueued++
	return fmt.Sprintf("task-%d-%d", essayID, tasks.enqueued), nil
}

func (tasks *fakeQueue) State(_ context.Context, taskID string) (queue.TaskState, error) {
	tasks.mu.Lock()
	state, ok := tasks.states[taskID]
	hook := tasks.afterState
	tasks.mu.Unlock()

	if !ok {
		state = queue.TaskState{State: queue.StatePending}
	}
	if hook != nil {
		hook(taskID)
	}
	return state, nil
}

func (tasks *fakeQueue) count() int {
	tasks.mu.Lock()
	defer tasks.mu.Unlock()
	return tasks.enqueued
}

type chapterCall struct {
	title    string
	position int
	size     budget.CharBudget
}

// fakeWriter implements both writer interfaces. failOn names a section kind
// or "chapter:N" that returns an error.
type fakeWriter struct {
	failOn   string
	sections []string
	chapters []chapterCall
}

func (writer *fakeWriter) WriteSection(_ context.Context, kind, topic, _ string, chars int) (string, error) {
	if writer.failOn == kind {
		return "", fmt.Errorf("model refused %s", kind)
	}
	writer.sections = append(writer.sections, kind)
	return fmt.Sprintf("<document><content><p>%s of %s (%d)</p></content><formulas></formulas></document>", kind, topic, chars), nil
}

func (writer *fakeWriter) WriteChapter(_ context.Context, _, title string, position int, _ string, size budget.CharBudget) (string, error) {
	if writer.failOn == fmt.Sprintf("chapter:%d", position) {
		return "", fmt.Errorf("model timeout on chapter %d", position)
	}
	writer.chapters = append(writer.chapters, chapterCall{title: title, position: position, size: size})
	return fmt.Sprintf("<document><content><p>%s</p></content></document>", title), nil
}
