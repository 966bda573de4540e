// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

//go:build integration

package essay_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zt-a/refgen-ai-backend/internal/essay"
	"github.com/zt-a/refgen-ai-backend/internal/platform/migration"
	pgstore "github.com/zt-a/refgen-ai-backend/internal/platform/postgres"
	"github.com/zt-a/refgen-ai-backend/pkg/uuidv7"
)

// Run with: REFGEN_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/essay/
const testDatabaseEnv = "REFGEN_TEST_DATABASE_URL"

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDatabaseEnv)
	}

	require.NoError(t, migration.RunUp(dsn, "", discardLogger()))

	pool, err := pgstore.NewPool(context.Background(), dsn, discardLogger())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// newAccount inserts an account row and removes it, with its essays, on cleanup.
func newAccount(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	userID := uuidv7.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users.account (id, username, email, password_hash) VALUES ($1, $2, $3, 'x')`,
		userID, "it-"+userID, userID+"@refgen.test")
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users.account WHERE id = $1`, userID)
	})
	return userID
}

func essayCount(t *testing.T, pool *pgxpool.Pool, userID string) int {
	t.Helper()
	var count int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM essay.essay WHERE user_id = $1`, userID).Scan(&count))
	return count
}

func plannedEssay(t *testing.T, repository essay.Repository, userID string) *essay.Essay {
	t.Helper()

	item := &essay.Essay{
		UserID:       userID,
		Topic:        "Epic of Manas",
		PageCount:    10,
		ChapterCount: 2,
		Language:     essay.LanguageRussian,
		Status:       essay.StatusPlanGenerated,
	}
	metadata := &essay.Metadata{
		University: "KNU", Faculty: "History", Subject: "Literature", Course: 2,
		PerformedBy: "Asanova A.", CheckedBy: "Prof. Bekov", Group: "HIS-21", City: "Bishkek", Year: 2026,
	}
	chapters := []*essay.Chapter{
		{Title: "Origins", Position: 1, Chars: 3000},
		{Title: "Legacy", Position: 2, Chars: 3000},
	}
	require.NoError(t, repository.CreateWithPlan(context.Background(), item, metadata, chapters))
	return item
}

/*
TestPostgres_CreateWithPlan_Atomic verifies that a failing chapter insert leaves
no essay row behind.
*/
func TestPostgres_CreateWithPlan_Atomic(t *testing.T) {
	pool := newTestPool(t)
	repository := essay.NewRepository(pool)
	userID := newAccount(t, pool)

	item := &essay.Essay{
		UserID: userID, Topic: "Epic of Manas", PageCount: 10, ChapterCount: 2,
		Language: essay.LanguageRussian, Status: essay.StatusPlanGenerated,
	}
	metadata := &essay.Metadata{University: "KNU", Faculty: "History", Subject: "Literature", Year: 2026}
	chapters := []*essay.Chapter{
		{Title: "Origins", Position: 1, Chars: 3000},
		{Title: "Origins again", Position: 1, Chars: 3000},
	}

	err := repository.CreateWithPlan(context.Background(), item, metadata, chapters)
	require.Error(t, err)
	assert.Zero(t, essayCount(t, pool, userID))

	plannedEssay(t, repository, userID)
	assert.Equal(t, 1, essayCount(t, pool, userID))
}

/*
TestPostgres_DispatchGeneration_Concurrent verifies that concurrent callers
dispatch exactly once under the row lock.
*/
func TestPostgres_DispatchGeneration_Concurrent(t *testing.T) {
	pool := newTestPool(t)
	repository := essay.NewRepository(pool)
	item := plannedEssay(t, repository, newAccount(t, pool))

	var dispatched atomic.Int32
	dispatch := func(context.Context) (string, error) {
		dispatched.Add(1)
		time.Sleep(20 * time.Millisecond)
		return uuidv7.New(), nil
	}

	const callers = 8
	taskIDs := make([]string, callers)
	var wg sync.WaitGroup
	for index := 0; index < callers; index++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			state, _, err := repository.DispatchGeneration(context.Background(), item.ID, item.UserID, dispatch)
			if assert.NoError(t, err) && assert.NotNil(t, state.TaskID) {
				taskIDs[index] = *state.TaskID
			}
		}(index)
	}
	wg.Wait()

	assert.Equal(t, int32(1), dispatched.Load())
	for _, taskID := range taskIDs {
		assert.Equal(t, taskIDs[0], taskID)
	}
}

/*
TestPostgres_FindByID_WaitsForDispatch verifies that the worker's read blocks
until an in-progress dispatch commits and then sees its task id.
*/
func TestPostgres_FindByID_WaitsForDispatch(t *testing.T) {
	pool := newTestPool(t)
	repository := essay.NewRepository(pool)
	item := plannedEssay(t, repository, newAccount(t, pool))

	taskID := uuidv7.New()
	locked := make(chan struct{})
	release := make(chan struct{})
	dispatchDone := make(chan error, 1)
	go func() {
		_, _, err := repository.DispatchGeneration(context.Background(), item.ID, item.UserID, func(context.Context) (string, error) {
			close(locked)
			<-release
			return taskID, nil
		})
		dispatchDone <- err
	}()
	<-locked

	found := make(chan *essay.Essay, 1)
	go func() {
		loaded, err := repository.FindByID(context.Background(), item.ID)
		assert.NoError(t, err)
		found <- loaded
	}()

	select {
	case <-found:
		t.Fatal("read returned before the dispatch committed")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-dispatchDone)

	loaded := <-found
	require.NotNil(t, loaded)
	assert.Equal(t, essay.StatusGenerating, loaded.Status)
	require.NotNil(t, loaded.TaskID)
	assert.Equal(t, taskID, *loaded.TaskID)
}

/*
TestPostgres_TaskBoundWrites verifies that generated text and failures are only
stored for the essay's current generating task.
*/
func TestPostgres_TaskBoundWrites(t *testing.T) {
	pool := newTestPool(t)
	repository := essay.NewRepository(pool)
	item := plannedEssay(t, repository, newAccount(t, pool))
	ctx := context.Background()

	taskID := uuidv7.New()
	_, dispatched, err := repository.DispatchGeneration(ctx, item.ID, item.UserID, func(context.Context) (string, error) {
		return taskID, nil
	})
	require.NoError(t, err)
	require.True(t, dispatched)

	intro := "<document><content><p>Introduction</p></content></document>"
	text := essay.GeneratedText{Introduction: &intro, Chapters: map[int64]string{}}

	require.ErrorIs(t, repository.SaveGenerated(ctx, item.ID, uuidv7.New(), text), essay.ErrTaskSuperseded)
	applied, err := repository.MarkFailedForTask(ctx, item.ID, uuidv7.New(), "stale")
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, repository.SaveGenerated(ctx, item.ID, taskID, text))
	stored, err := repository.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, essay.StatusGenerated, stored.Status)

	// A duplicate job for the same task cannot overwrite the stored text.
	require.ErrorIs(t, repository.SaveGenerated(ctx, item.ID, taskID, essay.GeneratedText{}), essay.ErrTaskSuperseded)
	applied, err = repository.MarkFailedForTask(ctx, item.ID, taskID, "duplicate")
	require.NoError(t, err)
	assert.False(t, applied)
}
