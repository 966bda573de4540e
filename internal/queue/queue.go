// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package queue implements the essay generation task queue on Redis streams.

The API enqueues one message per generation request and records the task state
in a hash that the status endpoint polls. The worker reads the stream through a
consumer group and updates the same hash as the job progresses.

Layout:

  - Stream: constants.StreamEssayGeneration, one entry per job.
  - Task state: hash constants.RedisPrefixTask + taskID with "state", "essay_id"
    and "reason" fields, expiring after constants.TaskStateTTL.
*/
package queue

import (
	stdctx "context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/zt-a/refgen-ai-backend/internal/platform/constants"
	"github.com/zt-a/refgen-ai-backend/pkg/uuidv7"
)

// # Task State

// State is the lifecycle position of a queued task.
type State string

const (
	StatePending State = "pending"
	StateStarted State = "started"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// ErrSkipped is returned by a [Handler] that decided not to run a job. The task
// is recorded as failed with the reason, but the job is not counted as a failure.
var ErrSkipped = errors.New("queue: job skipped")

// IsFinished reports whether the task will not change state again.
func (state State) IsFinished() bool {
	return state == StateSuccess || state == StateFailure
}

// TaskState is the observable state of a single task.
type TaskState struct {
	State   State  `json:"state"`
	Reason  string `json:"reason,omitempty"`
	EssayID int64  `json:"essay_id,omitempty"`
}

// Hash fields.
const (
	fieldState   = "state"
	fieldReason  = "reason"
	fieldEssayID = "essay_id"
	fieldTaskID  = "task_id"
)

// streamMaxLen caps the stream length. Trimming is approximate.
const streamMaxLen = 10000

// # Queue

// Queue is the producer side of the generation queue.
type Queue struct {
	client *redis.Client
	stream string
}

// NewQueue constructs a [Queue] bound to the essay generation stream.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client, stream: constants.StreamEssayGeneration}
}

// TaskKey returns the Redis key of the task state hash.
func TaskKey(taskID string) string {
	return constants.RedisPrefixTask + taskID
}

/*
Enqueue records a pending task for the essay and appends it to the stream.

Parameters:
  - context: context.Context
  - essayID: int64

Returns:
  - string: The new task id (UUIDv7)
  - error: Redis failures
*/
func (queue *Queue) Enqueue(context stdctx.Context, essayID int64) (string, error) {
	taskID := uuidv7.New()
	key := TaskKey(taskID)

	_, err := queue.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.HSet(context, key, fieldState, string(StatePending), fieldEssayID, essayID)
		pipe.Expire(context, key, constants.TaskStateTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("queue: record task state: %w", err)
	}

	err = queue.client.XAdd(context, &redis.XAddArgs{
		Stream: queue.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			fieldTaskID:  taskID,
			fieldEssayID: essayID,
		},
	}).Err()
	if err != nil {
		// A task that never reached the stream must not linger as pending.
		_ = queue.client.Del(context, key).Err()
		return "", fmt.Errorf("queue: add stream entry: %w", err)
	}

	return taskID, nil
}

// State returns the current state of a task. A missing hash reads as pending.
func (queue *Queue) State(context stdctx.Context, taskID string) (TaskState, error) {
	values, err := queue.client.HGetAll(context, TaskKey(taskID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return TaskState{}, fmt.Errorf("queue: read task state: %w", err)
	}
	return parseTaskState(values), nil
}

// SetState updates a task's state hash and refreshes its TTL.
func (queue *Queue) SetState(context stdctx.Context, taskID string, state State, reason string) error {
	key := TaskKey(taskID)
	_, err := queue.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.HSet(context, key, fieldState, string(state), fieldReason, reason)
		pipe.Expire(context, key, constants.TaskStateTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue: update task state: %w", err)
	}
	return nil
}

// parseTaskState converts a raw hash into a [TaskState].
func parseTaskState(values map[string]string) TaskState {
	task := TaskState{State: StatePending}

	switch State(values[fieldState]) {
	case StateStarted:
		task.State = StateStarted
	case StateSuccess:
		task.State = StateSuccess
	case StateFailure:
		task.State = StateFailure
	}

	task.Reason = values[fieldReason]
	if raw, ok := values[fieldEssayID]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			task.EssayID = id
		}
	}
	return task
}
