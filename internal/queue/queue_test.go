// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestParseTaskState verifies hash decoding, including the missing-hash default.
*/
func TestParseTaskState(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   TaskState
	}{
		{"missing", map[string]string{}, TaskState{State: StatePending}},
		{"unknown_state", map[string]string{"state": "RETRY"}, TaskState{State: StatePending}},
		{"started", map[string]string{"state": "started", "essay_id": "7"}, TaskState{State: StateStarted, EssayID: 7}},
		{"failure", map[string]string{"state": "failure", "reason": "llm timeout", "essay_id": "3"},
			TaskState{State: StateFailure, Reason: "llm timeout", EssayID: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTaskState(tt.values))
		})
	}
}

/*
TestDecodeJob covers well-formed and malformed stream entries.
*/
func TestDecodeJob(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		job, err := decodeJob(redis.XMessage{ID: "1-0", Values: map[string]interface{}{
			"task_id": "abc", "essay_id": "42",
		}})
		require.NoError(t, err)
		assert.Equal(t, Job{MessageID: "1-0", TaskID: "abc", EssayID: 42}, job)
	})

	invalid := []map[string]interface{}{
		{"essay_id": "42"},
		{"task_id": "abc"},
		{"task_id": "abc", "essay_id": "x"},
		{"task_id": "abc", "essay_id": "0"},
	}
	for _, values := range invalid {
		_, err := decodeJob(redis.XMessage{ID: "1-0", Values: values})
		assert.Error(t, err)
	}
}

func TestState_IsFinished(t *testing.T) {
	assert.False(t, StatePending.IsFinished())
	assert.False(t, StateStarted.IsFinished())
	assert.True(t, StateSuccess.IsFinished())
	assert.True(t, StateFailure.IsFinished())
	assert.Equal(t, "refgen:task:abc", TaskKey("abc"))
}
