// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zt-a/refgen-ai-backend/internal/essay"
)

/*
TestParseStatus verifies normalisation of stored and legacy status labels.
*/
func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   essay.Status
		wantOK bool
	}{
		{"PLAN_GENERATED", essay.StatusPlanGenerated, true},
		{" generated ", essay.StatusGenerated, true},
		{"STARTED", essay.StatusGenerating, true},
		{"IN_PROGRESS", essay.StatusGenerating, true},
		{"ERROR", essay.StatusFailure, true},
		{"cancelled", essay.StatusFailure, true},
		{"EXPIRED", essay.StatusFailure, true},
		{"COMPLETED", essay.StatusCompleted, true},
		{"ARCHIVED", essay.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := essay.ParseStatus(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, essay.StatusGenerating.IsInFlight())
	assert.True(t, essay.StatusGenerated.IsInFlight())
	assert.False(t, essay.StatusFailure.IsInFlight())
	assert.False(t, essay.StatusPlanGenerated.IsInFlight())

	assert.True(t, essay.StatusFailure.IsTerminal())
	assert.False(t, essay.StatusGenerating.IsTerminal())
}
