// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/dberr"
)

/*
TestWrap verifies the mapping from driver errors to HTTP-facing errors.
*/
func TestWrap(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no_rows", pgx.ErrNoRows, http.StatusNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"foreign_key", &pgconn.PgError{Code: "23503"}, http.StatusNotFound},
		{"check", &pgconn.PgError{Code: "23514"}, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
		{"already_classified", apperr.Forbidden("nope"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "test")
			appError := apperr.As(wrapped)
			if assert.NotNil(t, appError) {
				assert.Equal(t, tt.wantStatus, appError.HTTPStatus)
			}
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "test"))
}

/*
TestIsUniqueViolation checks SQLSTATE detection through wrapping.
*/
func TestIsUniqueViolation(t *testing.T) {
	wrapped := errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"})
	assert.True(t, dberr.IsUniqueViolation(wrapped))
	assert.False(t, dberr.IsUniqueViolation(errors.New("other")))
}
