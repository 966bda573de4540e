// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
)

var (
	// ErrUserNotFound is returned when no active account matches the lookup.
	ErrUserNotFound = apperr.NotFound("User")

	// ErrSessionNotFound is returned when no live session matches a refresh token.
	ErrSessionNotFound = apperr.Unauthorized("Invalid or expired refresh token")
)

// # User Data Access

// UserRepository defines the data access contract for accounts.
type UserRepository interface {

	/*
		CreateWithProfile inserts the account and an empty profile row in one transaction.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on a duplicate username or email
	*/
	CreateWithProfile(context context.Context, user *User) error

	// FindByID returns the active account with the given id, or ErrUserNotFound.
	FindByID(context context.Context, id string) (*User, error)

	// FindByEmail matches case-insensitively, or returns ErrUserNotFound.
	FindByEmail(context context.Context, email string) (*User, error)

	// FindByUsername matches case-insensitively, or returns ErrUserNotFound.
	FindByUsername(context context.Context, username string) (*User, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
type SessionRepository interface {

	// Create persists a new session.
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the live session for a refresh token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Unrevoked, unexpired session
		  - error: ErrSessionNotFound otherwise
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	// Revoke marks a session as unusable. Revoking twice is not an error.
	Revoke(context context.Context, sessionID string) error

	// DeleteExpired removes sessions past their expiry and returns how many were removed.
	DeleteExpired(context context.Context) (int64, error)
}
