// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles the security settings of a signed-in user.

It lets users change their password, see the devices holding a refresh
session, sign a device out and close the account.

# Architecture

  - Entities: SessionInfo (DTO).
  - Domain: Accounts and sessions are owned by the auth package; this package
    only reads and revokes them.
*/
package account

import (
	"context"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
)

var (
	// ErrAccountNotFound is returned when the caller's account no longer exists.
	ErrAccountNotFound = apperr.NotFound("Account")

	// ErrSessionNotFound is returned when a session does not belong to the caller.
	ErrSessionNotFound = apperr.NotFound("Session")
)

// Field names used in validation errors.
const (
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldPassword        = "password"
)

// # Domain Entities

// SessionInfo is a transport view of a live refresh session. It omits the token hash.
type SessionInfo struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// # Repository Contracts

// AccountRepository defines the credential and lifecycle contract for accounts.
type AccountRepository interface {
	/*
		FindPasswordHash returns the stored bcrypt hash of an active account.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - string: bcrypt hash
		  - error: ErrAccountNotFound or storage failures
	*/
	FindPasswordHash(context context.Context, userID string) (string, error)

	// UpdatePassword replaces the password hash of an active account.
	UpdatePassword(context context.Context, userID, passwordHash string, updatedAt time.Time) error

	/*
		SoftDelete flags an account as logically deleted.

		The username and email become available again; essays stay in storage.
	*/
	SoftDelete(context context.Context, userID string, deletedAt time.Time) error
}

// SessionRepository defines the visibility and revocation contract for user sessions.
type SessionRepository interface {
	// FindActiveByUserID lists unrevoked, unexpired sessions, newest first.
	FindActiveByUserID(context context.Context, userID string) ([]SessionInfo, error)

	/*
		Revoke marks one session of the user as revoked.

		Parameters:
		  - context: context.Context
		  - userID: string (Security constraint: owner validation)
		  - sessionID: string

		Returns:
		  - error: ErrSessionNotFound when no live session of the user matches
	*/
	Revoke(context context.Context, userID, sessionID string) error

	// RevokeAll terminates every live session of a user and reports how many were revoked.
	RevokeAll(context context.Context, userID string) (int64, error)
}
