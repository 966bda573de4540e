// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
	"github.com/zt-a/refgen-ai-backend/internal/users/account"
)

const (
	ownerID         = "0192f0a4-7c1e-7b2a-9d3e-1a2b3c4d5e6f"
	currentPassword = "old-secret-1"
)

// memoryAccounts is an in-memory [account.AccountRepository].
type memoryAccounts struct {
	hashes  map[string]string
	deleted map[string]bool
}

func (repository *memoryAccounts) FindPasswordHash(_ context.Context, userID string) (string, error) {
	hash, ok := repository.hashes[userID]
	if !ok || repository.deleted[userID] {
		return "", account.ErrAccountNotFound
	}
	return hash, nil
}

func (repository *memoryAccounts) UpdatePassword(_ context.Context, userID, passwordHash string, _ time.Time) error {
	if _, ok := repository.hashes[userID]; !ok {
		return account.ErrAccountNotFound
	}
	repository.hashes[userID] = passwordHash
	return nil
}

func (repository *memoryAccounts) SoftDelete(_ context.Context, userID string, _ time.Time) error {
	repository.deleted[userID] = true
	return nil
}

type storedSession struct {
	userID  string
	info    account.SessionInfo
	revoked bool
}

// memorySessions is an in-memory [account.SessionRepository].
type memorySessions struct {
	sessions []*storedSession
}

func (repository *memorySessions) FindActiveByUserID(_ context.Context, userID string) ([]account.SessionInfo, error) {
	var active []account.SessionInfo
	for _, session := range repository.sessions {
		if session.userID == userID && !session.revoked {
			active = append(active, session.info)
		}
	}
	return active, nil
}

func (repository *memorySessions) Revoke(_ context.Context, userID, sessionID string) error {
	for _, session := range repository.sessions {
		if session.info.ID == sessionID && session.userID == userID && !session.revoked {
			session.revoked = true
			return nil
		}
	}
	return account.ErrSessionNotFound
}

func (repository *memorySessions) RevokeAll(_ context.Context, userID string) (int64, error) {
	var revoked int64
	for _, session := range repository.sessions {
		if session.userID == userID && !session.revoked {
			session.revoked = true
			revoked++
		}
	}
	return revoked, nil
}

func newService(t *testing.T) (*account.Service, *memoryAccounts, *memorySessions) {
	t.Helper()

	hash, err := sec.HashPassword(currentPassword)
	require.NoError(t, err)

	accounts := &memoryAccounts{hashes: map[string]string{ownerID: hash}, deleted: map[string]bool{}}
	sessions := &memorySessions{sessions: []*storedSession{
		{userID: ownerID, info: account.SessionInfo{ID: "session-laptop", UserAgent: "Firefox"}},
		{userID: ownerID, info: account.SessionInfo{ID: "session-phone", UserAgent: "Safari"}},
		{userID: "someone-else", info: account.SessionInfo{ID: "session-other"}},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return account.NewService(accounts, sessions, logger), accounts, sessions
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected *apperr.AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
}

/*
TestChangePassword verifies the current password check and that every session
of the user is revoked after a change.
*/
func TestChangePassword(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		service, accounts, sessions := newService(t)

		err := service.ChangePassword(context.Background(), ownerID, account.ChangePasswordInput{
			CurrentPassword: currentPassword,
			NewPassword:     "new-secret-2",
		})
		require.NoError(t, err)

		assert.True(t, sec.CheckPasswordHash("new-secret-2", accounts.hashes[ownerID]))

		active, err := service.ListSessions(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Empty(t, active)
		assert.False(t, sessions.sessions[2].revoked, "other users keep their sessions")
	})

	t.Run("wrong_current_password", func(t *testing.T) {
		service, accounts, sessions := newService(t)
		before := accounts.hashes[ownerID]

		err := service.ChangePassword(context.Background(), ownerID, account.ChangePasswordInput{
			CurrentPassword: "guess",
			NewPassword:     "new-secret-2",
		})
		requireStatus(t, err, http.StatusUnauthorized)
		assert.Equal(t, before, accounts.hashes[ownerID])
		assert.False(t, sessions.sessions[0].revoked)
	})

	t.Run("unknown_account", func(t *testing.T) {
		service, _, _ := newService(t)

		err := service.ChangePassword(context.Background(), "missing", account.ChangePasswordInput{
			CurrentPassword: currentPassword,
			NewPassword:     "new-secret-2",
		})
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		service, accounts, sessions := newService(t)

		require.NoError(t, service.DeleteAccount(context.Background(), ownerID, currentPassword))
		assert.True(t, accounts.deleted[ownerID])
		assert.True(t, sessions.sessions[0].revoked)
		assert.True(t, sessions.sessions[1].revoked)
	})

	t.Run("wrong_password", func(t *testing.T) {
		service, accounts, _ := newService(t)

		err := service.DeleteAccount(context.Background(), ownerID, "guess")
		requireStatus(t, err, http.StatusUnauthorized)
		assert.False(t, accounts.deleted[ownerID])
	})
}

/*
TestSessions covers listing and revoking refresh sessions, including ownership.
*/
func TestSessions(t *testing.T) {
	service, _, sessions := newService(t)
	ctx := context.Background()

	active, err := service.ListSessions(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, service.RevokeSession(ctx, ownerID, "session-phone"))
	active, err = service.ListSessions(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "session-laptop", active[0].ID)

	err = service.RevokeSession(ctx, ownerID, "session-other")
	assert.ErrorIs(t, err, account.ErrSessionNotFound)
	assert.False(t, sessions.sessions[2].revoked)

	require.NoError(t, service.RevokeAllSessions(ctx, ownerID))
	active, err = service.ListSessions(ctx, ownerID)
	require.NoError(t, err)
	assert.NotNil(t, active)
	assert.Empty(t, active)
}
