// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
)

// # Service Layer

// Service orchestrates password changes, session revocation and account closure.
type Service struct {
	accountRepository AccountRepository
	sessionRepository SessionRepository
	logger            *slog.Logger
	now               func() time.Time
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(accountRepo AccountRepository, sessionRepo SessionRepository, logger *slog.Logger) *Service {
	return &Service{
		accountRepository: accountRepo,
		sessionRepository: sessionRepo,
		logger:            logger,
		now:               time.Now,
	}
}

// # Credentials

// ChangePasswordInput holds the current and the replacement password.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

/*
ChangePassword replaces the caller's password.

Description: Verifies the current password, stores the new bcrypt hash and
revokes every refresh session so other devices must sign in again.

Parameters:
  - context: context.Context
  - userID: string
  - input: ChangePasswordInput

Returns:
  - error: apperr.Unauthorized on a wrong current password, or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID string, input ChangePasswordInput) error {
	if err := service.verifyPassword(context, userID, input.CurrentPassword); err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.accountRepository.UpdatePassword(context, userID, hashedPassword, service.now()); err != nil {
		return err
	}

	revoked, err := service.sessionRepository.RevokeAll(context, userID)
	if err != nil {
		return err
	}

	service.logger.Info("user_password_changed",
		slog.String("user_id", userID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}

/*
DeleteAccount closes the caller's account.

Description: Requires the password, flags the account as deleted and revokes
all sessions. Access tokens already issued stay valid until they expire.

Parameters:
  - context: context.Context
  - userID: string
  - password: string

Returns:
  - error: apperr.Unauthorized on a wrong password, or storage failures
*/
func (service *Service) DeleteAccount(context context.Context, userID, password string) error {
	if err := service.verifyPassword(context, userID, password); err != nil {
		return err
	}

	if err := service.accountRepository.SoftDelete(context, userID, service.now()); err != nil {
		return err
	}

	if _, err := service.sessionRepository.RevokeAll(context, userID); err != nil {
		return err
	}

	service.logger.Warn("user_account_deleted", slog.String("user_id", userID))
	return nil
}

func (service *Service) verifyPassword(context context.Context, userID, password string) error {
	passwordHash, err := service.accountRepository.FindPasswordHash(context, userID)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(password, passwordHash) {
		return apperr.Unauthorized("Invalid password")
	}
	return nil
}

// # Session Security

// ListSessions returns the devices currently holding a refresh session.
func (service *Service) ListSessions(context context.Context, userID string) ([]SessionInfo, error) {
	sessions, err := service.sessionRepository.FindActiveByUserID(context, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []SessionInfo{}
	}
	return sessions, nil
}

/*
RevokeSession signs one device out.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: ErrSessionNotFound when the session is not a live session of the user
*/
func (service *Service) RevokeSession(context context.Context, userID, sessionID string) error {
	if err := service.sessionRepository.Revoke(context, userID, sessionID); err != nil {
		return err
	}

	service.logger.Info("user_session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return nil
}

// RevokeAllSessions signs every device out, including the caller's.
func (service *Service) RevokeAllSessions(context context.Context, userID string) error {
	revoked, err := service.sessionRepository.RevokeAll(context, userID)
	if err != nil {
		return err
	}

	service.logger.Info("user_sessions_revoked",
		slog.String("user_id", userID),
		slog.Int64("count", revoked),
	)
	return nil
}
