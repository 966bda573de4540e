// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
	"github.com/zt-a/refgen-ai-backend/pkg/uuidv7"
)

// # Contracts & Types

// TokenProvider signs access tokens.
type TokenProvider interface {
	GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error)
}

// Service implements the account and session use cases.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	tokenProvider     TokenProvider
	logger            *slog.Logger
	now               func() time.Time
}

// NewService constructs a new [Service].
func NewService(users UserRepository, sessions SessionRepository, tokens TokenProvider, logger *slog.Logger) *Service {
	return &Service{
		userRepository:    users,
		sessionRepository: sessions,
		tokenProvider:     tokens,
		logger:            logger,
		now:               time.Now,
	}
}

// ClientInfo identifies the device a session is issued to.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// LoginSession is the credential pair handed back to the client.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// # Registration Flow

// RegisterInput holds the data required to open an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

/*
Register opens a new account and signs it in.

Description: Rejects a taken username or email, hashes the password with
bcrypt, writes the account together with an empty profile and issues the
first session.

Parameters:
  - context: context.Context
  - input: RegisterInput
  - client: ClientInfo

Returns:
  - *LoginSession: Tokens and the new account
  - error: apperr.Conflict or storage failures
*/
func (service *Service) Register(context context.Context, input RegisterInput, client ClientInfo) (*LoginSession, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := service.ensureAvailable(context, input.Username, input.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := service.now()
	user := &User{
		ID:           uuidv7.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleMember,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.userRepository.CreateWithProfile(context, user); err != nil {
		return nil, err
	}

	service.logger.Info("user_registered", slog.String("user_id", user.ID))
	return service.issueSession(context, user, client)
}

// ensureAvailable returns a Conflict when the username or email is taken.
func (service *Service) ensureAvailable(context context.Context, username, email string) error {
	if _, err := service.userRepository.FindByEmail(context, email); err == nil {
		return apperr.Conflict("Email is already registered")
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	if _, err := service.userRepository.FindByUsername(context, username); err == nil {
		return apperr.Conflict("Username is already taken")
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	return nil
}

// # Authentication Flow

// LoginInput holds the credentials of a sign-in attempt. Login is a username or an email.
type LoginInput struct {
	Login    string
	Password string
}

/*
Login verifies credentials and opens a new session.

Parameters:
  - context: context.Context
  - input: LoginInput
  - client: ClientInfo

Returns:
  - *LoginSession: Tokens and the account
  - error: apperr.Unauthorized with one generic message for any mismatch
*/
func (service *Service) Login(context context.Context, input LoginInput, client ClientInfo) (*LoginSession, error) {
	login := strings.TrimSpace(input.Login)

	var user *User
	var err error
	if strings.Contains(login, "@") {
		user, err = service.userRepository.FindByEmail(context, strings.ToLower(login))
	} else {
		user, err = service.userRepository.FindByUsername(context, login)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.Unauthorized("Invalid login credentials")
		}
		return nil, err
	}

	if !user.IsActive || !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	service.logger.Info("user_logged_in", slog.String("user_id", user.ID))
	return service.issueSession(context, user, client)
}

/*
RefreshSession rotates a refresh token.

Description: The presented session is revoked before a new one is issued, so
each refresh token can be used at most once.

Parameters:
  - context: context.Context
  - refreshToken: string
  - client: ClientInfo

Returns:
  - *LoginSession: New token pair
  - error: apperr.Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken string, client ClientInfo) (*LoginSession, error) {
	session, err := service.sessionRepository.FindByTokenHash(context, sec.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}

	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, err
	}

	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil || !user.IsActive {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	return service.issueSession(context, user, client)
}

/*
Logout revokes the session of a refresh token.

An unknown or already revoked token is treated as a successful logout.
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	session, err := service.sessionRepository.FindByTokenHash(context, sec.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return err
	}

	service.logger.Info("user_logged_out", slog.String("user_id", session.UserID))
	return nil
}

// Me returns the caller's account.
func (service *Service) Me(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (service *Service) PurgeExpiredSessions(context context.Context) (int64, error) {
	removed, err := service.sessionRepository.DeleteExpired(context)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		service.logger.Info("expired_sessions_purged", slog.Int64("count", removed))
	}
	return removed, nil
}

// RunSessionJanitor purges expired sessions every interval until ctx is done.
func (service *Service) RunSessionJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.PurgeExpiredSessions(ctx); err != nil {
				service.logger.Warn("expired_sessions_purge_failed", slog.Any("error", err))
			}
		}
	}
}

// # Session Issuance

// issueSession signs an access token and stores a new refresh-token session.
func (service *Service) issueSession(context context.Context, user *User, client ClientInfo) (*LoginSession, error) {
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Username, string(user.Role), AccessTokenTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth: sign access token: %w", err))
	}

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := service.now()
	session := &Session{
		ID:        uuidv7.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: now.Add(RefreshTokenTTL),
		CreatedAt: now,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, err
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
		User:                  user,
	}, nil
}
