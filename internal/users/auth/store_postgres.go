// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/database/schema"
	"github.com/zt-a/refgen-ai-backend/internal/platform/dberr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/sec"
)

// # User Repository

// postgresUserRepository implements [UserRepository] using pgx.
type postgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a PostgreSQL backed account store.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &postgresUserRepository{pool: pool}
}

// selectUser reads active accounts; callers append the WHERE predicate.
var selectUser = fmt.Sprintf(`SELECT %s FROM %s WHERE %s IS NULL AND `,
	strings.Join(schema.UserAccount.Columns(), ", "),
	schema.UserAccount.Table,
	schema.UserAccount.DeletedAt,
)

/*
CreateWithProfile inserts the account and its empty profile in one transaction.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: apperr.Conflict on a duplicate username or email
*/
func (repository *postgresUserRepository) CreateWithProfile(context context.Context, user *User) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to begin transaction")
	}
	defer transaction.Rollback(context)

	insertAccount := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Username, schema.UserAccount.Email,
		schema.UserAccount.Password, schema.UserAccount.Role, schema.UserAccount.IsActive,
		schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	)
	_, err = transaction.Exec(context, insertAccount,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role), user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Username or email is already registered")
		}
		return dberr.Wrap(err, "postgres: failed to create account")
	}

	insertProfile := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $2)`,
		schema.UserProfile.Table,
		schema.UserProfile.UserID, schema.UserProfile.CreatedAt, schema.UserProfile.UpdatedAt,
	)
	if _, err := transaction.Exec(context, insertProfile, user.ID, user.CreatedAt); err != nil {
		return dberr.Wrap(err, "postgres: failed to create profile")
	}

	if err := transaction.Commit(context); err != nil {
		return dberr.Wrap(err, "postgres: failed to commit registration")
	}
	return nil
}

// FindByID returns the active account with the given id.
func (repository *postgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := selectUser + schema.UserAccount.ID + " = $1"
	return repository.findOne(context, query, id)
}

// FindByEmail matches the email case-insensitively.
func (repository *postgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := selectUser + fmt.Sprintf("LOWER(%s) = LOWER($1)", schema.UserAccount.Email)
	return repository.findOne(context, query, email)
}

// FindByUsername matches the username case-insensitively.
func (repository *postgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := selectUser + fmt.Sprintf("LOWER(%s) = LOWER($1)", schema.UserAccount.Username)
	return repository.findOne(context, query, username)
}

func (repository *postgresUserRepository) findOne(context context.Context, query string, argument string) (*User, error) {
	var user User
	var role string
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, dberr.Wrap(err, "postgres: failed to find account")
	}

	user.Role = sec.UserRole(role)
	return &user, nil
}

// # Session Repository

// postgresSessionRepository implements [SessionRepository] using pgx.
type postgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a PostgreSQL backed session store.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &postgresSessionRepository{pool: pool}
}

// Create persists a new session.
func (repository *postgresSessionRepository) Create(context context.Context, session *Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.UserSession.Table,
		strings.Join(schema.UserSession.Columns(), ", "),
	)

	_, err := repository.pool.Exec(context, query,
		session.ID, session.UserID, session.TokenHash, session.UserAgent, session.IPAddress,
		session.ExpiresAt, session.IsRevoked, session.CreatedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to create session")
	}
	return nil
}

/*
FindByTokenHash returns the live session for a refresh token hash.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Unrevoked, unexpired session
  - error: ErrSessionNotFound otherwise
*/
func (repository *postgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = FALSE AND %s > NOW()`,
		strings.Join(schema.UserSession.Columns(), ", "),
		schema.UserSession.Table,
		schema.UserSession.TokenHash, schema.UserSession.IsRevoked, schema.UserSession.ExpiresAt,
	)

	var session Session
	var userAgent, ipAddress *string
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&userAgent,
		&ipAddress,
		&session.ExpiresAt,
		&session.IsRevoked,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, dberr.Wrap(err, "postgres: failed to find session")
	}

	if userAgent != nil {
		session.UserAgent = *userAgent
	}
	if ipAddress != nil {
		session.IPAddress = *ipAddress
	}
	return &session, nil
}

// Revoke marks a session as unusable.
func (repository *postgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE WHERE %s = $1`,
		schema.UserSession.Table, schema.UserSession.IsRevoked, schema.UserSession.ID)

	if _, err := repository.pool.Exec(context, query, sessionID); err != nil {
		return dberr.Wrap(err, "postgres: failed to revoke session")
	}
	return nil
}

// DeleteExpired removes sessions past their expiry.
func (repository *postgresSessionRepository) DeleteExpired(context context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < NOW()`,
		schema.UserSession.Table, schema.UserSession.ExpiresAt)

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres: failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}
