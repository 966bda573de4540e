// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zt-a/refgen-ai-backend/internal/platform/database/schema"
	"github.com/zt-a/refgen-ai-backend/internal/platform/dberr"
)

// # Repository Implementations

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new Postgres implementation for account credentials.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// PostgresSessionRepository implements [SessionRepository] using pgx.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new Postgres implementation for session auditing.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// # AccountRepository Methods

// FindPasswordHash reads the bcrypt hash of an active account.
func (repository *PostgresAccountRepository) FindPasswordHash(context context.Context, userID string) (string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL`,
		schema.UserAccount.Password, schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	var passwordHash string
	if err := repository.pool.QueryRow(context, query, userID).Scan(&passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", dberr.Wrap(err, "postgres: failed to read password hash")
	}
	return passwordHash, nil
}

// UpdatePassword replaces the password hash of an active account.
func (repository *PostgresAccountRepository) UpdatePassword(context context.Context, userID, passwordHash string, updatedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL`,
		schema.UserAccount.Table,
		schema.UserAccount.Password, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	tag, err := repository.pool.Exec(context, query, userID, passwordHash, updatedAt)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to update password")
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

/*
SoftDelete flags an account as deleted and deactivates it.

Parameters:
  - context: context.Context
  - userID: string
  - deletedAt: time.Time

Returns:
  - error: ErrAccountNotFound when the account is already gone
*/
func (repository *PostgresAccountRepository) SoftDelete(context context.Context, userID string, deletedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $2, %s = FALSE WHERE %s = $1 AND %s IS NULL`,
		schema.UserAccount.Table,
		schema.UserAccount.DeletedAt, schema.UserAccount.UpdatedAt, schema.UserAccount.IsActive,
		schema.UserAccount.ID, schema.UserAccount.DeletedAt,
	)

	tag, err := repository.pool.Exec(context, query, userID, deletedAt)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to delete account")
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// # SessionRepository Methods

// FindActiveByUserID lists unrevoked, unexpired sessions of a user, newest first.
func (repository *PostgresSessionRepository) FindActiveByUserID(context context.Context, userID string) ([]SessionInfo, error) {
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(%s, ''), COALESCE(%s, ''), %s, %s
		FROM %s
		WHERE %s = $1 AND %s = FALSE AND %s > NOW()
		ORDER BY %s DESC`,
		schema.UserSession.ID, schema.UserSession.UserAgent, schema.UserSession.IPAddress,
		schema.UserSession.CreatedAt, schema.UserSession.ExpiresAt,
		schema.UserSession.Table,
		schema.UserSession.UserID, schema.UserSession.IsRevoked, schema.UserSession.ExpiresAt,
		schema.UserSession.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres: failed to list sessions")
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var session SessionInfo
		if err := rows.Scan(&session.ID, &session.UserAgent, &session.IPAddress, &session.CreatedAt, &session.ExpiresAt); err != nil {
			return nil, dberr.Wrap(err, "postgres: failed to scan session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "postgres: failed to iterate sessions")
	}
	return sessions, nil
}

// Revoke marks a live session of the user as revoked.
func (repository *PostgresSessionRepository) Revoke(context context.Context, userID, sessionID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE WHERE %s = $1 AND %s = $2 AND %s = FALSE`,
		schema.UserSession.Table, schema.UserSession.IsRevoked,
		schema.UserSession.ID, schema.UserSession.UserID, schema.UserSession.IsRevoked,
	)

	tag, err := repository.pool.Exec(context, query, sessionID, userID)
	if err != nil {
		return dberr.Wrap(err, "postgres: failed to revoke session")
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeAll marks every live session of the user as revoked.
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = TRUE WHERE %s = $1 AND %s = FALSE`,
		schema.UserSession.Table, schema.UserSession.IsRevoked,
		schema.UserSession.UserID, schema.UserSession.IsRevoked,
	)

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return 0, dberr.Wrap(err, "postgres: failed to revoke sessions")
	}
	return tag.RowsAffected(), nil
}
