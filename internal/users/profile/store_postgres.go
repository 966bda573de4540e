// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
	"github.com/zt-a/refgen-ai-backend/internal/platform/database/schema"
	"github.com/zt-a/refgen-ai-backend/internal/platform/dberr"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed profile store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// selectProfile is shared by every single-row read.
var selectProfile = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
	strings.Join(schema.UserProfile.Columns(), ", "),
	schema.UserProfile.Table,
	schema.UserProfile.UserID,
)

/*
FindByUserID loads the profile owned by userID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Profile: Hydrated entity
  - error: ErrNotFound when no row exists
*/
func (repository *postgresRepository) FindByUserID(context context.Context, userID string) (*Profile, error) {
	var profile Profile
	err := repository.pool.QueryRow(context, selectProfile, userID).Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Surname,
		&profile.Patronymic,
		&profile.PhoneNumber,
		&profile.University,
		&profile.Faculty,
		&profile.Course,
		&profile.Group,
		&profile.City,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to find profile: %w", err)
	}

	return &profile, nil
}

/*
Create inserts a new profile row.

Parameters:
  - context: context.Context
  - profile: *Profile

Returns:
  - error: apperr.Conflict when the user already has a profile
*/
func (repository *postgresRepository) Create(context context.Context, profile *Profile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		schema.UserProfile.Table,
		schema.UserProfile.UserID, schema.UserProfile.Name, schema.UserProfile.Surname,
		schema.UserProfile.Patronymic, schema.UserProfile.PhoneNumber, schema.UserProfile.University,
		schema.UserProfile.Faculty, schema.UserProfile.Course, schema.UserProfile.Group,
		schema.UserProfile.City, schema.UserProfile.CreatedAt, schema.UserProfile.UpdatedAt,
	)

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		profile.UserID, profile.Name, profile.Surname, profile.Patronymic, profile.PhoneNumber,
		profile.University, profile.Faculty, profile.Course, profile.Group, profile.City, now,
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Profile already exists")
		}
		return fmt.Errorf("postgres: failed to create profile: %w", err)
	}

	return nil
}

/*
Update overwrites every mutable column of the profile.

Parameters:
  - context: context.Context
  - profile: *Profile

Returns:
  - error: ErrNotFound when no row matched
*/
func (repository *postgresRepository) Update(context context.Context, profile *Profile) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9, %s = $10, %s = $11
		WHERE %s = $1`,
		schema.UserProfile.Table,
		schema.UserProfile.Name, schema.UserProfile.Surname, schema.UserProfile.Patronymic,
		schema.UserProfile.PhoneNumber, schema.UserProfile.University, schema.UserProfile.Faculty,
		schema.UserProfile.Course, schema.UserProfile.Group, schema.UserProfile.City,
		schema.UserProfile.UpdatedAt,
		schema.UserProfile.UserID,
	)

	profile.UpdatedAt = time.Now()

	tag, err := repository.pool.Exec(context, query,
		profile.UserID, profile.Name, profile.Surname, profile.Patronymic, profile.PhoneNumber,
		profile.University, profile.Faculty, profile.Course, profile.Group, profile.City, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the profile row owned by userID.
func (repository *postgresRepository) Delete(context context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserProfile.Table, schema.UserProfile.UserID)

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
