// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package profile manages the academic profile attached to every account.

The profile carries the student details printed on an essay title page
(university, faculty, course, group, city) together with the author's name.
Exactly one profile exists per user; an empty one is created at registration.

# Architecture

  - Entities: Profile.
  - Domain: Consumed by the essay package when a plan is created.
*/
package profile

import (
	"context"
	"time"

	"github.com/zt-a/refgen-ai-backend/internal/platform/apperr"
)

// # Domain Entities

// Profile holds the personal and academic data of a student.
type Profile struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Patronymic  string    `json:"patronymic,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	University  string    `json:"university,omitempty"`
	Faculty     string    `json:"faculty,omitempty"`
	Course      int       `json:"course,omitempty"`
	Group       string    `json:"group,omitempty"`
	City        string    `json:"city,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FullName returns "Surname Name", the form printed as the essay author.
func (profile *Profile) FullName() string {
	switch {
	case profile.Surname == "":
		return profile.Name
	case profile.Name == "":
		return profile.Surname
	default:
		return profile.Surname + " " + profile.Name
	}
}

// # Field Identifiers

const (
	FieldName        = "name"
	FieldSurname     = "surname"
	FieldPatronymic  = "patronymic"
	FieldPhoneNumber = "phone_number"
	FieldUniversity  = "university"
	FieldFaculty     = "faculty"
	FieldCourse      = "course"
	FieldGroup       = "group"
	FieldCity        = "city"
)

// ErrNotFound is returned when the user has no profile row.
var ErrNotFound = apperr.NotFound("Profile")

// # Repository Contracts

// Repository defines the persistence contract for profiles.
type Repository interface {

	/*
		FindByUserID returns the profile owned by userID.

		Parameters:
		  - context: context.Context
		  - userID: string (UUID)

		Returns:
		  - *Profile: Hydrated entity
		  - error: ErrNotFound or storage failures
	*/
	FindByUserID(context context.Context, userID string) (*Profile, error)

	/*
		Create persists a new profile.

		Parameters:
		  - context: context.Context
		  - profile: *Profile

		Returns:
		  - error: apperr.Conflict if the user already has a profile
	*/
	Create(context context.Context, profile *Profile) error

	/*
		Update overwrites every mutable field of an existing profile.

		Parameters:
		  - context: context.Context
		  - profile: *Profile

		Returns:
		  - error: ErrNotFound or storage failures
	*/
	Update(context context.Context, profile *Profile) error

	/*
		Delete removes the profile owned by userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: ErrNotFound or storage failures
	*/
	Delete(context context.Context, userID string) error
}
