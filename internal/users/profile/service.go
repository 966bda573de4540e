// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zt-a/refgen-ai-backend/internal/platform/validate"
)

// # Service Layer

// Service orchestrates profile reads and writes for the authenticated user.
type Service struct {
	repository Repository
	logger     *slog.Logger
}

// NewService constructs a new [Service].
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

// Input is the full set of editable profile fields.
type Input struct {
	Name        string
	Surname     string
	Patronymic  string
	PhoneNumber string
	University  string
	Faculty     string
	Course      int
	Group       string
	City        string
}

// normalize trims every text field.
func (input Input) normalize() Input {
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	input.Patronymic = strings.TrimSpace(input.Patronymic)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.University = strings.TrimSpace(input.University)
	input.Faculty = strings.TrimSpace(input.Faculty)
	input.Group = strings.TrimSpace(input.Group)
	input.City = strings.TrimSpace(input.City)
	return input
}

// validate applies the field rules shared by create and update.
func (input Input) validate() error {
	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, 100).
		Required(FieldSurname, input.Surname).MaxLen(FieldSurname, input.Surname, 100).
		MaxLen(FieldPatronymic, input.Patronymic, 100).
		MaxLen(FieldPhoneNumber, input.PhoneNumber, 32).
		MaxLen(FieldUniversity, input.University, 255).
		MaxLen(FieldFaculty, input.Faculty, 255).
		Range(FieldCourse, input.Course, 0, 10).
		MaxLen(FieldGroup, input.Group, 64).
		MaxLen(FieldCity, input.City, 100)
	return validator.Err()
}

// apply copies the input onto a profile entity.
func (input Input) apply(profile *Profile) {
	profile.Name = input.Name
	profile.Surname = input.Surname
	profile.Patronymic = input.Patronymic
	profile.PhoneNumber = input.PhoneNumber
	profile.University = input.University
	profile.Faculty = input.Faculty
	profile.Course = input.Course
	profile.Group = input.Group
	profile.City = input.City
}

// # Profile Operations

// Get returns the caller's profile.
func (service *Service) Get(context context.Context, userID string) (*Profile, error) {
	return service.repository.FindByUserID(context, userID)
}

/*
Create stores a new profile for a user that does not have one yet.

Parameters:
  - context: context.Context
  - userID: string
  - input: Input

Returns:
  - *Profile: The stored profile
  - error: Validation, Conflict or storage failures
*/
func (service *Service) Create(context context.Context, userID string, input Input) (*Profile, error) {
	input = input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	profile := &Profile{UserID: userID}
	input.apply(profile)

	if err := service.repository.Create(context, profile); err != nil {
		return nil, err
	}

	service.logger.Info("profile_created", slog.String("user_id", userID))
	return profile, nil
}

/*
Update replaces the editable fields of the caller's profile.

Parameters:
  - context: context.Context
  - userID: string
  - input: Input

Returns:
  - *Profile: The updated profile
  - error: Validation, NotFound or storage failures
*/
func (service *Service) Update(context context.Context, userID string, input Input) (*Profile, error) {
	input = input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	profile, err := service.repository.FindByUserID(context, userID)
	if err != nil {
		return nil, err
	}
	input.apply(profile)

	if err := service.repository.Update(context, profile); err != nil {
		return nil, err
	}

	service.logger.Info("profile_updated", slog.String("user_id", userID))
	return profile, nil
}

// Delete removes the caller's profile.
func (service *Service) Delete(context context.Context, userID string) error {
	if err := service.repository.Delete(context, userID); err != nil {
		return err
	}

	service.logger.Info("profile_deleted", slog.String("user_id", userID))
	return nil
}
