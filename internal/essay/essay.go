// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package essay coordinates the lifecycle of a generated academic essay.

An essay is planned synchronously: the plan collaborator proposes chapter
titles, the page budget is distributed across the sections, and the essay,
its metadata snapshot and its chapters are written in one transaction. Text
generation then runs in the background worker, dispatched through the task
queue, and is read back by status polling.

Core Responsibility:

  - Planning: profile checks, page allocation and plan reconciliation.
  - Dispatch: exactly one background job per essay, serialised on the row lock.
  - Generation: the worker unit of work that writes every section at once.
  - Export: an HTML rendition of the finished essay.
*/
package essay

import (
	"strings"
	"time"
)

// # Domain Enums

// Status is the position of an essay in its generation lifecycle.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPlanGenerated Status = "PLAN_GENERATED"
	StatusGenerating    Status = "GENERATING"
	StatusGenerated     Status = "GENERATED"
	StatusCompleted     Status = "COMPLETED"
	StatusFailure       Status = "FAILURE"
)

// ParseStatus normalises a stored or external status label. Legacy failure
// labels collapse to [StatusFailure] and legacy in-flight labels to
// [StatusGenerating]. The second result is false for unknown labels.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusPlanGenerated:
		return StatusPlanGenerated, true
	case StatusGenerating, "STARTED", "IN_PROGRESS":
		return StatusGenerating, true
	case StatusGenerated:
		return StatusGenerated, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusFailure, "ERROR", "FAILED", "CANCELED", "CANCELLED", "EXPIRED":
		return StatusFailure, true
	}
	return StatusPending, false
}

// IsInFlight reports whether a generation job is running or has already produced text.
// Dispatch is skipped for these statuses.
func (status Status) IsInFlight() bool {
	return status == StatusGenerating || status == StatusGenerated
}

// IsTerminal reports whether the status will not change without a new dispatch.
func (status Status) IsTerminal() bool {
	switch status {
	case StatusGenerated, StatusCompleted, StatusFailure:
		return true
	}
	return false
}

// IsFailure reports whether the last generation attempt failed.
func (status Status) IsFailure() bool {
	return status == StatusFailure
}

// Languages accepted for generation.
const (
	LanguageRussian = "ru"
	LanguageEnglish = "en"
	LanguageKyrgyz  = "kg"
)

// Section kinds written besides the chapters.
const (
	SectionIntroduction = "introduction"
	SectionConclusion   = "conclusion"
	SectionReferences   = "references"
)

// # Domain Entities

// Essay is the aggregate root of a generated essay.
type Essay struct {
	ID            int64   `json:"id"`
	UserID        string  `json:"user_id"`
	Topic         string  `json:"topic"`
	PageCount     int     `json:"page_count"`
	ChapterCount  int     `json:"chapter_count"`
	Language      string  `json:"language"`
	Status        Status  `json:"status"`
	TaskID        *string `json:"task_id"`
	FailureReason *string `json:"failure_reason,omitempty"`

	Introduction *string `json:"introduction"`
	Conclusion   *string `json:"conclusion"`
	References   *string `json:"references"`

	IntroductionCharsCount int `json:"introduction_chars_count"`
	ConclusionCharsCount   int `json:"conclusion_chars_count"`
	ReferencesCharsCount   int `json:"references_chars_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated by single-essay reads only.
	Metadata *Metadata  `json:"metadata,omitempty"`
	Chapters []*Chapter `json:"chapters,omitempty"`
}

// Chapter is one planned chapter of an essay.
type Chapter struct {
	ID        int64     `json:"id"`
	EssayID   int64     `json:"essay_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Chars     int       `json:"chars"`
	Content   *string   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata is the title page snapshot taken when the plan is created.
// It is never re-derived from the live profile.
type Metadata struct {
	EssayID     int64  `json:"essay_id"`
	University  string `json:"university"`
	Faculty     string `json:"faculty"`
	Subject     string `json:"subject"`
	Course      int    `json:"course"`
	PerformedBy string `json:"performed_by"`
	CheckedBy   string `json:"checked_by"`
	Group       string `json:"group"`
	City        string `json:"city"`
	Year        int    `json:"year"`
}

// GenerationState is returned by dispatch and status polling.
type GenerationState struct {
	EssayID       int64   `json:"essay_id"`
	Status        Status  `json:"status"`
	TaskID        *string `json:"task_id"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

// state projects the dispatch-relevant fields of an essay.
func (essay *Essay) state() *GenerationState {
	return &GenerationState{
		EssayID:       essay.ID,
		Status:        essay.Status,
		TaskID:        essay.TaskID,
		FailureReason: essay.FailureReason,
	}
}

// GeneratedText carries every text produced by one worker run.
type GeneratedText struct {
	Introduction *string
	Conclusion   *string
	References   *string

	// Chapters maps chapter id to content.
	Chapters map[int64]string
}

// # Field Identifiers

const (
	FieldTopic         = "topic"
	FieldSubject       = "subject"
	FieldCheckedBy     = "checked_by"
	FieldPageCount     = "page_count"
	FieldChaptersCount = "chapters_count"
	FieldLanguage      = "language"
	FieldChapterID     = "chapter_id"
	FieldTitle         = "title"
)
