// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package plan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLengthMismatch is returned when titles and budgets disagree in length.
var ErrLengthMismatch = errors.New("plan: titles and budgets differ in length")

// ChapterSpec describes one chapter before it is persisted.
type ChapterSpec struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
	Chars    int    `json:"chars"`
}

// Placeholder returns the fallback title of the chapter at a 1-based position.
func Placeholder(position int) string {
	return fmt.Sprintf("Chapter %d", position)
}

// # Reconciliation

/*
Reconcile decides the authoritative chapter list.

When the extracted plan is empty, numbered placeholders are generated for the
requested count (at least one). Otherwise the extracted titles are returned
unchanged, even if their count differs from the request.
*/
func Reconcile(titles []string, requestedChapterCount int) []string {
	if len(titles) > 0 {
		return append([]string(nil), titles...)
	}

	count := max(requestedChapterCount, 1)
	placeholders := make([]string, count)
	for index := range placeholders {
		placeholders[index] = Placeholder(index + 1)
	}
	return placeholders
}

// Specs pairs titles with per-chapter character budgets and assigns
// contiguous 1-based positions.
func Specs(titles []string, budgets []int) ([]ChapterSpec, error) {
	if len(titles) != len(budgets) {
		return nil, fmt.Errorf("%w: %d titles, %d budgets", ErrLengthMismatch, len(titles), len(budgets))
	}

	specs := make([]ChapterSpec, len(titles))
	for index, title := range titles {
		position := index + 1
		title = strings.TrimSpace(title)
		if title == "" {
			title = Placeholder(position)
		}
		specs[index] = ChapterSpec{
			Title:    title,
			Position: position,
			Chars:    budgets[index],
		}
	}
	return specs, nil
}
