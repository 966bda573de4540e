// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package budget turns a requested essay size into a page layout and a per-section
text quota.

Every function here is pure: nothing reads configuration, the clock or storage.
Per-page constants arrive through [Config], which the caller builds from process
configuration.

Layout rules:

  - Introduction, conclusion and references have fixed page counts.
  - The remaining pages are split evenly across chapters; the first
    remainder chapters receive one extra page each.
  - A chapter must always be strictly longer than any fixed section.
*/
package budget

import (
	"errors"
	"fmt"
)

// # Errors

var (
	// ErrInvalidAllocation is returned for non-positive counts.
	ErrInvalidAllocation = errors.New("invalid allocation request")

	// ErrInsufficientPages is returned when the fixed sections consume the whole essay.
	ErrInsufficientPages = errors.New("not enough pages for chapters")

	// ErrTooManyChapters is returned when the remaining pages cannot give every chapter one page.
	ErrTooManyChapters = errors.New("too many chapters for the page count")

	// ErrChaptersUndersized is returned when a chapter would not exceed the fixed sections.
	ErrChaptersUndersized = errors.New("chapters would be shorter than fixed sections")
)

// # Types

// Distribution is the page layout of one essay.
type Distribution struct {
	Introduction   int   `json:"introduction"`
	Chapters       []int `json:"chapters"`
	Conclusion     int   `json:"conclusion"`
	References     int   `json:"references"`
	TotalPages     int   `json:"total_pages"`
	RemainderPages int   `json:"remainder_pages"`
}

// ChapterPages returns the sum of all chapter page counts.
func (d Distribution) ChapterPages() int {
	sum := 0
	for _, pages := range d.Chapters {
		sum += pages
	}
	return sum
}

// Config holds the per-page text volume constants.
type Config struct {
	CharsPerPage     int
	FullCharsPerPage int
	WordsPerPage     int
}

// DefaultConfig returns the documented per-page defaults.
func DefaultConfig() Config {
	return Config{
		CharsPerPage:     1500,
		FullCharsPerPage: 2000,
		WordsPerPage:     300,
	}
}

// withDefaults fills zero or negative fields from [DefaultConfig].
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.CharsPerPage <= 0 {
		c.CharsPerPage = defaults.CharsPerPage
	}
	if c.FullCharsPerPage <= 0 {
		c.FullCharsPerPage = defaults.FullCharsPerPage
	}
	if c.WordsPerPage <= 0 {
		c.WordsPerPage = defaults.WordsPerPage
	}
	return c
}

// CharBudget is the text quota for one section or chapter.
type CharBudget struct {
	Chars     int `json:"chars"`
	FullChars int `json:"full_chars"`
	Words     int `json:"words"`
}

// # Allocation

/*
DistributePages splits totalPages across the fixed sections and chapterCount chapters.

Parameters:
  - totalPages: Requested essay length in pages
  - introPages, conclusionPages, referencesPages: Fixed section sizes
  - chapterCount: Number of chapters (authoritative plan length)

Returns:
  - Distribution: Layout whose parts always sum to totalPages
  - error: One of the sentinel errors of this package, wrapped with a reason
*/
func DistributePages(totalPages, introPages, conclusionPages, referencesPages, chapterCount int) (Distribution, error) {
	if totalPages < 1 || introPages < 1 || conclusionPages < 1 || referencesPages < 1 || chapterCount < 1 {
		return Distribution{}, fmt.Errorf("%w: all page and chapter counts must be positive", ErrInvalidAllocation)
	}

	fixedPages := introPages + conclusionPages + referencesPages
	if fixedPages >= totalPages {
		return Distribution{}, fmt.Errorf("%w: %d pages requested, introduction, conclusion and references already take %d",
			ErrInsufficientPages, totalPages, fixedPages)
	}

	remaining := totalPages - fixedPages
	perChapter := remaining / chapterCount
	remainder := remaining % chapterCount

	if perChapter == 0 {
		return Distribution{}, fmt.Errorf("%w: %d pages left for %d chapters", ErrTooManyChapters, remaining, chapterCount)
	}

	largestFixed := max(introPages, conclusionPages, referencesPages)
	if perChapter <= largestFixed {
		return Distribution{}, fmt.Errorf("%w: %d pages per chapter, sections take up to %d; increase the page count or reduce chapters",
			ErrChaptersUndersized, perChapter, largestFixed)
	}

	chapters := make([]int, chapterCount)
	for index := range chapters {
		chapters[index] = perChapter
		if index < remainder {
			chapters[index]++
		}
	}

	return Distribution{
		Introduction:   introPages,
		Chapters:       chapters,
		Conclusion:     conclusionPages,
		References:     referencesPages,
		TotalPages:     totalPages,
		RemainderPages: remainder,
	}, nil
}

// PagesToCharBudget converts a page count into a text quota.
func PagesToCharBudget(pages int, cfg Config) CharBudget {
	cfg = cfg.withDefaults()
	return CharBudget{
		Chars:     pages * cfg.CharsPerPage,
		FullChars: pages * cfg.FullCharsPerPage,
		Words:     pages * cfg.WordsPerPage,
	}
}

// SectionWeight returns the page count of the introduction and conclusion
// for an essay of requestedPages.
func SectionWeight(requestedPages int) int {
	switch {
	case requestedPages <= 20:
		return 1
	case requestedPages <= 40:
		return 2
	default:
		return 3
	}
}

// ApproximatePages estimates how many pages a stored character budget
// represents. The result is never below one page.
func ApproximatePages(chars int, cfg Config) float64 {
	cfg = cfg.withDefaults()
	return max(float64(chars)/float64(cfg.CharsPerPage), 1)
}

// ScaleForChapter derives the full-character and word targets for a chapter
// whose stored budget is chars.
func ScaleForChapter(chars int, cfg Config) CharBudget {
	cfg = cfg.withDefaults()
	approx := ApproximatePages(chars, cfg)
	return CharBudget{
		Chars:     chars,
		FullChars: int(float64(cfg.FullCharsPerPage) * approx),
		Words:     int(float64(cfg.WordsPerPage) * approx),
	}
}
