// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package llm

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Template names.
const (
	PromptPlan         = "plan"
	PromptIntroduction = "introduction"
	PromptConclusion   = "conclusion"
	PromptReferences   = "references"
	PromptChapter      = "chapter"

	promptDocumentFormat = "document_format"
)

var requiredPrompts = []string{
	promptDocumentFormat,
	PromptPlan,
	PromptIntroduction,
	PromptConclusion,
	PromptReferences,
	PromptChapter,
}

// PromptData is the value every template is executed with.
type PromptData struct {
	Topic         string
	Language      string
	ChaptersCount int
	ChapterTitle  string
	Position      int
	Chars         int
	FullChars     int
	Words         int
}

// Prompts is a parsed set of prompt templates.
type Prompts struct {
	templates *template.Template
}

// DefaultPrompts parses the embedded prompt set.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(promptsYAML)
}

// ParsePrompts parses a YAML document mapping template names to bodies.
func ParsePrompts(document []byte) (*Prompts, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(document, &raw); err != nil {
		return nil, fmt.Errorf("llm: decode prompts: %w", err)
	}

	root := template.New("prompts").Option("missingkey=error")
	for _, name := range requiredPrompts {
		body, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("llm: prompt %q is missing", name)
		}
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("llm: parse prompt %q: %w", name, err)
		}
	}

	return &Prompts{templates: root}, nil
}

// Render executes the named template.
func (prompts *Prompts) Render(name string, data PromptData) (string, error) {
	var buffer bytes.Buffer
	if err := prompts.templates.ExecuteTemplate(&buffer, name, data); err != nil {
		return "", fmt.Errorf("llm: render prompt %q: %w", name, err)
	}
	return buffer.String(), nil
}
