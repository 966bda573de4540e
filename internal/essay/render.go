// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package essay

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/zt-a/refgen-ai-backend/pkg/slug"
)

// # Export

// ExportContentType is the media type of a rendered essay.
const ExportContentType = "text/html; charset=utf-8"

// headings holds the section captions printed in the document.
type headings struct {
	Contents     string
	Introduction string
	Conclusion   string
	References   string
	Topic        string
	Subject      string
	PerformedBy  string
	CheckedBy    string
	Group        string
	Course       string
}

var headingsByLanguage = map[string]headings{
	LanguageRussian: {
		Contents: "Содержание", Introduction: "Введение", Conclusion: "Заключение",
		References: "Использованные источники", Topic: "Тема", Subject: "Дисциплина",
		PerformedBy: "Выполнил(а)", CheckedBy: "Проверил(а)", Group: "Группа", Course: "Курс",
	},
	LanguageKyrgyz: {
		Contents: "Мазмуну", Introduction: "Киришүү", Conclusion: "Корутунду",
		References: "Колдонулган адабияттар", Topic: "Тема", Subject: "Сабак",
		PerformedBy: "Аткарган", CheckedBy: "Текшерген", Group: "Топ", Course: "Курс",
	},
	LanguageEnglish: {
		Contents: "Contents", Introduction: "Introduction", Conclusion: "Conclusion",
		References: "References", Topic: "Topic", Subject: "Subject",
		PerformedBy: "Performed by", CheckedBy: "Checked by", Group: "Group", Course: "Course",
	},
}

func headingsFor(language string) headings {
	if labels, ok := headingsByLanguage[language]; ok {
		return labels
	}
	return headingsByLanguage[LanguageRussian]
}

// ExportFileName returns the attachment name, e.g. "essay-12-climate-change.html".
func ExportFileName(essay *Essay) string {
	name := slug.Truncate(slug.From(essay.Topic), 60)
	if name == "" {
		return fmt.Sprintf("essay-%d.html", essay.ID)
	}
	return fmt.Sprintf("essay-%d-%s.html", essay.ID, name)
}

/*
Render assembles a persisted essay into one HTML document: a title page from
the metadata snapshot, a table of contents, then every section in order.
Missing sections keep their heading and stay empty.

Returns:
  - []byte: UTF-8 HTML document
  - error: Markup that cannot be re-serialised
*/
func Render(essay *Essay) ([]byte, error) {
	labels := headingsFor(essay.Language)
	var buffer bytes.Buffer

	buffer.WriteString("<!DOCTYPE html>\n<html lang=\"")
	buffer.WriteString(html.EscapeString(essay.Language))
	buffer.WriteString("\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
	buffer.WriteString(html.EscapeString(essay.Topic))
	buffer.WriteString("</title>\n</head>\n<body>\n")

	renderTitlePage(&buffer, essay, labels)

	// Table of contents
	buffer.WriteString("<section class=\"contents\">\n<h2>")
	buffer.WriteString(html.EscapeString(labels.Contents))
	buffer.WriteString("</h2>\n<ul>\n")
	writeItem(&buffer, labels.Introduction)
	for _, chapter := range essay.Chapters {
		writeItem(&buffer, chapter.Title)
	}
	writeItem(&buffer, labels.Conclusion)
	writeItem(&buffer, labels.References)
	buffer.WriteString("</ul>\n</section>\n")

	// Sections
	if err := renderSection(&buffer, "introduction", labels.Introduction, essay.Introduction); err != nil {
		return nil, err
	}
	for _, chapter := range essay.Chapters {
		if err := renderSection(&buffer, "chapter", chapter.Title, chapter.Content); err != nil {
			return nil, err
		}
	}
	if err := renderSection(&buffer, "conclusion", labels.Conclusion, essay.Conclusion); err != nil {
		return nil, err
	}
	if err := renderSection(&buffer, "references", labels.References, essay.References); err != nil {
		return nil, err
	}

	buffer.WriteString("</body>\n</html>\n")
	return buffer.Bytes(), nil
}

func renderTitlePage(buffer *bytes.Buffer, essay *Essay, labels headings) {
	buffer.WriteString("<section class=\"title-page\">\n")
	metadata := essay.Metadata
	if metadata == nil {
		metadata = &Metadata{}
	}

	writeParagraph(buffer, "university", metadata.University)
	writeParagraph(buffer, "faculty", metadata.Faculty)
	writeParagraph(buffer, "subject", joinLabel(labels.Subject, metadata.Subject))

	buffer.WriteString("<h1>")
	buffer.WriteString(html.EscapeString(essay.Topic))
	buffer.WriteString("</h1>\n")

	writeParagraph(buffer, "performed-by", joinLabel(labels.PerformedBy, metadata.PerformedBy))
	if metadata.Course > 0 {
		writeParagraph(buffer, "course", joinLabel(labels.Course, strconv.Itoa(metadata.Course)))
	}
	writeParagraph(buffer, "group", joinLabel(labels.Group, metadata.Group))
	writeParagraph(buffer, "checked-by", joinLabel(labels.CheckedBy, metadata.CheckedBy))

	place := strings.TrimSpace(metadata.City)
	if metadata.Year > 0 {
		place = strings.TrimSpace(place + " " + strconv.Itoa(metadata.Year))
	}
	writeParagraph(buffer, "city", place)

	buffer.WriteString("</section>\n")
}

func joinLabel(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}

func writeParagraph(buffer *bytes.Buffer, class, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(buffer, "<p class=\"%s\">%s</p>\n", class, html.EscapeString(text))
}

func writeItem(buffer *bytes.Buffer, text string) {
	buffer.WriteString("<li>")
	buffer.WriteString(html.EscapeString(text))
	buffer.WriteString("</li>\n")
}

// renderSection writes a heading followed by the body of a generated fragment.
func renderSection(buffer *bytes.Buffer, class, title string, raw *string) error {
	fmt.Fprintf(buffer, "<section class=\"%s\">\n<h2>%s</h2>\n", class, html.EscapeString(title))
	if raw != nil {
		body, err := ExtractContent(*raw)
		if err != nil {
			return err
		}
		buffer.WriteString(body)
		buffer.WriteString("\n")
	}
	buffer.WriteString("</section>\n")
	return nil
}

// # Fragment Extraction

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

/*
ExtractContent returns the markup inside the <content> element of a generated
<document> fragment, followed by its <formulas> block when that block is not
empty. Fragments without a <content> element are returned re-serialised whole.
*/
func ExtractContent(raw string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(raw), bodyContext)
	if err != nil {
		return "", fmt.Errorf("essay: parse fragment: %w", err)
	}

	var buffer bytes.Buffer

	content := findElement(nodes, "content")
	if content == nil {
		for _, node := range nodes {
			if err := html.Render(&buffer, node); err != nil {
				return "", fmt.Errorf("essay: render fragment: %w", err)
			}
		}
		return strings.TrimSpace(buffer.String()), nil
	}

	for child := content.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buffer, child); err != nil {
			return "", fmt.Errorf("essay: render content: %w", err)
		}
	}

	if formulas := findElement(nodes, "formulas"); formulas != nil && hasElementChild(formulas) {
		buffer.WriteString("\n")
		if err := html.Render(&buffer, formulas); err != nil {
			return "", fmt.Errorf("essay: render formulas: %w", err)
		}
	}

	return strings.TrimSpace(buffer.String()), nil
}

// findElement returns the first element named tag in a depth-first walk.
func findElement(nodes []*html.Node, tag string) *html.Node {
	var find func(*html.Node) *html.Node
	find = func(node *html.Node) *html.Node {
		if node.Type == html.ElementNode && node.Data == tag {
			return node
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if found := find(child); found != nil {
				return found
			}
		}
		return nil
	}

	for _, node := range nodes {
		if found := find(node); found != nil {
			return found
		}
	}
	return nil
}

func hasElementChild(node *html.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			return true
		}
	}
	return false
}
