// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package plan turns the outline returned by the plan writer into an ordered list
of chapter specifications.

The outline is a small HTML fragment in which every chapter title is an <h2>
element. Parsing is lenient: broken markup never fails, it only yields fewer
titles, and an empty result falls back to numbered placeholders.
*/
package plan

import (
	"strings"

	"golang.org/x/net/html"
)

// # Extraction

// ExtractTitles returns the trimmed, non-empty text of every <h2> element in
// document order. Nested inline markup inside a heading is flattened.
func ExtractTitles(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	document, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return []string{}
	}

	titles := []string{}
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "h2" {
			if title := normalizeSpace(textContent(node)); title != "" {
				titles = append(titles, title)
			}
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(document)

	return titles
}

// textContent concatenates all text nodes below node.
func textContent(node *html.Node) string {
	var builder strings.Builder
	var collect func(*html.Node)
	collect = func(current *html.Node) {
		if current.Type == html.TextNode {
			builder.WriteString(current.Data)
		}
		for child := current.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)
	return builder.String()
}

// normalizeSpace trims the string and collapses internal whitespace runs.
func normalizeSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
