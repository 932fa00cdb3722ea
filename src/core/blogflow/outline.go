package blogflow

import (
	"strings"
)

const currentSectionMarker = "  <-- WRITE THIS SECTION NOW"

// ParseSectionTitles returns the "##" heading titles of an outline in order.
// Deeper headings ("###") are subsections and are not returned.
func ParseSectionTitles(outline string) []string {
	var titles []string
	for _, line := range strings.Split(outline, "\n") {
		title, ok := sectionHeading(line)
		if ok {
			titles = append(titles, title)
		}
	}
	return titles
}

// MarkCurrentSection returns a copy of the outline with the index-th "##" heading tagged,
// so a prompt can refer to the current section by position.
func MarkCurrentSection(outline string, index int) string {
	lines := strings.Split(outline, "\n")
	seen := 0
	for i, line := range lines {
		if _, ok := sectionHeading(line); !ok {
			continue
		}
		if seen == index {
			lines[i] = strings.TrimRight(line, " \t\r") + currentSectionMarker
			break
		}
		seen++
	}
	return strings.Join(lines, "\n")
}

// IsIntroduction reports whether a section title names the article introduction.
func IsIntroduction(title string) bool {
	return strings.Contains(strings.ToLower(title), "introduction")
}

func sectionHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "## ") {
		return "", false
	}
	title := strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
	if title == "" {
		return "", false
	}
	return title, true
}

// composeSection strips a heading the model may have repeated and prepends the canonical one.
func composeSection(title, body string) string {
	body = strings.TrimSpace(body)
	first, rest, _ := strings.Cut(body, "\n")
	first = strings.TrimSpace(first)
	if strings.HasPrefix(first, "#") && strings.EqualFold(strings.TrimSpace(strings.TrimLeft(first, "#")), title) {
		body = strings.TrimSpace(rest)
	}
	return "## " + title + "\n\n" + body
}

// assembleMarkdown joins the title and generated sections into the full article.
func assembleMarkdown(title string, sections []string) string {
	return "# " + title + "\n\n" + strings.Join(sections, "\n\n")
}
