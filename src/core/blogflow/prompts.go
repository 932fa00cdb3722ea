package blogflow

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
)

// SEOContextLimit bounds how much of the article is sent with the SEO metadata prompt.
const SEOContextLimit = 6000

const (
	OutlineSystemMessageTmpl = `You are a senior content strategist who plans long-form, search-optimized blog articles for a marketing agency.`

	OutlinePromptTmpl = `Create a detailed outline for a blog post titled "{{.Title}}".

Target length: about {{.WordCount}} words.
Primary keyword: {{.PrimaryKeyword}}
{{- if .SecondaryKeywords}}
Secondary keywords: {{.SecondaryKeywords}}
{{- end}}

Structure requirements:
- Start with "## Introduction".
- Follow with 4 to 6 main sections, each a "##" heading. Use "###" subsections where they help.
- End with "## Conclusion".
- Under each heading add 2-3 bullet points describing what the section covers.

Keyword guidance:
- Plan for the primary keyword "{{.PrimaryKeyword}}" to appear early in the introduction.
- Plan for it to be used once more in one of the middle sections.
{{- if .InternalLinks}}

Internal links to weave in where they fit the context:
{{- range .InternalLinks}}
- {{.}}
{{- end}}
{{- end}}
{{- if .ExternalLinks}}

External references to cite where they support a claim:
{{- range .ExternalLinks}}
- {{.}}
{{- end}}
{{- end}}
{{- if .AdditionalInstructions}}

Additional instructions: {{.AdditionalInstructions}}
{{- end}}

Output only the outline in markdown and nothing else.`

	SectionSystemMessageTmpl = `You are an experienced blog writer. You write clear, specific and engaging prose in markdown.`

	SectionPromptTmpl = `You are writing the blog post "{{.Title}}" one section at a time.

Here is the full outline. The section to write now is marked with "<-- WRITE THIS SECTION NOW":

<OUTLINE>
{{.Outline}}
</OUTLINE>

Write section {{.SectionNumber}} of {{.TotalSections}}: "{{.SectionTitle}}".

Length: about {{.TargetWords}} words.

Keyword guidance:
{{.KeywordDirective}}
{{- if .InternalLinks}}

Internal links available (use at most one, only where it reads naturally, as a markdown link):
{{- range .InternalLinks}}
- {{.}}
{{- end}}
{{- end}}
{{- if .ExternalLinks}}

External references available (use only if they support a point in this section):
{{- range .ExternalLinks}}
- {{.}}
{{- end}}
{{- end}}
{{- if .AdditionalInstructions}}

Additional instructions: {{.AdditionalInstructions}}
{{- end}}

Do not repeat the section heading and do not write any other section.
Output only the markdown body of this section.`

	ReformatSystemMessageTmpl = `You are an editor who improves the readability of blog content without changing what it says.`

	ReformatPromptTmpl = `Restructure the following blog section to make it easier to scan.

You may:
- turn lists of items into bullet points,
- add "###" subheadings where the section covers several ideas,
- bold the key terms.

Do not add, remove or change any facts, claims or links. Keep the wording as close as possible.

<SECTION>
{{.SectionText}}
</SECTION>

Output only the restructured section body and nothing else.`

	SEOMetadataSystemMessageTmpl = `You are an SEO specialist. You always answer with a single strict JSON object and nothing else.`

	SEOMetadataPromptTmpl = `Create SEO metadata for the blog post below.

Primary keyword: {{.PrimaryKeyword}}
{{- if .SecondaryKeywords}}
Secondary keywords: {{.SecondaryKeywords}}
{{- end}}

<ARTICLE>
{{.Markdown}}
</ARTICLE>

Return a JSON object with exactly these fields:
{
  "title": "SEO title, 50-60 characters, containing the primary keyword",
  "description": "meta description, 145-155 characters",
  "excerpt": "listing excerpt, 140-160 characters",
  "slug": "lowercase-words-separated-by-hyphens",
  "tags": ["3 to 5 specific topic tags"]
}

Output only the JSON object.`
)

var (
	outlineSystemTmpl  = template.Must(template.New("outline_system").Parse(OutlineSystemMessageTmpl))
	outlinePromptTmpl  = template.Must(template.New("outline_prompt").Parse(OutlinePromptTmpl))
	sectionSystemTmpl  = template.Must(template.New("section_system").Parse(SectionSystemMessageTmpl))
	sectionPromptTmpl  = template.Must(template.New("section_prompt").Parse(SectionPromptTmpl))
	reformatSystemTmpl = template.Must(template.New("reformat_system").Parse(ReformatSystemMessageTmpl))
	reformatPromptTmpl = template.Must(template.New("reformat_prompt").Parse(ReformatPromptTmpl))
	seoSystemTmpl      = template.Must(template.New("seo_system").Parse(SEOMetadataSystemMessageTmpl))
	seoPromptTmpl      = template.Must(template.New("seo_prompt").Parse(SEOMetadataPromptTmpl))
)

// Prompt is a system message plus the user prompt sent to the generation service.
type Prompt struct {
	System string
	User   string
}

// TemplateData holds all the data needed for template execution
type TemplateData struct {
	Title                  string
	WordCount              int
	PrimaryKeyword         string
	SecondaryKeywords      string
	InternalLinks          []string
	ExternalLinks          []string
	AdditionalInstructions string

	Outline          string
	SectionTitle     string
	SectionNumber    int
	TotalSections    int
	TargetWords      int
	KeywordDirective string

	SectionText string
	Markdown    string
}

func briefData(brief Brief) TemplateData {
	return TemplateData{
		Title:                  brief.Title,
		WordCount:              brief.WordCount,
		PrimaryKeyword:         brief.PrimaryKeyword,
		SecondaryKeywords:      strings.Join(brief.SecondaryKeywords, ", "),
		InternalLinks:          brief.InternalLinks,
		ExternalLinks:          brief.ExternalLinks,
		AdditionalInstructions: strings.TrimSpace(brief.AdditionalInstructions),
	}
}

// OutlinePrompt builds the prompt for the article outline.
func OutlinePrompt(brief Brief) (Prompt, error) {
	p, err := executeTemplates(outlineSystemTmpl, outlinePromptTmpl, briefData(brief))
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to prepare outline templates: %w", err)
	}
	return p, nil
}

// SectionPrompt builds the prompt for one section. markedOutline is the outline with the
// current section tagged by MarkCurrentSection.
func SectionPrompt(markedOutline string, brief Brief, sectionIndex, totalSections int) (Prompt, error) {
	titles := ParseSectionTitles(markedOutline)
	title := ""
	if sectionIndex >= 0 && sectionIndex < len(titles) {
		title = strings.TrimSpace(strings.TrimSuffix(titles[sectionIndex], strings.TrimSpace(currentSectionMarker)))
	}

	data := briefData(brief)
	data.Outline = markedOutline
	data.SectionTitle = title
	data.SectionNumber = sectionIndex + 1
	data.TotalSections = totalSections
	data.TargetWords = SectionWordTarget(brief.WordCount, totalSections, IsIntroduction(title))
	data.KeywordDirective = keywordDirective(brief, title, sectionIndex, totalSections)

	p, err := executeTemplates(sectionSystemTmpl, sectionPromptTmpl, data)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to prepare section templates for section %d: %w", sectionIndex, err)
	}
	return p, nil
}

// ReformatPrompt builds the prompt that restyles an already generated section.
func ReformatPrompt(sectionText string) (Prompt, error) {
	p, err := executeTemplates(reformatSystemTmpl, reformatPromptTmpl, TemplateData{SectionText: sectionText})
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to prepare reformat templates: %w", err)
	}
	return p, nil
}

// SEOMetadataPrompt builds the strict-JSON metadata prompt from the assembled article.
func SEOMetadataPrompt(fullMarkdown string, brief Brief) (Prompt, error) {
	data := briefData(brief)
	data.Markdown = truncateRunes(fullMarkdown, SEOContextLimit)

	p, err := executeTemplates(seoSystemTmpl, seoPromptTmpl, data)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to prepare SEO metadata templates: %w", err)
	}
	return p, nil
}

// SectionWordTarget is the advisory word budget for one section. The introduction gets
// a shorter budget than the body sections.
func SectionWordTarget(wordCount, totalSections int, introduction bool) int {
	perSection := float64(wordCount) / float64(totalSections+1)
	if introduction {
		perSection *= 0.8
	}
	return int(math.Round(perSection))
}

// IsMiddleSection reports whether index is within one of the middle of the section list.
func IsMiddleSection(index, totalSections int) bool {
	middle := totalSections / 2
	diff := index - middle
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

func keywordDirective(brief Brief, title string, index, total int) string {
	switch {
	case IsIntroduction(title):
		return fmt.Sprintf("- Use the primary keyword %q within the first two sentences.\n"+
			"- Hook the reader and state what the article will cover.", brief.PrimaryKeyword)
	case IsMiddleSection(index, total):
		directive := fmt.Sprintf("- Use the primary keyword %q exactly once, where it reads naturally.", brief.PrimaryKeyword)
		if len(brief.SecondaryKeywords) > 0 {
			directive += fmt.Sprintf("\n- Work in one of these secondary keywords if it fits: %s.",
				strings.Join(brief.SecondaryKeywords, ", "))
		}
		return directive
	default:
		directive := fmt.Sprintf("- Do not force the primary keyword %q; focus on the topic of this section.", brief.PrimaryKeyword)
		if len(brief.SecondaryKeywords) > 0 {
			directive += fmt.Sprintf("\n- Use secondary keywords naturally where relevant: %s.",
				strings.Join(brief.SecondaryKeywords, ", "))
		}
		return directive
	}
}

// Template execution helpers
func executeTemplates(systemTmpl, promptTmpl *template.Template, data TemplateData) (Prompt, error) {
	var systemBuf, promptBuf bytes.Buffer

	if err := systemTmpl.Execute(&systemBuf, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute system template: %w", err)
	}
	if err := promptTmpl.Execute(&promptBuf, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return Prompt{System: systemBuf.String(), User: promptBuf.String()}, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
