package blogflow

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

const responsePreviewLimit = 200

var fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n(.*?)```")

// ExtractJSON decodes the JSON object in a model response into v. It accepts a fenced
// ```json block, a fenced block without a language tag, or raw unfenced JSON.
func ExtractJSON(text string, v any) error {
	var lastErr error
	for _, candidate := range jsonCandidates(text) {
		err := json.Unmarshal([]byte(candidate), v)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no JSON object found")
	}
	return &MalformedResponseError{
		Preview: truncateRunes(strings.TrimSpace(text), responsePreviewLimit),
		Err:     lastErr,
	}
}

func jsonCandidates(text string) []string {
	var candidates []string
	for _, match := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(match[1]); body != "" {
			candidates = append(candidates, body)
		}
	}

	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		candidates = append(candidates, trimmed)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	return candidates
}
