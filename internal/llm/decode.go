package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned by DecodeJSON when the text holds no JSON value.
var ErrNoJSON = errors.New("no JSON object in text")

// DecodeJSON strictly decodes a JSON object from model output into v.
// Surrounding prose and ```json fences are tolerated; type mismatches are
// not. Callers substitute their own defaults when it fails.
func DecodeJSON(text string, v any) error {
	payload := extractObject(stripFences(text))
	if payload == "" {
		return ErrNoJSON
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// Drop the language tag line.
		text = text[nl+1:]
	}
	text = strings.TrimSpace(text)
	return strings.TrimSuffix(text, "```")
}

// extractObject returns the span from the first '{' to the last '}'.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
