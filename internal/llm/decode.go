package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrMalformedOutput indicates structured output that could not be parsed as JSON.
var ErrMalformedOutput = errors.New("malformed structured output")

// DecodeJSON parses a structured completion into out. Output that is not valid
// JSON (code fences, single quotes, trailing commas) is repaired first.
func DecodeJSON(raw string, out any) error {
	text := stripCodeFence(raw)
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	if !json.Valid([]byte(text)) {
		repaired, err := jsonrepair.JSONRepair(text)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		text = repaired
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json ... ``` block.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
