package transcription

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ibebio/herb-transcribe/internal/models"
)

// ErrMalformedRecord is returned when a response cannot be read as a
// two-group record.
var ErrMalformedRecord = errors.New("malformed transcription record")

const snippetLimit = 200

// ParseRecord decodes a provider response into a record. Code fences and
// prose around the JSON object are tolerated.
func ParseRecord(response string) (*models.Record, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedRecord)
	}

	record, directErr := decodeRecord(trimmed)
	if directErr == nil {
		return record, nil
	}

	unwrapped := unwrapPayload(trimmed)
	if unwrapped == "" || unwrapped == trimmed {
		return nil, fmt.Errorf("%w: %v (payload snippet: %s)", ErrMalformedRecord, directErr, snippet(trimmed))
	}

	record, err := decodeRecord(unwrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (unwrapped payload snippet: %s)", ErrMalformedRecord, err, snippet(unwrapped))
	}
	return record, nil
}

func decodeRecord(payload string) (*models.Record, error) {
	var record models.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	if record.Label == nil {
		return nil, errors.New("missing label group")
	}
	if record.Metadata == nil {
		record.Metadata = models.Fields{}
	}
	// image_path is assigned by the caller, never trusted from the model.
	record.ImagePath = ""
	return &record, nil
}

// unwrapPayload strips markdown code fences and slices out the outermost
// JSON object.
func unwrapPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return trimmed
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

func stripCodeFence(content string) string {
	start := strings.Index(content, "```")
	if start < 0 {
		return content
	}
	rest := content[start+3:]
	// Drop the language tag on the opening fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > snippetLimit {
		return s[:snippetLimit] + "..."
	}
	return s
}
