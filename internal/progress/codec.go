package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotAMap is returned by Decode when the payload is not a JSON object.
var ErrNotAMap = errors.New("progress payload is not an object")

// Decode parses a stored progress payload.
//
// The payload must be a JSON object keyed by book ID. Null entries and
// entries that are not objects are dropped. An entry without a bookId takes
// its key. An entry without a lastIndex resumes at its last learned word.
func Decode(data []byte) (Map, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAMap
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}

	out := make(Map, len(raw))
	for key, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '{' {
			continue
		}
		var entry BookProgress
		if err := json.Unmarshal(value, &entry); err != nil {
			continue
		}
		var probe struct {
			LastIndex *int `json:"lastIndex"`
		}
		if json.Unmarshal(value, &probe) == nil && probe.LastIndex == nil && entry.LearnedWords != nil {
			entry.LastIndex = *entry.LearnedWords - 1
		}
		if entry.BookID == "" {
			entry.BookID = key
		}
		if entry.LastIndex < 0 {
			entry.LastIndex = 0
		}
		out[key] = entry
	}
	return out, nil
}

// Encode serialises a map for storage. A nil map encodes as an empty object.
func Encode(m Map) ([]byte, error) {
	if m == nil {
		m = Map{}
	}
	return json.Marshal(m)
}
