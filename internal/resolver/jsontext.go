package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var errEmptyJSON = errors.New("empty JSON input")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseJSON decodes a complete JSON document. Trailing data is an error.
func parseJSON(data []byte) (any, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return nil, errEmptyJSON
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EmbeddedCandidates returns the substrings of text that may hold an
// embedded JSON object, most specific first: the balanced object starting
// at the first '{', then the span from the first '{' to the last '}'.
// Duplicates are dropped.
func EmbeddedCandidates(text string) []string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil
	}

	var candidates []string
	if end := matchingBrace(text, start); end > start {
		candidates = append(candidates, text[start:end+1])
	}
	if last := strings.LastIndexByte(text, '}'); last > start {
		span := text[start : last+1]
		if len(candidates) == 0 || candidates[0] != span {
			candidates = append(candidates, span)
		}
	}
	return candidates
}

// matchingBrace returns the index of the '}' closing the '{' at start,
// skipping braces inside JSON strings, or -1 if unbalanced.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// repairObject runs candidate through jsonrepair and accepts the result only
// if it decodes to a JSON object.
func repairObject(candidate string) (map[string]any, error) {
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return nil, err
	}
	v, err := parseJSON([]byte(repaired))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("repaired JSON is not an object")
	}
	return obj, nil
}
