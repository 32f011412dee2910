package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractFirstJSON returns the first complete JSON object embedded in s.
// Model output frequently wraps the object in markdown fences or
// surrounds it with prose; this is the single normalization boundary
// between raw model text and typed contracts. Returns ErrMalformed when
// no balanced object exists.
func ExtractFirstJSON(s string) (string, error) {
	s = stripFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no opening brace", ErrMalformed)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces", ErrMalformed)
}

// DecodeFirstJSON extracts the first JSON object in s and unmarshals it
// into out. Extraction failures are ErrMalformed; decode failures are
// ErrSchemaMismatch.
func DecodeFirstJSON(s string, out any) error {
	obj, err := ExtractFirstJSON(s)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// stripFences removes a leading/trailing markdown code fence if present.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	if end := strings.LastIndex(t, "```"); end >= 0 {
		t = t[:end]
	}
	return t
}
