package jsonutil

import (
	"encoding/json"
	"strings"
)

// ParseOrDefault unmarshals raw into T, returning def when raw is not valid
// JSON for T. Model output is parsed through this so a malformed response
// degrades to the call site's documented default instead of failing the
// request.
func ParseOrDefault[T any](raw string, def T) T {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return def
	}
	return v
}

// Clean strips markdown code fences and surrounding prose from model output,
// returning the first complete JSON value found. Returns the input unchanged
// when no JSON value is present.
func Clean(s string) string {
	s = stripCodeFences(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	s = s[start:]
	if end := findJSONEnd(s); end >= 0 {
		return s[:end+1]
	}
	return s
}

func stripCodeFences(s string) string {
	for {
		open := strings.Index(s, "```")
		if open < 0 {
			return s
		}
		rest := s[open+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			return s
		}
		content := rest[:end]
		// drop the language identifier line (e.g. "json")
		if nl := strings.Index(content, "\n"); nl >= 0 {
			content = content[nl+1:]
		}
		s = s[:open] + content + rest[end+3:]
	}
}

// findJSONEnd returns the index of the brace closing the first JSON value,
// honoring strings and escapes.
func findJSONEnd(s string) int {
	depth := 0
	inString := false
	escape := false

	for i, c := range s {
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\':
			escape = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
