package orchestrator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parsePlanningJSON turns a raw LLM reply into a decoded JSON value,
// tolerating the usual model formatting accidents: markdown fences,
// prose around the object, raw control characters inside string
// literals, and double-encoded JSON.
func parsePlanningJSON(raw string) (interface{}, error) {
	candidates := []string{stripCodeFences(raw)}

	if span := largestBalancedSpan(candidates[0], '{', '}'); span != "" {
		candidates = append(candidates, span)
	}
	if span := largestBalancedSpan(candidates[0], '[', ']'); span != "" {
		candidates = append(candidates, span)
	}

	var lastErr error
	for _, c := range candidates {
		for _, attempt := range []string{c, escapeControlChars(c), unquoteDoubleEncoded(c)} {
			if attempt == "" {
				continue
			}
			var v interface{}
			if err := json.Unmarshal([]byte(attempt), &v); err != nil {
				lastErr = err
				continue
			}
			switch v.(type) {
			case map[string]interface{}, []interface{}:
				return v, nil
			}
			lastErr = fmt.Errorf("planning response is not an object or array")
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty planning response")
	}
	return nil, lastErr
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// largestBalancedSpan returns the longest substring opening with open and
// closing with its balanced close, tracking string literals and escapes.
func largestBalancedSpan(s string, open, close byte) string {
	best := ""
	for start := 0; start < len(s); start++ {
		if s[start] != open {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			ch := s[i]
			if escaped {
				escaped = false
				continue
			}
			switch {
			case ch == '\\' && inString:
				escaped = true
			case ch == '"':
				inString = !inString
			case !inString && ch == open:
				depth++
			case !inString && ch == close:
				depth--
				if depth == 0 {
					if i+1-start > len(best) {
						best = s[start : i+1]
					}
					i = len(s)
				}
			}
		}
	}
	return best
}

// escapeControlChars escapes raw newlines, carriage returns, and tabs that
// appear inside string literals, a common LLM emission bug.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			b.WriteByte(ch)
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			b.WriteByte(ch)
			escaped = true
		case ch == '"':
			inString = !inString
			b.WriteByte(ch)
		case inString && ch == '\n':
			b.WriteString(`\n`)
		case inString && ch == '\r':
			b.WriteString(`\r`)
		case inString && ch == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// unquoteDoubleEncoded handles replies that are a JSON string containing
// JSON, e.g. "\"{\\\"status\\\": 0}\"".
func unquoteDoubleEncoded(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ""
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return ""
	}
	return unquoted
}
