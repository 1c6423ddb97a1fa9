package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeLenient decodes model output that is supposed to be JSON but often
// is not quite: fenced in markdown, wrapped in prose, double-encoded as a
// JSON string, or containing literal newlines inside string literals. It
// tries progressively more aggressive recovery before giving up.
func DecodeLenient(text string, v any) error {
	cand := StripCodeFences(text)
	if cand == "" {
		return fmt.Errorf("empty content")
	}

	span := widestJSONSpan(cand)
	attempts := []string{cand, escapeNewlinesInStrings(cand)}
	if span != "" && span != cand {
		attempts = append(attempts, span, escapeNewlinesInStrings(span))
	}

	var lastErr error
	for _, attempt := range attempts {
		// A top-level JSON string means the payload was double-encoded;
		// unwrap and decode the inner document.
		var inner string
		if err := json.Unmarshal([]byte(attempt), &inner); err == nil {
			return DecodeLenient(inner, v)
		}

		if err := json.Unmarshal([]byte(attempt), v); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	return fmt.Errorf("unrecoverable JSON: %w", lastErr)
}

// StripCodeFences removes ```json ... ``` wrappers and trims whitespace.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// widestJSONSpan returns the widest brace or bracket span in s, whichever
// covers more of the text.
func widestJSONSpan(s string) string {
	objStart, objEnd := strings.Index(s, "{"), strings.LastIndex(s, "}")
	arrStart, arrEnd := strings.Index(s, "["), strings.LastIndex(s, "]")

	obj, arr := "", ""
	if objStart != -1 && objEnd > objStart {
		obj = s[objStart : objEnd+1]
	}
	if arrStart != -1 && arrEnd > arrStart {
		arr = s[arrStart : arrEnd+1]
	}
	if len(arr) > len(obj) {
		return arr
	}
	return obj
}

// escapeNewlinesInStrings replaces literal control characters that appear
// inside JSON string literals with their escaped forms.
func escapeNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case inString && r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r == '\n':
			b.WriteString(`\n`)
		case inString && r == '\r':
			b.WriteString(`\r`)
		case inString && r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
