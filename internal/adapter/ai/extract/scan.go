// Package extract recovers structured interview results from model output that
// is supposed to be JSON but may be prose-wrapped, fenced or malformed.
package extract

import "strings"

// balancedEnd returns the index just past the bracket that closes s[start].
// Brackets inside JSON string literals are ignored. ok is false when the
// opening bracket is never closed.
func balancedEnd(s string, start int) (end int, ok bool) {
	var stack []byte
	inString, escaped := false, false
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// arrayCandidates returns, in order of appearance, every balanced "[ {...} ]"
// span of s. When no such span closes, the greedy span from the first "[{" to
// the last "]" is returned instead so truncated or mismatched output still
// reaches the cleaning stage.
func arrayCandidates(s string) []string {
	var out []string
	firstOpen := -1
	for i := 0; i < len(s); i++ {
		if s[i] != '[' || !nextNonSpaceIs(s, i+1, '{') {
			continue
		}
		if firstOpen < 0 {
			firstOpen = i
		}
		if end, ok := balancedEnd(s, i); ok {
			out = append(out, s[i:end])
			i = end - 1
		}
	}
	if len(out) == 0 && firstOpen >= 0 {
		if last := strings.LastIndexByte(s, ']'); last > firstOpen {
			out = append(out, s[firstOpen:last+1])
		}
	}
	return out
}

// objectCandidates returns every balanced "{...}" span of s, in order of
// appearance, that mentions all of keys. Each opening brace is tried, so an
// inner object is found even when an outer one is unbalanced.
func objectCandidates(s string, keys ...string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end, ok := balancedEnd(s, i)
		if !ok {
			continue
		}
		span := s[i:end]
		if containsAll(span, keys) {
			out = append(out, span)
		}
	}
	return out
}

func nextNonSpaceIs(s string, from int, want byte) bool {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i] == want
		}
	}
	return false
}

func containsAll(s string, keys []string) bool {
	for _, k := range keys {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}
