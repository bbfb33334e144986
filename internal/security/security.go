// Package security holds input sanitization and validation helpers shared by
// the persistence and web layers.
package security

import (
	"html"
	"regexp"
	"strings"
)

// Sanitize HTML-escapes string content recursively: plain strings, map
// values, and slice elements. Non-string leaves pass through untouched.
func Sanitize(v any) any {
	switch val := v.(type) {
	case string:
		return html.EscapeString(strings.TrimSpace(val))
	case map[string]any:
		clean := make(map[string]any, len(val))
		for k, item := range val {
			clean[k] = Sanitize(item)
		}
		return clean
	case []any:
		clean := make([]any, len(val))
		for i, item := range val {
			clean[i] = Sanitize(item)
		}
		return clean
	case []string:
		clean := make([]string, len(val))
		for i, item := range val {
			clean[i] = html.EscapeString(strings.TrimSpace(item))
		}
		return clean
	default:
		return v
	}
}

// Unsanitize reverses HTML escaping for display contexts that render plain
// text.
func Unsanitize(s string) string {
	return html.UnescapeString(s)
}

var mutatingKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "CREATE", "ALTER"}

// SuspiciousKeyword reports a mutating SQL keyword appearing in a statement
// that carries no parameter placeholders. It is a pattern-based heuristic
// known to both over- and under-trigger; callers treat it as a best-effort
// secondary guard on top of parameterization, never a primary defense.
func SuspiciousKeyword(query string) (string, bool) {
	if strings.Contains(query, "?") {
		return "", false
	}
	upper := strings.ToUpper(query)
	for _, kw := range mutatingKeywords {
		if strings.Contains(upper, " "+kw+" ") {
			return kw, true
		}
	}
	return "", false
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether the address looks deliverable.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}
