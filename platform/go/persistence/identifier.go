package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// normalizeIdentifier trims the input and enforces a lowercase snake_case identifier that is safe to embed in SQL.
func normalizeIdentifier(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("identifier is required")
	}

	if !identifierPattern.MatchString(trimmed) {
		return "", fmt.Errorf("invalid identifier %q: must match ^[a-z][a-z0-9_]*$", trimmed)
	}

	return trimmed, nil
}
