package utils

import (
	"strconv"

	"commentservice/internal/apperr"
)

// ParseID parses a comment id path or query value. Ids are never negative.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, apperr.InvalidArgument("invalid comment id %q", s)
	}
	return id, nil
}

// IntOrDefault parses an optional integer query value named name. An empty
// value yields def.
func IntOrDefault(name, s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.InvalidArgument("%s must be an integer, got %q", name, s)
	}
	return i, nil
}
