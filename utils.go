package entitycore

import (
	"regexp"
)

var (
	typeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	uuidPattern     = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// IsValidTypeName reports whether name is a usable collection key:
// lowercase, starts with a letter, letters/digits/underscores only.
// Names are immutable once a type is created.
func IsValidTypeName(name string) bool {
	return typeNamePattern.MatchString(name)
}

// IsUUID reports whether s looks like a canonical hex UUID.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	return uuidPattern.MatchString(s)
}
