package domain

import (
	"fmt"
	"strings"
)

const maxIdentifierLength = 255

// ReleaseID is the release identifier: the tag name and the token of the release commit message.
type ReleaseID string

// ParseReleaseID trims and validates a caller supplied identifier.
func ParseReleaseID(raw string) (ReleaseID, error) {
	id := ReleaseID(strings.TrimSpace(raw))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks that the identifier can be used both as a tag and as a branch name.
// The rules follow git check-ref-format for a single reference component.
func (id ReleaseID) Validate() error {
	s := string(id)
	if s == "" {
		return NewReleaseError(ErrorKindUsage, "validate identifier", ErrMissingIdentifier)
	}
	invalid := func(reason string) error {
		return NewReleaseError(ErrorKindUsage, "validate identifier",
			fmt.Errorf("%w %q: %s", ErrInvalidIdentifier, s, reason))
	}
	if len(s) > maxIdentifierLength {
		return invalid(fmt.Sprintf("longer than %d characters", maxIdentifierLength))
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "/") || strings.HasPrefix(s, ".") {
		return invalid("cannot start with '-', '/' or '.'")
	}
	if strings.HasSuffix(s, "/") || strings.HasSuffix(s, ".") || strings.HasSuffix(s, ".lock") {
		return invalid("cannot end with '/', '.' or '.lock'")
	}
	if strings.Contains(s, "..") || strings.Contains(s, "//") || strings.Contains(s, "@{") {
		return invalid("cannot contain '..', '//' or '@{'")
	}
	if s == "@" || s == "HEAD" {
		return invalid("reserved name")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return invalid(fmt.Sprintf("forbidden character %q", r))
		}
	}
	return nil
}

// Version parses the identifier as a semantic version.
func (id ReleaseID) Version() (*Version, error) {
	return NewVersion(string(id))
}

func (id ReleaseID) String() string {
	return string(id)
}
