package domain

import (
	"github.com/Masterminds/semver/v3"
)

// Version wraps semver.Version for additional methods.
type Version struct {
	*semver.Version
}

// NewVersion creates a new Version from a string.
func NewVersion(s string) (*Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// IsSemver reports whether s parses as a semantic version.
func IsSemver(s string) bool {
	_, err := semver.NewVersion(s)
	return err == nil
}

// GreaterThan reports whether v sorts after other.
func (v *Version) GreaterThan(other *Version) bool {
	return v.Version.GreaterThan(other.Version)
}

// Compare compares two versions.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// String returns the version string with v prefix.
func (v *Version) String() string {
	return "v" + v.Version.String()
}
