package config

import (
	"golang.org/x/mod/semver"
)

// ParseMajorMinor parses a "major.minor" version such as "7.5" into its
// semver shorthand "v7.5", which orders with semver.Compare.
func ParseMajorMinor(s string) (string, bool) {
	v := "v" + s
	if !semver.IsValid(v) || semver.MajorMinor(v) != v {
		return "", false
	}
	return v, true
}
