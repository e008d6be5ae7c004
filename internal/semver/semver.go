// Package semver wraps range satisfaction checks for npm-style version ranges.
package semver

import (
	mmsemver "github.com/Masterminds/semver/v3"
)

// Satisfies reports whether version falls within rng, with pre-release
// versions included in the match set: an installed pre-release build
// (e.g. 1.0.0-beta.1) satisfies a range like ^1.0.0 even though strict
// semver range semantics would exclude it.
//
// An unparsable version or range never satisfies.
func Satisfies(version, rng string) bool {
	v, err := mmsemver.NewVersion(version)
	if err != nil {
		return false
	}
	c, err := mmsemver.NewConstraint(rng)
	if err != nil {
		return false
	}
	if c.Check(v) {
		return true
	}
	if v.Prerelease() == "" {
		return false
	}
	// Ranges written without a pre-release marker reject all pre-releases
	// by default. Re-check against the release base so installed
	// pre-release builds still count.
	base, err := v.SetPrerelease("")
	if err != nil {
		return false
	}
	return c.Check(&base)
}

// ValidVersion reports whether s parses as a concrete semantic version.
func ValidVersion(s string) bool {
	_, err := mmsemver.NewVersion(s)
	return err == nil
}
