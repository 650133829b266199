package cache

import (
	"fmt"
	"time"
)

// versionLayout is the stamp format for entry versions. It is zero-padded
// and fixed-width, which is what makes lexicographic order equal to time
// order; anything that does not parse against it is excluded from ordering
// decisions rather than silently mis-sorted.
const versionLayout = "20060102_150405"

// Latest is the version sentinel that resolves to the newest stamp for a
// key. An empty version string is treated the same way.
const Latest = "latest"

// NewVersionStamp formats t as a version string with second resolution.
func NewVersionStamp(t time.Time) string {
	return t.Format(versionLayout)
}

// ParseVersion returns the time a version stamp encodes, or an error when
// the string is not a valid stamp.
func ParseVersion(version string) (time.Time, error) {
	t, err := time.Parse(versionLayout, version)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid version %q: %w", version, err)
	}
	return t, nil
}

// IsVersionStamp reports whether version is a well-formed stamp.
func IsVersionStamp(version string) bool {
	_, err := ParseVersion(version)
	return err == nil
}

// isLatest reports whether the requested version resolves to the newest one.
func isLatest(version string) bool {
	return version == "" || version == Latest
}
