// Package version maps the consuming package's version onto the chromaprint
// release tag it binds.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// DefaultPackageVersion is used when no package version is configured.
const DefaultPackageVersion = "1.5.1"

// Tag is a pinned chromaprint release tag such as "v1.5.0".
type Tag struct {
	major int
	minor int
}

// Resolve returns the tag v{major}.{minor}.0.
func Resolve(major, minor int) Tag {
	return Tag{major: major, minor: minor}
}

// FromPackageVersion parses a package version ("1.5.3", "v1.5.3", "1.5")
// and resolves its tag. Only major and minor are significant.
func FromPackageVersion(s string) (Tag, error) {
	v := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if v == "" {
		return Tag{}, fmt.Errorf("empty package version")
	}

	// Drop pre-release and build metadata
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}

	parts := strings.Split(v, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Tag{}, fmt.Errorf("package version %q: want major.minor[.patch]", s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Tag{}, fmt.Errorf("package version %q: bad component %q", s, p)
		}
		nums[i] = n
	}

	return Resolve(nums[0], nums[1]), nil
}

// Major returns the major component.
func (t Tag) Major() int { return t.major }

// Minor returns the minor component.
func (t Tag) Minor() int { return t.minor }

// String returns the git tag, e.g. "v1.5.0".
func (t Tag) String() string {
	return "v" + t.Semver()
}

// Semver returns the version without the leading "v", e.g. "1.5.0".
func (t Tag) Semver() string {
	return fmt.Sprintf("%d.%d.0", t.major, t.minor)
}

// IsZero reports whether the tag was never resolved.
func (t Tag) IsZero() bool {
	return t == Tag{}
}

// Satisfied reports whether an installed version can stand in for the tag:
// same major version and not older.
func (t Tag) Satisfied(found string) bool {
	fv := Canonical(found)
	if fv == "" {
		return false
	}
	want := t.String()
	return semver.Major(fv) == semver.Major(want) && semver.Compare(fv, want) >= 0
}

// AtLeast reports whether the tag is at or above another version string.
func (t Tag) AtLeast(v string) bool {
	cv := Canonical(v)
	if cv == "" {
		return false
	}
	return semver.Compare(t.String(), cv) >= 0
}

// Canonical normalises "1.5", "v1.5.1", "1.5.1-2ubuntu1" into a semver
// string with a leading "v", or "" when it cannot be read.
func Canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.HasPrefix(s, "v") {
		s = "v" + s
	}
	// Debian/vcpkg revision suffixes ("-2ubuntu1", "#3") are not semver pre-releases
	if i := strings.IndexAny(s, "-#~"); i >= 0 {
		s = s[:i]
	}
	if !semver.IsValid(s) {
		return ""
	}
	return semver.Canonical(s)
}
