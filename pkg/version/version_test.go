package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFormatsTag(t *testing.T) {
	tag := Resolve(1, 5)
	assert.Equal(t, "v1.5.0", tag.String())
	assert.Equal(t, "1.5.0", tag.Semver())
	assert.Equal(t, 1, tag.Major())
	assert.Equal(t, 5, tag.Minor())
}

func TestFromPackageVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.5.3", "v1.5.0"},
		{"v1.5.3", "v1.5.0"},
		{"1.6", "v1.6.0"},
		{"2.0.7-rc.1", "v2.0.0"},
		{"1.4.2+build.9", "v1.4.0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tag, err := FromPackageVersion(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag.String())
		})
	}
}

func TestFromPackageVersionMinorChangeChangesTag(t *testing.T) {
	a, err := FromPackageVersion("1.5.9")
	require.NoError(t, err)
	b, err := FromPackageVersion("1.6.9")
	require.NoError(t, err)

	assert.Equal(t, "v1.5.0", a.String())
	assert.Equal(t, "v1.6.0", b.String())
}

func TestFromPackageVersionRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "1", "one.two", "1.x.0", "1.2.3.4"} {
		_, err := FromPackageVersion(in)
		assert.Error(t, err, in)
	}
}

func TestSatisfied(t *testing.T) {
	tag := Resolve(1, 5)

	assert.True(t, tag.Satisfied("1.5.0"))
	assert.True(t, tag.Satisfied("1.5.1"))
	assert.True(t, tag.Satisfied("1.6.0"))
	assert.True(t, tag.Satisfied("1.5.1-2ubuntu1"))
	assert.False(t, tag.Satisfied("1.4.3"))
	assert.False(t, tag.Satisfied("2.0.0"))
	assert.False(t, tag.Satisfied("garbage"))
	assert.False(t, tag.Satisfied(""))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "v1.5.0", Canonical("1.5"))
	assert.Equal(t, "v1.5.1", Canonical("v1.5.1"))
	assert.Equal(t, "v1.5.1", Canonical("1.5.1#3"))
	assert.Equal(t, "", Canonical("latest"))
}
