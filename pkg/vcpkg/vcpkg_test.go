package vcpkg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/version"
)

const status = `Package: fftw3
Version: 3.3.10
Port-Version: 8
Architecture: x64-windows
Multi-Arch: same
Abi: 1f0c
Status: install ok installed

Package: chromaprint
Version: 1.5.1
Port-Version: 3
Depends: fftw3
Architecture: x64-windows
Multi-Arch: same
Abi: 9a2e
Description: C library for generating audio fingerprints used by AcoustID
    and MusicBrainz.
Status: install ok installed

Package: chromaprint
Feature: tools
Architecture: x64-windows
Status: install ok installed

Package: chromaprint
Version: 1.4.3
Architecture: x64-windows-static
Status: install ok installed
`

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"installed/vcpkg/status":                             status,
		"installed/x64-windows/include/chromaprint.h":        "",
		"installed/x64-windows/lib/chromaprint.lib":          "",
		"installed/x64-windows/bin/chromaprint.dll":          "",
		"installed/x64-windows-static/include/chromaprint.h": "",
		"installed/x64-windows-static/lib/chromaprint.lib":   "",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func spec(static bool) core.DependencySpec {
	return core.DependencySpec{
		Name:   core.DependencyName,
		Tag:    version.Resolve(1, 5),
		Static: static,
		Target: platform.Target{OS: "windows", Arch: "amd64"},
	}
}

func TestParseStatus(t *testing.T) {
	entries, err := ParseStatus(strings.NewReader(status))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	e := Find(entries, "chromaprint", "x64-windows")
	require.NotNil(t, e)
	assert.Equal(t, "1.5.1", e.Version)
	assert.Equal(t, "3", e.PortVersion)
	assert.Empty(t, e.Feature)

	assert.Nil(t, Find(entries, "chromaprint", "arm64-windows"))
	assert.Nil(t, Find(entries, "ffmpeg", "x64-windows"))
}

func TestFindHonoursRemoval(t *testing.T) {
	entries, err := ParseStatus(strings.NewReader(status + `
Package: chromaprint
Version: 1.5.1
Architecture: x64-windows
Status: purge ok not-installed
`))
	require.NoError(t, err)
	assert.Nil(t, Find(entries, "chromaprint", "x64-windows"))
}

func TestTriplet(t *testing.T) {
	assert.Equal(t, "x64-windows", Triplet(spec(false)))
	assert.Equal(t, "x64-windows-static", Triplet(spec(true)))

	s := spec(false)
	s.Target.Arch = "arm64"
	assert.Equal(t, "arm64-windows", Triplet(s))
	s.Target.Arch = "386"
	assert.Equal(t, "x86-windows", Triplet(s))
}

func TestLocateDynamic(t *testing.T) {
	root := writeTree(t)
	outcome := New(&Config{Root: root}).Locate(context.Background(), spec(false))

	require.Equal(t, core.StatusFound, outcome.Status, outcome.Reason)
	r := outcome.Result
	assert.Equal(t, "vcpkg", r.Strategy)
	assert.Equal(t, "1.5.1", r.Version)
	assert.Equal(t, []string{filepath.Join(root, "installed", "x64-windows", "include")}, r.IncludePaths)
	assert.Equal(t, []string{filepath.Join(root, "installed", "x64-windows", "lib")}, r.LinkSearchPaths)
	assert.Equal(t, []string{"chromaprint"}, r.Libraries)
}

func TestLocateMisses(t *testing.T) {
	root := writeTree(t)

	// The static triplet only carries 1.4.3
	outcome := New(&Config{Root: root}).Locate(context.Background(), spec(true))
	assert.Equal(t, core.StatusNotFound, outcome.Status)
	assert.Contains(t, outcome.Reason, "1.4.3")

	outcome = New(&Config{}).Locate(context.Background(), spec(false))
	assert.Equal(t, core.StatusNotFound, outcome.Status)

	outcome = New(&Config{Root: t.TempDir()}).Locate(context.Background(), spec(false))
	assert.Equal(t, core.StatusNotFound, outcome.Status)

	outcome = New(&Config{Root: root, Triplet: "arm64-windows"}).Locate(context.Background(), spec(false))
	assert.Equal(t, core.StatusNotFound, outcome.Status)
	assert.Contains(t, outcome.Reason, "arm64-windows")

	require.NoError(t, os.Remove(filepath.Join(root, "installed", "x64-windows", "include", "chromaprint.h")))
	outcome = New(&Config{Root: root}).Locate(context.Background(), spec(false))
	assert.Equal(t, core.StatusNotFound, outcome.Status)
	assert.Contains(t, outcome.Reason, "chromaprint.h")
}
