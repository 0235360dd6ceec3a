package prebuilt

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/registry"
	"github.com/arc-language/chromabuild/pkg/version"
)

func header(major, minor int) string {
	return fmt.Sprintf(`#ifndef CHROMAPRINT_CHROMAPRINT_H_
#define CHROMAPRINT_CHROMAPRINT_H_
#define CHROMAPRINT_VERSION_MAJOR %d
#define CHROMAPRINT_VERSION_MINOR %d
#define CHROMAPRINT_VERSION_PATCH 1
const char *chromaprint_get_version(void);
#endif
`, major, minor)
}

// writeTarball packs files under a top-level directory, as release tarballs do
func writeTarball(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "chromaprint-1.5.1-linux-x86_64/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(dir, "chromaprint-1.5.1-linux-x86_64.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func spec(static bool, fft core.FFT) core.DependencySpec {
	return core.DependencySpec{
		Name:   core.DependencyName,
		Tag:    version.Resolve(1, 5),
		Static: static,
		FFT:    fft,
		Target: platform.Target{OS: "linux", Arch: "amd64"},
	}
}

func locate(t *testing.T, archivePath string, s core.DependencySpec) (core.Outcome, string) {
	t.Helper()
	out := t.TempDir()
	l := New(&Config{Archive: archivePath, OutDir: out})
	return l.Locate(context.Background(), s), out
}

func TestLocateTarballDynamic(t *testing.T) {
	archivePath := writeTarball(t, t.TempDir(), map[string]string{
		"include/chromaprint.h":       header(1, 5),
		"lib/libchromaprint.so.1.5.1": "",
		"lib/libchromaprint.a":        "",
	})

	outcome, out := locate(t, archivePath, spec(false, core.FFTDefault))
	require.Equal(t, core.StatusFound, outcome.Status, outcome.Reason)

	root := filepath.Join(out, "prebuilt", "chromaprint-1.5.1-linux-x86_64")
	r := outcome.Result
	assert.Equal(t, "prebuilt", r.Strategy)
	assert.Equal(t, "1.5.1", r.Version)
	assert.Equal(t, []string{filepath.Join(root, "include")}, r.IncludePaths)
	assert.Equal(t, []string{filepath.Join(root, "lib")}, r.LinkSearchPaths)
	assert.Equal(t, []string{"chromaprint"}, r.Libraries)
	assert.Empty(t, r.SystemLibraries)
}

func TestLocateTarballStaticAddsExtras(t *testing.T) {
	archivePath := writeTarball(t, t.TempDir(), map[string]string{
		"include/chromaprint.h": header(1, 5),
		"lib/libchromaprint.a":  "",
	})

	outcome, _ := locate(t, archivePath, spec(true, core.FFTFFTW3))
	require.Equal(t, core.StatusFound, outcome.Status, outcome.Reason)
	assert.Equal(t, core.LinkStatic, outcome.Result.LinkMode)
	assert.Equal(t, []string{"chromaprint", "fftw3"}, outcome.Result.Libraries)
	assert.Equal(t, []string{"stdc++", "m"}, outcome.Result.SystemLibraries)

	// Only an archive: a dynamic request misses
	outcome, _ = locate(t, archivePath, spec(false, core.FFTDefault))
	assert.Equal(t, core.StatusNotFound, outcome.Status)
}

const renamedEntry = `
name = "chromaprint"
libs = ["chromaprint_fp"]
header = "chromaprint.h"
repository = "https://example.invalid/chromaprint.git"
cmake_target = "chromaprint_fp"

[backends]
pkg-config = "libchromaprint"

[[layouts]]
since = "v1.0.0"
root = "install"
header_dir = "include"

[fft.fftw3]
libs = ["fftw3"]

[static.linux]
system_libs = ["stdc++", "m"]
`

// renamedRegistry holds an entry whose library is not named after the package
func renamedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	entryDir := filepath.Join(dir, "deps", "chromaprint")
	require.NoError(t, os.MkdirAll(entryDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(entryDir, "index.toml"), []byte(renamedEntry), 0644))
	return registry.New(dir)
}

func TestLocateUsesRegistryLibraryName(t *testing.T) {
	archivePath := writeTarball(t, t.TempDir(), map[string]string{
		"include/chromaprint.h":          header(1, 5),
		"lib/libchromaprint_fp.so.1.5.1": "",
	})

	outcome, _ := locate(t, archivePath, spec(false, core.FFTDefault))
	assert.Equal(t, core.StatusNotFound, outcome.Status)

	l := New(&Config{Archive: archivePath, OutDir: t.TempDir(), Registry: renamedRegistry(t)})
	outcome = l.Locate(context.Background(), spec(false, core.FFTDefault))
	require.Equal(t, core.StatusFound, outcome.Status, outcome.Reason)
	assert.Equal(t, []string{"chromaprint_fp"}, outcome.Result.Libraries)
}

func TestLocatePrefersPkgConfigVersion(t *testing.T) {
	archivePath := writeTarball(t, t.TempDir(), map[string]string{
		"include/chromaprint.h":           header(1, 5),
		"lib/libchromaprint.so":           "",
		"lib/pkgconfig/libchromaprint.pc": "Name: chromaprint\nVersion: 1.6.0\n",
	})

	outcome, _ := locate(t, archivePath, spec(false, core.FFTDefault))
	require.Equal(t, core.StatusFound, outcome.Status, outcome.Reason)
	assert.Equal(t, "1.6.0", outcome.Result.Version)
}

func TestLocateVersionMismatchIsMiss(t *testing.T) {
	archivePath := writeTarball(t, t.TempDir(), map[string]string{
		"include/chromaprint.h": header(1, 4),
		"lib/libchromaprint.so": "",
	})

	outcome, _ := locate(t, archivePath, spec(false, core.FFTDefault))
	assert.Equal(t, core.StatusNotFound, outcome.Status)
	assert.Contains(t, outcome.Reason, "1.4.1")
}

func TestLocateMissingHeaderIsMiss(t *testing.T) {
	archivePath := writeTarball(t, t.TempDir(), map[string]string{
		"lib/libchromaprint.so": "",
	})

	outcome, _ := locate(t, archivePath, spec(false, core.FFTDefault))
	assert.Equal(t, core.StatusNotFound, outcome.Status)
	assert.Contains(t, outcome.Reason, "chromaprint.h")
}

func TestLocateUnreadableArchiveFails(t *testing.T) {
	dir := t.TempDir()

	outcome, _ := locate(t, filepath.Join(dir, "missing.tar.gz"), spec(false, core.FFTDefault))
	assert.Equal(t, core.StatusFailed, outcome.Status)

	corrupt := filepath.Join(dir, "corrupt.tar.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("not gzip"), 0644))
	outcome, _ = locate(t, corrupt, spec(false, core.FFTDefault))
	assert.Equal(t, core.StatusFailed, outcome.Status)
	assert.Error(t, outcome.Err)
}
