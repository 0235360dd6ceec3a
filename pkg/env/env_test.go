package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDebianTreeLookup(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "usr", "include", "chromaprint.h"), "")
	touch(t, filepath.Join(root, "usr", "lib", "x86_64-linux-gnu", "libchromaprint.so.1.5.1"), "")
	touch(t, filepath.Join(root, "usr", "lib", "x86_64-linux-gnu", "libchromaprint.a"), "")
	touch(t, filepath.Join(root, "usr", "lib", "x86_64-linux-gnu", "pkgconfig", "libchromaprint.pc"),
		"prefix=/usr\nName: chromaprint\nVersion: 1.5.1\nLibs: -lchromaprint\n")

	e := New(root, LayoutDpkg, "linux", "amd64")

	assert.Equal(t, filepath.Join(root, "usr", "include"), e.FindHeader("chromaprint.h"))
	assert.Equal(t, "", e.FindHeader("fftw3.h"))

	shared := e.FindSharedLibrary("chromaprint")
	require.NotNil(t, shared)
	assert.False(t, shared.IsStatic)
	assert.Equal(t, filepath.Join(root, "usr", "lib", "x86_64-linux-gnu"), shared.Dir)

	static := e.FindStaticLibrary("chromaprint")
	require.NotNil(t, static)
	assert.True(t, static.IsStatic)

	assert.Equal(t, "1.5.1", e.PkgConfigVersion("libchromaprint"))
	assert.Equal(t, "", e.PkgConfigVersion("fftw3"))
	assert.Equal(t, []string{"chromaprint"}, e.ListLibraryNames())
}

func TestFlatTreeOnDarwin(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "include", "chromaprint.h"), "")
	touch(t, filepath.Join(root, "lib", "libchromaprint.1.dylib"), "")

	e := New(root, LayoutFlat, "darwin", "arm64")

	lib := e.FindSharedLibrary("chromaprint")
	require.NotNil(t, lib)
	assert.Equal(t, ".dylib", lib.Type)
	assert.Nil(t, e.FindStaticLibrary("chromaprint"))
	assert.Equal(t, []string{filepath.Join(root, "include")}, e.GetIncludePaths())
	assert.Equal(t, []string{filepath.Join(root, "lib")}, e.GetLibraryPaths())
}

func TestVcpkgTreeUsesWindowsNames(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "lib", "chromaprint.lib"), "")

	e := New(root, LayoutVcpkg, "windows", "amd64")
	lib := e.FindStaticLibrary("chromaprint")
	require.NotNil(t, lib)
	assert.Equal(t, filepath.Join(root, "lib", "chromaprint.lib"), lib.Path)
	assert.Equal(t, []string{"chromaprint"}, e.ListLibraryNames())
}

func TestMissingDirectoriesAreSkipped(t *testing.T) {
	e := New(t.TempDir(), LayoutRPM, "linux", "amd64")
	assert.Empty(t, e.GetLibraryPaths())
	assert.Empty(t, e.GetIncludePaths())
	assert.Nil(t, e.FindSharedLibrary("chromaprint"))
	assert.Empty(t, e.ListLibraryNames())
}
