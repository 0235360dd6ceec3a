package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/chromabuild/pkg/core"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return Execute(context.Background())
}

func TestConfigLayering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "chromabuild.yaml")
	cfg := core.DefaultConfig()
	cfg.FFT = "fftw3"
	cfg.PackageVersion = "1.4.3"
	require.NoError(t, core.SaveConfig(cfg, cfgPath))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("CHROMABUILD_SOURCE_MODE=intree\n"), 0644))
	t.Setenv("CHROMABUILD_PACKAGE_VERSION", "1.5.2")
	t.Cleanup(func() { os.Unsetenv("CHROMABUILD_SOURCE_MODE") })

	err := execute(t, "config", "--config", cfgPath, "--env-file", envPath, "--static", "--out-dir", dir)
	require.NoError(t, err)

	assert.Equal(t, "fftw3", config.FFT)
	assert.Equal(t, "1.5.2", config.PackageVersion)
	assert.Equal(t, core.SourceInTree, config.Source.Mode)
	assert.True(t, config.Static)
	assert.Equal(t, dir, config.OutDir)
}

func TestBindgenCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bindings.go")
	header, err := filepath.Abs(filepath.Join("..", "..", "pkg", "bindgen", "testdata", "chromaprint.h"))
	require.NoError(t, err)

	err = execute(t, "bindgen", header, "-o", out, "--package", "fp", "--trim-prefix", "chromaprint_",
		"--config", filepath.Join(t.TempDir(), "none.yaml"), "--env-file", "")
	require.NoError(t, err)

	src, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package fp")
	assert.Contains(t, string(src), "func GetVersion(")
}

func TestInvalidFFTIsRejected(t *testing.T) {
	err := execute(t, "strategies", "--fft", "fftw3,kissfft",
		"--config", filepath.Join(t.TempDir(), "none.yaml"), "--env-file", "")
	assert.ErrorIs(t, err, core.ErrInvalidFFT)
}
