package chromabuild

import (
	"bytes"
	"context"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/chromabuild/pkg/command/commandtest"
	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/directive"
	"github.com/arc-language/chromabuild/pkg/platform"
)

type fakeLocator struct {
	name    string
	outcome core.Outcome
	calls   int
}

func (f *fakeLocator) Name() string { return f.name }

func (f *fakeLocator) Locate(ctx context.Context, spec core.DependencySpec) core.Outcome {
	f.calls++
	return f.outcome
}

func headerDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("pkg", "bindgen", "testdata"))
	require.NoError(t, err)
	return dir
}

func testConfig(t *testing.T, goos string) *Config {
	cfg := DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.Target = core.TargetConfig{OS: goos, Arch: "amd64"}
	return cfg
}

func found(t *testing.T, strategy string) core.Outcome {
	return core.Found(&core.Result{
		Strategy:        strategy,
		Version:         "1.5.1",
		IncludePaths:    []string{headerDir(t)},
		LinkMode:        core.LinkDynamic,
		LinkSearchPaths: []string{"/usr/lib/x86_64-linux-gnu"},
		Libraries:       []string{"chromaprint"},
	})
}

func TestStrategyOrder(t *testing.T) {
	p, err := NewPipeline(&Options{Config: testConfig(t, "linux")})
	require.NoError(t, err)
	assert.Equal(t, []platform.Strategy{platform.StrategyPkgConfig, platform.StrategySource}, p.Strategies())

	cfg := testConfig(t, "windows")
	cfg.Prebuilt = "chromaprint.tar.gz"
	p, err = NewPipeline(&Options{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, []platform.Strategy{platform.StrategyPrebuilt, platform.StrategyVcpkg, platform.StrategySource}, p.Strategies())
}

func TestRunFirstResultWins(t *testing.T) {
	cfg := testConfig(t, "linux")
	system := &fakeLocator{name: "pkg-config", outcome: found(t, "pkg-config")}
	build := &fakeLocator{name: "source", outcome: found(t, "source")}

	var stdout bytes.Buffer
	p, err := NewPipeline(&Options{
		Config: cfg,
		Stdout: &stdout,
		Locators: map[platform.Strategy]core.Locator{
			platform.StrategyPkgConfig: system,
			platform.StrategySource:    build,
		},
	})
	require.NoError(t, err)

	art, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, system.calls)
	assert.Equal(t, 0, build.calls)
	assert.Equal(t, "pkg-config", art.Result.Strategy)
	assert.Equal(t, filepath.Join(headerDir(t), "chromaprint.h"), art.Header)

	assert.Equal(t, strings.Join([]string{
		"chromabuild:include=" + headerDir(t),
		"chromabuild:link-search=native=/usr/lib/x86_64-linux-gnu",
		"chromabuild:link-lib=dylib=chromaprint",
	}, "\n")+"\n", stdout.String())

	src, err := os.ReadFile(filepath.Join(cfg.OutDir, "bindings.go"))
	require.NoError(t, err)
	assert.Equal(t, art.Source, src)

	file, err := parser.ParseFile(token.NewFileSet(), "bindings.go", src, 0)
	require.NoError(t, err)
	assert.Equal(t, "chromaprint", file.Name.Name)
	var funcs int
	for _, decl := range file.Decls {
		if _, ok := decl.(*ast.FuncDecl); ok {
			funcs++
		}
	}
	assert.Equal(t, 23, funcs)

	m, err := directive.ReadManifest(filepath.Join(cfg.OutDir, "link.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "v1.5.0", m.Tag)
	assert.Equal(t, "pkg-config", m.Strategy)
	assert.Equal(t, art.Directives, m.Directives)
}

func TestRunUnresolvedLeavesNoBinding(t *testing.T) {
	cfg := testConfig(t, "linux")
	stale := filepath.Join(cfg.OutDir, "bindings.go")
	require.NoError(t, os.WriteFile(stale, []byte("package chromaprint\n"), 0644))

	var stdout bytes.Buffer
	p, err := NewPipeline(&Options{
		Config: cfg,
		Stdout: &stdout,
		Locators: map[platform.Strategy]core.Locator{
			platform.StrategyPkgConfig: &fakeLocator{name: "pkg-config", outcome: core.NotFound("pkg-config not installed")},
			platform.StrategySource:    &fakeLocator{name: "source", outcome: core.NotFound("checkout failed")},
		},
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.ErrorIs(t, err, ErrUnresolved)

	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, []Miss{
		{Strategy: "pkg-config", Reason: "pkg-config not installed"},
		{Strategy: "source", Reason: "checkout failed"},
	}, unresolved.Misses)

	assert.NoFileExists(t, stale)
	assert.Empty(t, stdout.String())
}

func TestRunFailureStopsSearch(t *testing.T) {
	boom := errors.New("git clone: connection refused")
	cfg := testConfig(t, "linux")
	cfg.Prebuilt = "chromaprint.deb"
	later := &fakeLocator{name: "pkg-config", outcome: found(t, "pkg-config")}

	p, err := NewPipeline(&Options{
		Config: cfg,
		Locators: map[platform.Strategy]core.Locator{
			platform.StrategyPrebuilt:  &fakeLocator{name: "prebuilt", outcome: core.Failed(boom)},
			platform.StrategyPkgConfig: later,
		},
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, later.calls)
	assert.NoFileExists(t, p.BindingsPath())
}

func TestVDSPOnLinuxRunsNoCommands(t *testing.T) {
	cfg := testConfig(t, "linux")
	cfg.FFT = "vdsp"
	rec := commandtest.NewRecorder("pkg-config", "cmake")

	_, err := NewPipeline(&Options{Config: cfg, Runner: rec})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, core.ErrPlatformMismatch)
	assert.Empty(t, rec.Calls())
}

func TestInTreeCheckoutFailureIsOnlyFatalWhenUnresolved(t *testing.T) {
	cfg := testConfig(t, "linux")
	cfg.Source.Mode = core.SourceInTree
	cfg.Source.VendorDir = t.TempDir() // not a git repository
	cfg.PkgConfig.Disabled = true
	rec := commandtest.NewRecorder("cmake")

	p, err := NewPipeline(&Options{Config: cfg, Runner: rec})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "checkout failed")
	assert.Empty(t, rec.Calls())

	// With a prebuilt copy available the checkout is never attempted
	cfg.Prebuilt = "chromaprint.tar.gz"
	p, err = NewPipeline(&Options{
		Config: cfg,
		Runner: rec,
		Stdout: &bytes.Buffer{},
		Locators: map[platform.Strategy]core.Locator{
			platform.StrategyPrebuilt: &fakeLocator{name: "prebuilt", outcome: found(t, "prebuilt")},
		},
	})
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)
}

func TestDefines(t *testing.T) {
	spec := core.DependencySpec{Target: platform.Target{OS: "windows", Arch: "amd64"}}
	assert.Equal(t, []string{"_WIN32"}, Defines(spec))
	spec.Static = true
	assert.Equal(t, []string{"_WIN32", "CHROMAPRINT_NODLL"}, Defines(spec))

	spec.Target.OS = "darwin"
	assert.Contains(t, Defines(spec), "__APPLE__")
}
