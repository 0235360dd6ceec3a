// Package pkgconfig discovers an installed chromaprint through pkg-config.
package pkgconfig

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/command"
	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/registry"
)

// DefaultBinary is the pkg-config executable looked up on PATH
const DefaultBinary = "pkg-config"

// Config configures the pkg-config locator
type Config struct {
	Binary   string // pkg-config executable
	Module   string // .pc module, resolved through the registry when empty
	Runner   command.Runner
	Registry *registry.Registry
	Logger   logrus.FieldLogger
}

// Locator asks pkg-config for an installed chromaprint
type Locator struct {
	config *Config
	runner command.Runner
	logger logrus.FieldLogger
}

// New creates a pkg-config locator
func New(cfg *Config) *Locator {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New("")
	}

	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	runner := cfg.Runner
	if runner == nil {
		runner = command.NewExec(&command.Config{Logger: logger})
	}

	return &Locator{
		config: cfg,
		runner: runner,
		logger: logger.WithField("strategy", string(platform.StrategyPkgConfig)),
	}
}

// Name implements core.Locator
func (l *Locator) Name() string {
	return string(platform.StrategyPkgConfig)
}

func (l *Locator) query(ctx context.Context, args ...string) (string, error) {
	out, err := l.runner.Output(ctx, command.Cmd{Name: l.config.Binary, Args: args})
	return strings.TrimSpace(string(out)), err
}

// Locate implements core.Locator. Every miss, including a version that does
// not satisfy the pinned tag, is NotFound.
func (l *Locator) Locate(ctx context.Context, spec core.DependencySpec) core.Outcome {
	if _, err := l.runner.LookPath(l.config.Binary); err != nil {
		return core.NotFound("%s is not installed", l.config.Binary)
	}

	module := l.config.Module
	if module == "" {
		name, err := l.config.Registry.Resolve(spec.Name, string(platform.StrategyPkgConfig))
		if err != nil {
			return core.NotFound("no pkg-config module known for %s", spec.Name)
		}
		module = name
	}

	version, err := l.query(ctx, "--modversion", module)
	if err != nil || version == "" {
		return core.NotFound("pkg-config does not know %s", module)
	}
	if !spec.Tag.Satisfied(version) {
		return core.NotFound("installed %s %s does not satisfy %s", module, version, spec.Tag)
	}

	l.logger.WithFields(logrus.Fields{
		"module":  module,
		"version": version,
	}).Debug("Found module")

	// --static adds the private dependencies needed to link the archive
	var static []string
	if spec.Static {
		static = []string{"--static"}
	}

	includes, err := l.includeDirs(ctx, module)
	if err != nil {
		return core.NotFound("reading include paths of %s: %v", module, err)
	}
	if len(includes) == 0 {
		return core.NotFound("pkg-config reports no include directory for %s", module)
	}

	out, err := l.query(ctx, append([]string{"--libs-only-L"}, append(static, module)...)...)
	if err != nil {
		return core.NotFound("reading library paths of %s: %v", module, err)
	}
	searchPaths := flagValues(out, "-L")
	if len(searchPaths) == 0 {
		if libdir, err := l.query(ctx, "--variable=libdir", module); err == nil && libdir != "" {
			searchPaths = []string{libdir}
		}
	}

	out, err = l.query(ctx, append([]string{"--libs-only-l"}, append(static, module)...)...)
	if err != nil {
		return core.NotFound("reading libraries of %s: %v", module, err)
	}
	libs := flagValues(out, "-l")

	out, err = l.query(ctx, append([]string{"--libs-only-other"}, append(static, module)...)...)
	if err != nil {
		return core.NotFound("reading linker flags of %s: %v", module, err)
	}
	frameworks := frameworkNames(out)

	primary := spec.Name
	if entry, err := l.config.Registry.Load(spec.Name); err == nil {
		primary = entry.Library()
	}
	if spec.Static && !hasArchive(searchPaths, primary, spec.Target) {
		return core.NotFound("no static %s archive in %v", primary, searchPaths)
	}

	result := &core.Result{
		Strategy:        l.Name(),
		Version:         version,
		IncludePaths:    includes,
		LinkMode:        spec.LinkMode(),
		LinkSearchPaths: searchPaths,
		Libraries:       []string{primary},
		Frameworks:      frameworks,
	}
	for _, lib := range libs {
		if lib != primary {
			result.SystemLibraries = append(result.SystemLibraries, lib)
		}
	}

	return core.Found(result)
}

// includeDirs prefers -I flags and falls back to the includedir variable
func (l *Locator) includeDirs(ctx context.Context, module string) ([]string, error) {
	out, err := l.query(ctx, "--cflags-only-I", module)
	if err != nil {
		return nil, err
	}
	if dirs := flagValues(out, "-I"); len(dirs) > 0 {
		return dirs, nil
	}

	// Modules installed to /usr/include print no -I at all
	dir, err := l.query(ctx, "--variable=includedir", module)
	if err != nil || dir == "" {
		return nil, err
	}
	return []string{dir}, nil
}

// flagValues collects the values of one flag from pkg-config output,
// accepting both "-I/dir" and "-I /dir"
func flagValues(out, flag string) []string {
	var values []string
	fields := strings.Fields(out)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasPrefix(f, flag) {
			continue
		}
		v := strings.TrimPrefix(f, flag)
		if v == "" && i+1 < len(fields) {
			i++
			v = fields[i]
		}
		if v != "" && !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	return values
}

// frameworkNames reads "-framework Name" pairs
func frameworkNames(out string) []string {
	var names []string
	fields := strings.Fields(out)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "-framework" {
			names = append(names, fields[i+1])
			i++
		}
	}
	return names
}

// hasArchive reports whether a static library sits in one of dirs. Without
// any directory the system linker paths apply and the check is skipped.
func hasArchive(dirs []string, name string, t platform.Target) bool {
	if len(dirs) == 0 {
		return true
	}
	file := "lib" + name + ".a"
	if t.IsWindows() {
		file = name + ".lib"
	}
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, file)); err == nil {
			return true
		}
	}
	return false
}
