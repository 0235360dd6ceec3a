// Package vcpkg locates chromaprint in a vcpkg installation tree on Windows.
package vcpkg

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/env"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/registry"
)

// Config configures the vcpkg locator
type Config struct {
	Root     string // VCPKG_ROOT
	Triplet  string // derived from the DependencySpec when empty
	Registry *registry.Registry
	Logger   logrus.FieldLogger
}

// Locator reads an existing vcpkg tree; it never runs vcpkg itself
type Locator struct {
	config *Config
	logger logrus.FieldLogger
}

// New creates a vcpkg locator
func New(cfg *Config) *Locator {
	if cfg == nil {
		cfg = &Config{}
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

	return &Locator{
		config: cfg,
		logger: logger.WithField("strategy", string(platform.StrategyVcpkg)),
	}
}

// Name implements core.Locator
func (l *Locator) Name() string {
	return string(platform.StrategyVcpkg)
}

// Triplet returns the vcpkg triplet for a dependency, e.g. x64-windows-static
func Triplet(spec core.DependencySpec) string {
	arch := spec.Target.Arch
	switch arch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	}

	triplet := arch + "-windows"
	if spec.Static {
		triplet += "-static"
	}
	return triplet
}

// Locate implements core.Locator
func (l *Locator) Locate(ctx context.Context, spec core.DependencySpec) core.Outcome {
	if l.config.Root == "" {
		return core.NotFound("no vcpkg root configured")
	}

	entry, err := l.config.Registry.Load(spec.Name)
	if err != nil {
		return core.Failed(err)
	}
	port := entry.Backends[string(platform.StrategyVcpkg)]
	if port == "" {
		return core.NotFound("no vcpkg port known for %s", spec.Name)
	}

	triplet := l.config.Triplet
	if triplet == "" {
		triplet = Triplet(spec)
	}
	log := l.logger.WithFields(logrus.Fields{
		"root":    l.config.Root,
		"port":    port,
		"triplet": triplet,
	})

	f, err := os.Open(filepath.Join(l.config.Root, "installed", "vcpkg", "status"))
	if err != nil {
		return core.NotFound("no vcpkg status database under %s", l.config.Root)
	}
	defer f.Close()

	entries, err := ParseStatus(f)
	if err != nil {
		return core.NotFound("reading vcpkg status: %v", err)
	}

	installed := Find(entries, port, triplet)
	if installed == nil {
		return core.NotFound("port %s:%s is not installed", port, triplet)
	}
	if !spec.Tag.Satisfied(installed.Version) {
		return core.NotFound("installed %s %s does not satisfy %s", port, installed.Version, spec.Tag)
	}
	log.WithField("version", installed.Version).Debug("Found installed port")

	tree := env.New(filepath.Join(l.config.Root, "installed", triplet), env.LayoutVcpkg, "windows", spec.Target.Arch)

	includeDir := tree.FindHeader(entry.Header)
	if includeDir == "" {
		return core.NotFound("%s not found in %s", entry.Header, tree.Root)
	}

	var lib *env.Library
	if spec.Static {
		lib = tree.FindStaticLibrary(entry.Library())
	} else {
		lib = tree.FindSharedLibrary(entry.Library())
	}
	if lib == nil {
		return core.NotFound("%s library not found in %s", spec.LinkMode(), tree.Root)
	}

	extras := entry.Extras(spec.Target.OS, spec.Static, string(spec.FFT))
	return core.Found(&core.Result{
		Strategy:        l.Name(),
		Version:         installed.Version,
		IncludePaths:    []string{includeDir},
		LinkMode:        spec.LinkMode(),
		LinkSearchPaths: []string{lib.Dir},
		Libraries:       entry.LinkLibraries(extras),
		SystemLibraries: extras.SystemLibs,
	})
}
