// Package native builds chromaprint from source, the fallback strategy
// that runs when nothing installed fits.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/cmake"
	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/registry"
	"github.com/arc-language/chromabuild/pkg/source"
)

// Config configures the source build
type Config struct {
	OutDir   string
	Mode     string // core.SourceClone, core.SourceInTree or core.SourceArchive
	Fetcher  *source.Fetcher
	Builder  *cmake.Builder
	Registry *registry.Registry
	Logger   logrus.FieldLogger
}

// Locator acquires chromaprint by compiling it
type Locator struct {
	config *Config
	logger logrus.FieldLogger
}

// New creates a source build locator
func New(cfg *Config) *Locator {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Mode == "" {
		cfg.Mode = core.SourceClone
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
	logger = logger.WithField("strategy", string(platform.StrategySource))

	if cfg.Fetcher == nil {
		cfg.Fetcher = source.New(&source.Config{OutDir: cfg.OutDir, Logger: logger})
	}
	if cfg.Builder == nil {
		cfg.Builder = cmake.New(&cmake.Config{Logger: logger})
	}

	return &Locator{config: cfg, logger: logger}
}

// Name implements core.Locator
func (l *Locator) Name() string {
	return string(platform.StrategySource)
}

// Locate implements core.Locator
func (l *Locator) Locate(ctx context.Context, spec core.DependencySpec) core.Outcome {
	entry, err := l.config.Registry.Load(spec.Name)
	if err != nil {
		return core.Failed(err)
	}
	layout, err := entry.LayoutFor(spec.Tag)
	if err != nil {
		return core.Failed(err)
	}

	// Nothing is fetched for a backend the target cannot build
	if !spec.FFT.Supports(spec.Target) {
		return core.Failed(fmt.Errorf("%w: %s on %s", core.ErrPlatformMismatch, spec.FFT, spec.Target))
	}

	srcDir, outcome, ok := l.fetch(ctx, spec)
	if !ok {
		return outcome
	}

	conf, err := cmake.NewConfiguration(spec, cmake.DirsFor(srcDir, l.config.OutDir))
	if err != nil {
		return core.Failed(err)
	}
	conf.Target = entry.CMakeTarget

	report, err := l.config.Builder.Build(ctx, conf)
	if err != nil {
		return core.Failed(fmt.Errorf("building %s %s from source: %w", spec.Name, spec.Tag, err))
	}

	root := conf.InstallDir
	if layout.Root == registry.RootSource {
		root = srcDir
	}
	includeDir := filepath.Join(root, filepath.FromSlash(layout.HeaderDir))
	if _, err := os.Stat(filepath.Join(includeDir, entry.Header)); err != nil {
		return core.Failed(fmt.Errorf("built %s %s but %s is not in %s", spec.Name, spec.Tag, entry.Header, includeDir))
	}

	extras := entry.Extras(spec.Target.OS, spec.Static, string(spec.FFT))
	return core.Found(&core.Result{
		Strategy:        l.Name(),
		Version:         spec.Tag.Semver(),
		IncludePaths:    []string{includeDir},
		LinkMode:        spec.LinkMode(),
		LinkSearchPaths: []string{report.LibDir},
		Libraries:       entry.LinkLibraries(extras),
		SystemLibraries: extras.SystemLibs,
		Frameworks:      extras.Frameworks,
	})
}

// fetch produces the source tree. ok is false when outcome should be
// returned as is.
func (l *Locator) fetch(ctx context.Context, spec core.DependencySpec) (string, core.Outcome, bool) {
	f := l.config.Fetcher

	switch l.config.Mode {
	case core.SourceClone:
		dir, err := f.Clone(ctx, spec.Tag)
		if err != nil {
			return "", core.Failed(err), false
		}
		return dir, core.Outcome{}, true

	case core.SourceInTree:
		dir, err := f.Checkout(ctx, spec.Tag)
		if errors.Is(err, source.ErrCheckout) {
			l.logger.WithError(err).Warn("In-tree checkout failed")
			return "", core.NotFound("%v", err), false
		}
		if err != nil {
			return "", core.Failed(err), false
		}
		return dir, core.Outcome{}, true

	case core.SourceArchive:
		dir, err := f.Unpack(spec.Tag)
		if err != nil {
			return "", core.Failed(err), false
		}
		return dir, core.Outcome{}, true

	default:
		return "", core.Failed(fmt.Errorf("unknown source mode %q", l.config.Mode)), false
	}
}
