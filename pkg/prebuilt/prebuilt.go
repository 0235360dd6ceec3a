// Package prebuilt acquires chromaprint from a user-supplied development
// package: a .deb, .rpm, Nix archive or tarball of an install prefix.
package prebuilt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/archive"
	"github.com/arc-language/chromabuild/pkg/bindgen"
	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/env"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/registry"
)

// Config configures the prebuilt archive locator
type Config struct {
	Archive  string // path to the package
	OutDir   string // the archive unpacks into <OutDir>/prebuilt
	Registry *registry.Registry
	Logger   logrus.FieldLogger
}

// Locator unpacks and inspects a prebuilt package
type Locator struct {
	config    *Config
	extractor *archive.Extractor
	logger    logrus.FieldLogger
}

// New creates a prebuilt locator
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
	logger = logger.WithField("strategy", string(platform.StrategyPrebuilt))

	return &Locator{
		config:    cfg,
		extractor: archive.NewExtractor(logger),
		logger:    logger,
	}
}

// Name implements core.Locator
func (l *Locator) Name() string {
	return string(platform.StrategyPrebuilt)
}

// layoutFor maps an archive format onto the tree it unpacks to
func layoutFor(kind archive.Kind) string {
	switch kind {
	case archive.KindDeb:
		return env.LayoutDpkg
	case archive.KindRPM:
		return env.LayoutRPM
	case archive.KindNar, archive.KindNarXz:
		return env.LayoutNix
	default:
		return env.LayoutFlat
	}
}

// Locate implements core.Locator. An archive that cannot be read fails the
// run; an archive that lacks what is needed is a miss.
func (l *Locator) Locate(ctx context.Context, spec core.DependencySpec) core.Outcome {
	if l.config.Archive == "" {
		return core.NotFound("no prebuilt archive configured")
	}
	if _, err := os.Stat(l.config.Archive); err != nil {
		return core.Failed(fmt.Errorf("prebuilt archive: %w", err))
	}

	entry, err := l.config.Registry.Load(spec.Name)
	if err != nil {
		return core.Failed(err)
	}

	dest := filepath.Join(l.config.OutDir, "prebuilt")
	if err := os.RemoveAll(dest); err != nil {
		return core.Failed(fmt.Errorf("clearing %s: %w", dest, err))
	}

	kind, stats, err := l.extractor.Extract(l.config.Archive, dest)
	if err != nil {
		return core.Failed(fmt.Errorf("unpacking %s: %w", filepath.Base(l.config.Archive), err))
	}
	l.logger.WithFields(logrus.Fields{
		"archive": l.config.Archive,
		"kind":    kind,
		"files":   stats.Files,
	}).Info("Unpacked prebuilt package")

	root := dest
	if layoutFor(kind) == env.LayoutFlat {
		// Release tarballs wrap the prefix in one directory
		if root, err = archive.SingleRoot(dest); err != nil {
			return core.Failed(err)
		}
	}
	tree := env.New(root, layoutFor(kind), spec.Target.OS, spec.Target.Arch)
	l.logger.WithField("libraries", tree.ListLibraryNames()).Debug("Scanned package tree")

	includeDir := tree.FindHeader(entry.Header)
	if includeDir == "" {
		return core.NotFound("%s not found in %s", entry.Header, filepath.Base(l.config.Archive))
	}

	found, err := l.version(tree, entry, filepath.Join(includeDir, entry.Header))
	if err != nil {
		return core.NotFound("%v", err)
	}
	if !spec.Tag.Satisfied(found) {
		return core.NotFound("prebuilt %s %s does not satisfy %s", spec.Name, found, spec.Tag)
	}

	var lib *env.Library
	if spec.Static {
		lib = tree.FindStaticLibrary(entry.Library())
	} else {
		lib = tree.FindSharedLibrary(entry.Library())
	}
	if lib == nil {
		return core.NotFound("no %s %s library in %s", spec.LinkMode(), entry.Library(), filepath.Base(l.config.Archive))
	}

	extras := entry.Extras(spec.Target.OS, spec.Static, string(spec.FFT))
	return core.Found(&core.Result{
		Strategy:        l.Name(),
		Version:         found,
		IncludePaths:    []string{includeDir},
		LinkMode:        spec.LinkMode(),
		LinkSearchPaths: []string{lib.Dir},
		Libraries:       entry.LinkLibraries(extras),
		SystemLibraries: extras.SystemLibs,
		Frameworks:      extras.Frameworks,
	})
}

// version prefers the packaged .pc file and falls back to the header's
// version macros
func (l *Locator) version(tree *env.Environment, entry *registry.Entry, header string) (string, error) {
	if module := entry.Backends[string(platform.StrategyPkgConfig)]; module != "" {
		if v := tree.PkgConfigVersion(module); v != "" {
			return v, nil
		}
	}

	h, err := bindgen.ParseFile(header)
	if err != nil {
		return "", fmt.Errorf("reading version from %s: %w", filepath.Base(header), err)
	}

	major, okMajor := h.IntMacro("CHROMAPRINT_VERSION_MAJOR")
	minor, okMinor := h.IntMacro("CHROMAPRINT_VERSION_MINOR")
	if !okMajor || !okMinor {
		return "", fmt.Errorf("%s carries no version macros", filepath.Base(header))
	}
	patch, _ := h.IntMacro("CHROMAPRINT_VERSION_PATCH")

	return fmt.Sprintf("%d.%d.%d", major, minor, patch), nil
}
