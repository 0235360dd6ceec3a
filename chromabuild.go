// Package chromabuild acquires the native chromaprint library and generates
// the cgo binding a Go package needs to use it.
package chromabuild

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/bindgen"
	"github.com/arc-language/chromabuild/pkg/cmake"
	"github.com/arc-language/chromabuild/pkg/command"
	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/directive"
	"github.com/arc-language/chromabuild/pkg/native"
	"github.com/arc-language/chromabuild/pkg/pkgconfig"
	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/prebuilt"
	"github.com/arc-language/chromabuild/pkg/registry"
	"github.com/arc-language/chromabuild/pkg/source"
	"github.com/arc-language/chromabuild/pkg/vcpkg"
)

// Version of the chromabuild tool
const Version = "0.1.0"

// Re-export core types for convenience
type (
	Config         = core.Config
	DependencySpec = core.DependencySpec
	Result         = core.Result
	Locator        = core.Locator
	// RegistryEntry is the metadata for a dependency from the deps/ registry
	RegistryEntry = registry.Entry
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// Options configures a Pipeline
type Options struct {
	Config      *Config
	Stdout      io.Writer      // directive lines, os.Stdout when nil
	Runner      command.Runner // pkg-config and cmake invocations
	Logger      logrus.FieldLogger
	RegistryDir string // holds deps/<name>/index.toml overrides

	// Locators replaces the built-in locator of a strategy
	Locators map[platform.Strategy]core.Locator
}

// Artifact is what a successful run leaves behind
type Artifact struct {
	Result       *core.Result
	Header       string // header the binding was generated from
	Directives   []directive.Directive
	Source       []byte // generated Go source
	BindingsPath string
	ManifestPath string
}

// Pipeline runs version resolution, acquisition and binding generation
type Pipeline struct {
	config   *Config
	spec     core.DependencySpec
	stdout   io.Writer
	runner   command.Runner
	logger   logrus.FieldLogger
	registry *registry.Registry
	override map[platform.Strategy]core.Locator
}

// NewPipeline validates the configuration. Nothing external runs before it
// succeeds.
func NewPipeline(opts *Options) (*Pipeline, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	spec, err := cfg.Spec()
	if err != nil {
		return nil, &Error{Op: "configure", Package: core.DependencyName, Err: fmt.Errorf("%w: %w", ErrInvalidConfig, err)}
	}

	p := &Pipeline{
		config:   cfg,
		spec:     spec,
		stdout:   opts.Stdout,
		runner:   opts.Runner,
		logger:   opts.Logger,
		registry: registry.New(opts.RegistryDir),
		override: opts.Locators,
	}
	if p.stdout == nil {
		p.stdout = os.Stdout
	}
	if p.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.logger = l
	}
	if p.runner == nil {
		p.runner = command.NewExec(&command.Config{Logger: p.logger})
	}

	return p, nil
}

// Spec returns the dependency this pipeline acquires
func (p *Pipeline) Spec() core.DependencySpec {
	return p.spec
}

// Strategies returns the acquisition order for the target
func (p *Pipeline) Strategies() []platform.Strategy {
	return platform.Strategies(p.spec.Target, platform.Options{
		Prebuilt:         p.config.Prebuilt != "",
		DisablePkgConfig: p.config.PkgConfig.Disabled,
		DisableVcpkg:     p.config.Vcpkg.Disabled,
	})
}

// Locator returns the locator implementing a strategy
func (p *Pipeline) Locator(s platform.Strategy) (core.Locator, error) {
	if l, ok := p.override[s]; ok {
		return l, nil
	}

	cfg := p.config
	switch s {
	case platform.StrategyPrebuilt:
		return prebuilt.New(&prebuilt.Config{
			Archive:  cfg.Prebuilt,
			OutDir:   cfg.OutDir,
			Registry: p.registry,
			Logger:   p.logger,
		}), nil

	case platform.StrategyPkgConfig:
		return pkgconfig.New(&pkgconfig.Config{
			Binary:   cfg.PkgConfig.Binary,
			Module:   cfg.PkgConfig.Module,
			Runner:   p.runner,
			Registry: p.registry,
			Logger:   p.logger,
		}), nil

	case platform.StrategyVcpkg:
		return vcpkg.New(&vcpkg.Config{
			Root:     cfg.Vcpkg.Root,
			Triplet:  cfg.Vcpkg.Triplet,
			Registry: p.registry,
			Logger:   p.logger,
		}), nil

	case platform.StrategySource:
		repo := cfg.Source.Repository
		if repo == "" {
			entry, err := p.registry.Load(p.spec.Name)
			if err != nil {
				return nil, err
			}
			repo = entry.Repository
		}
		return native.New(&native.Config{
			OutDir: cfg.OutDir,
			Mode:   cfg.Source.Mode,
			Fetcher: source.New(&source.Config{
				OutDir:       cfg.OutDir,
				Repository:   repo,
				VendorDir:    cfg.Source.VendorDir,
				Archive:      cfg.Source.Archive,
				SkipCheckout: cfg.Source.SkipCheckout,
				Logger:       p.logger,
			}),
			Builder:  cmake.New(&cmake.Config{Runner: p.runner, Logger: p.logger}),
			Registry: p.registry,
			Logger:   p.logger,
		}), nil
	}

	return nil, fmt.Errorf("%w: no locator for strategy %q", ErrUnsupportedPlatform, s)
}

// Resolve tries each strategy in order and returns the first result.
// A miss moves on to the next strategy; a failure ends the run.
func (p *Pipeline) Resolve(ctx context.Context) (*core.Result, error) {
	log := p.logger.WithField("dependency", p.spec.String())
	var misses []Miss

	for _, s := range p.Strategies() {
		loc, err := p.Locator(s)
		if err != nil {
			return nil, &Error{Op: "locate", Package: p.spec.Name, Err: err}
		}

		outcome := loc.Locate(ctx, p.spec)
		switch outcome.Status {
		case core.StatusFound:
			log.WithFields(logrus.Fields{
				"strategy": loc.Name(),
				"version":  outcome.Result.Version,
			}).Info("Resolved")
			return outcome.Result, nil

		case core.StatusNotFound:
			log.WithField("strategy", loc.Name()).Infof("Not found: %s", outcome.Reason)
			misses = append(misses, Miss{Strategy: loc.Name(), Reason: outcome.Reason})

		default:
			return nil, &Error{Op: loc.Name(), Package: p.spec.Name, Err: outcome.Err}
		}
	}

	return nil, &UnresolvedError{Package: p.spec.Name, Misses: misses}
}

// BindingsPath is where Run writes the generated Go file
func (p *Pipeline) BindingsPath() string {
	return filepath.Join(p.config.OutDir, p.config.Binding.Output)
}

// ManifestPath is where Run writes the directive manifest
func (p *Pipeline) ManifestPath() string {
	return filepath.Join(p.config.OutDir, directive.ManifestFile)
}

// Run acquires chromaprint, prints its link directives and writes the
// binding. When acquisition fails no binding is left in the output
// directory.
func (p *Pipeline) Run(ctx context.Context) (*Artifact, error) {
	for _, stale := range []string{p.BindingsPath(), p.ManifestPath()} {
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return nil, &Error{Op: "clean", Package: p.spec.Name, Err: err}
		}
	}

	result, err := p.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	art, err := p.Generate(result)
	if err != nil {
		return nil, err
	}

	if err := directive.Emit(p.stdout, art.Directives); err != nil {
		return nil, &Error{Op: "emit", Package: p.spec.Name, Err: err}
	}
	return art, nil
}

// Generate writes bindings.go and link.yaml for an acquisition result
func (p *Pipeline) Generate(result *core.Result) (*Artifact, error) {
	wrap := func(err error) error {
		return &Error{Op: "bindgen", Package: p.spec.Name, Err: err}
	}

	entry, err := p.registry.Load(p.spec.Name)
	if err != nil {
		return nil, wrap(err)
	}

	headerPath, err := bindgen.FindHeader(result.IncludePaths, entry.Header)
	if err != nil {
		return nil, wrap(err)
	}
	header, err := bindgen.ParseFile(headerPath, Defines(p.spec)...)
	if err != nil {
		return nil, wrap(err)
	}

	ds := directive.FromResult(result)
	src, err := bindgen.Generate(header, bindgen.Options{
		Package:    p.config.Binding.Package,
		CFlags:     directive.CFlags(ds),
		LDFlags:    directive.LDFlags(ds),
		TrimPrefix: p.config.Binding.TrimPrefix,
	})
	if err != nil {
		return nil, wrap(err)
	}

	if err := os.MkdirAll(p.config.OutDir, 0755); err != nil {
		return nil, wrap(err)
	}
	art := &Artifact{
		Result:       result,
		Header:       headerPath,
		Directives:   ds,
		Source:       src,
		BindingsPath: p.BindingsPath(),
		ManifestPath: p.ManifestPath(),
	}
	if err := os.WriteFile(art.BindingsPath, src, 0644); err != nil {
		return nil, wrap(err)
	}

	manifest := &directive.Manifest{
		Package:    p.spec.Name,
		Tag:        p.spec.Tag.String(),
		Version:    result.Version,
		Strategy:   result.Strategy,
		LinkMode:   string(result.LinkMode),
		Header:     headerPath,
		Directives: ds,
	}
	if err := directive.WriteManifest(art.ManifestPath, manifest); err != nil {
		os.Remove(art.BindingsPath)
		return nil, wrap(err)
	}

	p.logger.WithFields(logrus.Fields{
		"header":    filepath.Base(headerPath),
		"functions": len(header.Functions),
		"output":    art.BindingsPath,
	}).Info("Generated binding")

	return art, nil
}

// Defines returns the predefined macros chromaprint.h branches on when
// compiled for spec
func Defines(spec core.DependencySpec) []string {
	t := spec.Target
	switch {
	case t.IsWindows():
		if spec.Static {
			return []string{"_WIN32", "CHROMAPRINT_NODLL"}
		}
		return []string{"_WIN32"}
	case t.IsApple():
		return []string{"__APPLE__", "__GNUC__=4"}
	default:
		return []string{"__linux__", "__GNUC__=4"}
	}
}
