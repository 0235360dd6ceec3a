// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/version"
)

// DefaultConfigFile is looked up in the working directory
const DefaultConfigFile = "chromabuild.yaml"

// Source acquisition modes
const (
	SourceClone   = "clone"
	SourceInTree  = "intree"
	SourceArchive = "archive"
)

// Config holds chromabuild configuration
type Config struct {
	PackageVersion string          `yaml:"package_version"`
	OutDir         string          `yaml:"out_dir"`
	Static         bool            `yaml:"static"`
	FFT            string          `yaml:"fft"`
	Prebuilt       string          `yaml:"prebuilt"`
	Debug          bool            `yaml:"debug"`
	Source         SourceConfig    `yaml:"source"`
	PkgConfig      PkgConfigConfig `yaml:"pkgconfig"`
	Vcpkg          VcpkgConfig     `yaml:"vcpkg"`
	Binding        BindingConfig   `yaml:"binding"`
	Target         TargetConfig    `yaml:"target"`
}

// SourceConfig configures the source build strategy
type SourceConfig struct {
	Mode         string `yaml:"mode"`
	Repository   string `yaml:"repository"`
	VendorDir    string `yaml:"vendor_dir"`
	Archive      string `yaml:"archive"`
	SkipCheckout bool   `yaml:"skip_checkout"`
}

// PkgConfigConfig configures system discovery
type PkgConfigConfig struct {
	Disabled bool   `yaml:"disabled"`
	Binary   string `yaml:"binary"`
	Module   string `yaml:"module"`
}

// VcpkgConfig configures the Windows package tree lookup
type VcpkgConfig struct {
	Disabled bool   `yaml:"disabled"`
	Root     string `yaml:"root"`
	Triplet  string `yaml:"triplet"`
}

// BindingConfig configures the generated cgo file
type BindingConfig struct {
	Package    string `yaml:"package"`
	Output     string `yaml:"output"`
	TrimPrefix string `yaml:"trim_prefix"` // stripped from C names before CamelCasing
}

// TargetConfig overrides the detected target platform
type TargetConfig struct {
	OS   string `yaml:"os"`
	Arch string `yaml:"arch"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		PackageVersion: version.DefaultPackageVersion,
		OutDir:         getDefaultOutDir(),
		Source: SourceConfig{
			Mode:       SourceClone,
			Repository: "https://github.com/acoustid/chromaprint",
			VendorDir:  filepath.Join("third_party", "chromaprint"),
		},
		PkgConfig: PkgConfigConfig{
			Binary: "pkg-config",
			Module: "libchromaprint",
		},
		Binding: BindingConfig{
			Package: "chromaprint",
			Output:  "bindings.go",
		},
	}
}

// LoadConfig loads configuration from file, on top of the defaults
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigFile
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays the CHROMABUILD_* toggles onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup("CHROMABUILD_PACKAGE_VERSION"); ok && v != "" {
		cfg.PackageVersion = v
	}
	if v, ok := lookup("CHROMABUILD_OUT_DIR"); ok && v != "" {
		cfg.OutDir = v
	}
	if v, ok := lookup("CHROMABUILD_FFT"); ok {
		cfg.FFT = v
	}
	if v, ok := lookup("CHROMABUILD_SOURCE_MODE"); ok && v != "" {
		cfg.Source.Mode = v
	}
	if v, ok := lookup("CHROMABUILD_PREBUILT"); ok && v != "" {
		cfg.Prebuilt = v
	}
	if v, ok := lookup("VCPKG_ROOT"); ok && v != "" && cfg.Vcpkg.Root == "" {
		cfg.Vcpkg.Root = v
	}

	toggles := []struct {
		key string
		dst *bool
		val bool
	}{
		{"CHROMABUILD_STATIC", &cfg.Static, true},
		// Checked after STATIC so it overrides it
		{"CHROMABUILD_DYNAMIC", &cfg.Static, false},
		{"CHROMABUILD_SKIP_CHECKOUT", &cfg.Source.SkipCheckout, true},
		{"CHROMABUILD_NO_PKG_CONFIG", &cfg.PkgConfig.Disabled, true},
		{"CHROMABUILD_NO_VCPKG", &cfg.Vcpkg.Disabled, true},
		{"CHROMABUILD_DEBUG", &cfg.Debug, true},
	}
	for _, tg := range toggles {
		v, ok := lookup(tg.key)
		if !ok {
			continue
		}
		on, err := parseToggle(v)
		if err != nil {
			return fmt.Errorf("%s: %w", tg.key, err)
		}
		if on {
			*tg.dst = tg.val
		}
	}

	return nil
}

// parseToggle treats a set-but-empty variable as enabled, like a feature flag
func parseToggle(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return true, nil
	}
	return strconv.ParseBool(v)
}

// TargetPlatform returns the configured target, falling back to the host.
func (c *Config) TargetPlatform() platform.Target {
	t := platform.Host()
	if c.Target.OS != "" {
		t.OS = c.Target.OS
	}
	if c.Target.Arch != "" {
		t.Arch = c.Target.Arch
	}
	return t
}

// Spec validates the configuration and derives the DependencySpec.
// Every configuration error surfaces here, before any external command.
func (c *Config) Spec() (DependencySpec, error) {
	tag, err := version.FromPackageVersion(c.PackageVersion)
	if err != nil {
		return DependencySpec{}, err
	}

	fft, err := ParseFFT(c.FFT)
	if err != nil {
		return DependencySpec{}, err
	}

	target := c.TargetPlatform()
	if !fft.Supports(target) {
		return DependencySpec{}, fmt.Errorf("%w: %s requires darwin or ios, target is %s", ErrPlatformMismatch, fft, target)
	}

	switch c.Source.Mode {
	case SourceClone, SourceInTree, SourceArchive:
	default:
		return DependencySpec{}, fmt.Errorf("unknown source mode %q (want %s, %s or %s)", c.Source.Mode, SourceClone, SourceInTree, SourceArchive)
	}
	if c.Source.Mode == SourceArchive && c.Source.Archive == "" {
		return DependencySpec{}, fmt.Errorf("source mode %q needs source.archive", SourceArchive)
	}
	if c.OutDir == "" {
		return DependencySpec{}, fmt.Errorf("out_dir is required")
	}

	return DependencySpec{
		Name:   DependencyName,
		Tag:    tag,
		Static: c.Static,
		FFT:    fft,
		Target: target,
	}, nil
}

func getDefaultOutDir() string {
	return filepath.Join(".chromabuild", "out")
}
