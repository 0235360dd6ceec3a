// Package cmake configures, builds and installs chromaprint with CMake.
package cmake

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arc-language/chromabuild/pkg/core"
)

// Dirs are the three directories of an out-of-source build
type Dirs struct {
	Source  string
	Build   string
	Install string
}

// DirsFor lays the build and install trees out under out
func DirsFor(source, out string) Dirs {
	return Dirs{
		Source:  source,
		Build:   filepath.Join(out, "build"),
		Install: filepath.Join(out, "install"),
	}
}

// Configuration is one configure/build/install run
type Configuration struct {
	SourceDir  string
	BuildDir   string
	InstallDir string
	CFlags     []string
	CXXFlags   []string
	Defines    map[string]string
	Static     bool
	Target     string // library target the file-api reply must list, when set
}

// NewConfiguration derives the CMake cache settings for spec. A backend
// that cannot be built for the target is rejected here, before anything
// runs.
func NewConfiguration(spec core.DependencySpec, dirs Dirs) (*Configuration, error) {
	if !spec.FFT.Supports(spec.Target) {
		return nil, fmt.Errorf("%w: %s on %s", core.ErrPlatformMismatch, spec.FFT, spec.Target)
	}
	if dirs.Source == "" || dirs.Build == "" || dirs.Install == "" {
		return nil, fmt.Errorf("cmake: source, build and install directories are required")
	}

	c := &Configuration{
		SourceDir:  dirs.Source,
		BuildDir:   dirs.Build,
		InstallDir: dirs.Install,
		Static:     spec.Static,
		Defines: map[string]string{
			"CMAKE_INSTALL_PREFIX": dirs.Install,
			"CMAKE_INSTALL_LIBDIR": "lib",
			"CMAKE_BUILD_TYPE":     "Release",
			"BUILD_TESTS":          "OFF",
			"BUILD_TOOLS":          "OFF",
			"BUILD_SHARED_LIBS":    "ON",
		},
	}

	if spec.Static {
		c.Defines["BUILD_SHARED_LIBS"] = "OFF"

		flags := []string{"-static"}
		if !spec.Target.IsMacOS() {
			flags = append(flags, "-static-libgcc", "-static-libstdc++")
		}
		c.CFlags = append(c.CFlags, flags...)
		c.CXXFlags = append(c.CXXFlags, flags...)
	}

	if spec.FFT != core.FFTDefault {
		c.Defines["FFT_LIB"] = string(spec.FFT)
	}

	return c, nil
}

// LibDir is where the install step puts the library. CMake reports the
// prefix, not this directory.
func (c *Configuration) LibDir() string {
	return filepath.Join(c.InstallDir, "lib")
}

// ConfigureArgs returns the arguments of the configure step
func (c *Configuration) ConfigureArgs() []string {
	args := []string{"-S", c.SourceDir, "-B", c.BuildDir}

	defines := make(map[string]string, len(c.Defines)+2)
	for k, v := range c.Defines {
		defines[k] = v
	}
	if len(c.CFlags) > 0 {
		defines["CMAKE_C_FLAGS"] = strings.Join(c.CFlags, " ")
	}
	if len(c.CXXFlags) > 0 {
		defines["CMAKE_CXX_FLAGS"] = strings.Join(c.CXXFlags, " ")
	}

	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, fmt.Sprintf("-D%s=%s", k, defines[k]))
	}
	return args
}

// BuildArgs returns the arguments of the build-and-install step
func (c *Configuration) BuildArgs() []string {
	return []string{"--build", c.BuildDir, "--config", "Release", "--target", "install"}
}
