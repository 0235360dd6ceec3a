// pkg/registry/registry.go
package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"

	"github.com/arc-language/chromabuild/pkg/version"
)

//go:embed deps
var builtin embed.FS

// Layout roots
const (
	RootSource  = "source"
	RootInstall = "install"
)

// Entry represents a single deps/<name>/index.toml file
type Entry struct {
	Name        string                `toml:"name"`
	Libs        []string              `toml:"libs"`
	Header      string                `toml:"header"`
	Repository  string                `toml:"repository"`
	CMakeTarget string                `toml:"cmake_target"`
	Backends    map[string]string     `toml:"backends"`
	Layouts     []Layout              `toml:"layouts"`
	Static      map[string]LinkExtras `toml:"static"`
	FFT         map[string]LinkExtras `toml:"fft"`
}

// Layout says where the public header sits for tags at or above Since
type Layout struct {
	Since     string `toml:"since"`
	Root      string `toml:"root"`       // "source" or "install"
	HeaderDir string `toml:"header_dir"` // relative to Root
}

// LinkExtras lists what else has to be linked alongside the library
type LinkExtras struct {
	Libs       []string `toml:"libs"`
	SystemLibs []string `toml:"system_libs"`
	Frameworks []string `toml:"frameworks"`
}

// Registry provides lookup into a deps/ folder, falling back to the
// entries compiled into the binary
type Registry struct {
	depsDir string
}

// New creates a Registry. An empty dir uses only the built-in entries.
func New(dir string) *Registry {
	r := &Registry{}
	if dir != "" {
		r.depsDir = filepath.Join(dir, "deps")
	}
	return r
}

// Resolve takes a canonical package name and a backend,
// returns the backend-specific package name.
// e.g. Resolve("chromaprint", "pkg-config") -> "libchromaprint"
func (r *Registry) Resolve(name string, backend string) (string, error) {
	entry, err := r.Load(name)
	if err != nil {
		return "", err
	}

	pkgName, ok := entry.Backends[backend]
	if !ok {
		return "", fmt.Errorf("registry: package '%s' has no entry for backend '%s'", name, backend)
	}

	return pkgName, nil
}

// Load reads and parses deps/<name>/index.toml.
// An on-disk entry shadows the built-in one.
func (r *Registry) Load(name string) (*Entry, error) {
	var data []byte
	var err error

	if r.depsDir != "" {
		data, err = os.ReadFile(filepath.Join(r.depsDir, name, "index.toml"))
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: reading '%s': %w", name, err)
		}
	}

	if data == nil {
		data, err = fs.ReadFile(builtin, "deps/"+name+"/index.toml")
		if err != nil {
			return nil, fmt.Errorf("registry: package '%s' not found", name)
		}
	}

	var entry Entry
	if _, err := toml.Decode(string(data), &entry); err != nil {
		return nil, fmt.Errorf("registry: failed to parse '%s': %w", name, err)
	}

	return &entry, nil
}

// LayoutFor returns the header layout that applies to tag.
func (e *Entry) LayoutFor(tag version.Tag) (Layout, error) {
	var best Layout
	found := false

	for _, l := range e.Layouts {
		if version.Canonical(l.Since) == "" {
			return Layout{}, fmt.Errorf("registry: %s layout has bad version %q", e.Name, l.Since)
		}
		if !tag.AtLeast(l.Since) {
			continue
		}
		if !found || semver.Compare(version.Canonical(l.Since), version.Canonical(best.Since)) > 0 {
			best = l
			found = true
		}
	}

	if !found {
		return Layout{}, fmt.Errorf("registry: no header layout for %s %s", e.Name, tag)
	}
	if best.Root != RootSource && best.Root != RootInstall {
		return Layout{}, fmt.Errorf("registry: %s layout root %q is neither %q nor %q", e.Name, best.Root, RootSource, RootInstall)
	}

	return best, nil
}

// StaticExtras returns what a static link needs on the given OS.
func (e *Entry) StaticExtras(goos string) LinkExtras {
	return e.Static[goos]
}

// FFTExtras returns what the chosen FFT backend needs at link time.
func (e *Entry) FFTExtras(fft string) LinkExtras {
	if fft == "" {
		return LinkExtras{}
	}
	return e.FFT[fft]
}

// Library is the primary library the entry links, its own name when no
// libs are listed
func (e *Entry) Library() string {
	if len(e.Libs) > 0 {
		return e.Libs[0]
	}
	return e.Name
}

// LinkLibraries lists the entry's libraries followed by extras.Libs
func (e *Entry) LinkLibraries(extras LinkExtras) []string {
	libs := append([]string(nil), e.Libs...)
	if len(libs) == 0 {
		libs = []string{e.Name}
	}
	return append(libs, extras.Libs...)
}

// Extras merges what a static link needs besides the library itself: the
// FFT backend and the OS runtime. A dynamic library carries its own
// dependencies, so nothing is added then.
func (e *Entry) Extras(goos string, static bool, fft string) LinkExtras {
	if !static {
		return LinkExtras{}
	}

	f, s := e.FFTExtras(fft), e.StaticExtras(goos)
	return LinkExtras{
		Libs:       append(append([]string(nil), f.Libs...), s.Libs...),
		SystemLibs: append(append([]string(nil), f.SystemLibs...), s.SystemLibs...),
		Frameworks: append(append([]string(nil), f.Frameworks...), s.Frameworks...),
	}
}
