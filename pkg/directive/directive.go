// Package directive describes the linker instructions a consuming Go package
// needs, and renders them as stdout lines, a YAML manifest and cgo flags.
package directive

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arc-language/chromabuild/pkg/core"
)

// Prefix starts every directive line on stdout
const Prefix = "chromabuild:"

// ManifestFile is the manifest's name inside the output directory
const ManifestFile = "link.yaml"

// Kind names a directive
type Kind string

const (
	KindLinkSearch    Kind = "link-search"
	KindLinkLib       Kind = "link-lib"
	KindLinkFramework Kind = "link-framework"
	KindInclude       Kind = "include"
)

// Directive is one linker instruction
type Directive struct {
	Kind   Kind   `yaml:"kind"`
	Value  string `yaml:"value"`
	Static bool   `yaml:"static,omitempty"` // link-lib only
}

// LinkSearch adds a native library search directory
func LinkSearch(dir string) Directive {
	return Directive{Kind: KindLinkSearch, Value: dir}
}

// LinkLib links a library statically or dynamically
func LinkLib(name string, static bool) Directive {
	return Directive{Kind: KindLinkLib, Value: name, Static: static}
}

// LinkFramework links a macOS framework
func LinkFramework(name string) Directive {
	return Directive{Kind: KindLinkFramework, Value: name}
}

// Include adds a header search directory
func Include(dir string) Directive {
	return Directive{Kind: KindInclude, Value: dir}
}

// String renders the stdout form, e.g. "chromabuild:link-lib=static=chromaprint"
func (d Directive) String() string {
	switch d.Kind {
	case KindLinkSearch:
		return Prefix + "link-search=native=" + d.Value
	case KindLinkLib:
		mode := "dylib"
		if d.Static {
			mode = "static"
		}
		return Prefix + "link-lib=" + mode + "=" + d.Value
	default:
		return Prefix + string(d.Kind) + "=" + d.Value
	}
}

// Parse reads a line produced by String
func Parse(line string) (Directive, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), Prefix)
	if !ok {
		return Directive{}, fmt.Errorf("not a directive: %q", line)
	}

	key, value, ok := strings.Cut(rest, "=")
	if !ok || value == "" {
		return Directive{}, fmt.Errorf("malformed directive: %q", line)
	}

	switch Kind(key) {
	case KindLinkSearch:
		return LinkSearch(strings.TrimPrefix(value, "native=")), nil
	case KindLinkLib:
		mode, name, ok := strings.Cut(value, "=")
		if !ok {
			return LinkLib(value, false), nil
		}
		return LinkLib(name, mode == "static"), nil
	case KindLinkFramework:
		return LinkFramework(value), nil
	case KindInclude:
		return Include(value), nil
	default:
		return Directive{}, fmt.Errorf("unknown directive kind %q", key)
	}
}

// FromResult derives the directives for an acquisition result. chromaprint
// and the FFT libraries follow the requested link mode; the C++ runtime and
// libm are always linked dynamically.
func FromResult(r *core.Result) []Directive {
	var ds []Directive
	seen := make(map[Directive]bool)
	add := func(d Directive) {
		if d.Value == "" || seen[d] {
			return
		}
		seen[d] = true
		ds = append(ds, d)
	}

	static := r.LinkMode == core.LinkStatic
	for _, dir := range r.IncludePaths {
		add(Include(dir))
	}
	for _, dir := range r.LinkSearchPaths {
		add(LinkSearch(dir))
	}
	for _, lib := range r.Libraries {
		add(LinkLib(lib, static))
	}
	for _, lib := range r.SystemLibraries {
		add(LinkLib(lib, false))
	}
	for _, fw := range r.Frameworks {
		add(LinkFramework(fw))
	}
	return ds
}

// Filter returns the directives of one kind
func Filter(ds []Directive, kind Kind) []Directive {
	var out []Directive
	for _, d := range ds {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Emit writes one line per directive
func Emit(w io.Writer, ds []Directive) error {
	for _, d := range ds {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return fmt.Errorf("writing directive: %w", err)
		}
	}
	return nil
}

// Manifest is the YAML record of a run's directives
type Manifest struct {
	Package    string      `yaml:"package"`
	Tag        string      `yaml:"tag"`
	Version    string      `yaml:"version,omitempty"`
	Strategy   string      `yaml:"strategy"`
	LinkMode   string      `yaml:"link_mode"`
	Header     string      `yaml:"header,omitempty"`
	Directives []Directive `yaml:"directives"`
}

// WriteManifest saves m as YAML
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
