// pkg/env/environment.go
package env

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// New creates an Environment rooted at root
func New(root, layout, goos, arch string) *Environment {
	return &Environment{
		Root:   root,
		Layout: layout,
		OS:     goos,
		Arch:   arch,
	}
}

func (e *Environment) layout() PackageLayout {
	return GetPackageLayout(e.Layout, e.Arch)
}

// existing joins rel dirs onto the root and keeps the ones present on disk
func (e *Environment) existing(rel []string) []string {
	var paths []string
	for _, r := range rel {
		p := filepath.Join(e.Root, r)
		if dirExists(p) {
			paths = append(paths, p)
		}
	}
	return paths
}

// GetLibraryPaths returns library directories present in the tree
func (e *Environment) GetLibraryPaths() []string {
	return e.existing(e.layout().Libraries)
}

// GetIncludePaths returns include directories present in the tree
func (e *Environment) GetIncludePaths() []string {
	return e.existing(e.layout().Includes)
}

// GetPkgConfigPaths returns pkg-config directories present in the tree
func (e *Environment) GetPkgConfigPaths() []string {
	return e.existing(e.layout().PkgConfig)
}

// FindHeader returns the include directory that holds name, or ""
func (e *Environment) FindHeader(name string) string {
	for _, dir := range e.GetIncludePaths() {
		if fileExists(filepath.Join(dir, name)) {
			return dir
		}
	}
	return ""
}

// PkgConfigVersion reads the Version field of <module>.pc, or ""
func (e *Environment) PkgConfigVersion(module string) string {
	for _, dir := range e.GetPkgConfigPaths() {
		f, err := os.Open(filepath.Join(dir, module+".pc"))
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if v, ok := strings.CutPrefix(line, "Version:"); ok {
				f.Close()
				return strings.TrimSpace(v)
			}
		}
		f.Close()
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
