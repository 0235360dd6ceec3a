// pkg/env/library.go
package env

import (
	"os"
	"path/filepath"
	"strings"
)

// FindSharedLibrary searches specifically for shared libraries (.so, .dylib, .dll)
func (e *Environment) FindSharedLibrary(name string) *Library {
	return e.find(name, GetSharedLibraryExtensions(e.OS), true)
}

// FindStaticLibrary searches specifically for static libraries (.a, .lib)
func (e *Environment) FindStaticLibrary(name string) *Library {
	return e.find(name, GetStaticLibraryExtensions(e.OS), false)
}

func (e *Environment) find(name string, extensions []string, versioned bool) *Library {
	for _, dir := range e.GetLibraryPaths() {
		for _, ext := range extensions {
			// Try lib{name}{ext} pattern (e.g., libchromaprint.so)
			filename := libraryFileName(e.OS, name, ext)
			fullPath := filepath.Join(dir, filename)

			if fileExists(fullPath) {
				return newLibrary(name, fullPath, ext, e.OS)
			}

			if !versioned {
				continue
			}

			// Try versioned: lib{name}{ext}.* (e.g., libchromaprint.so.1)
			matches, _ := filepath.Glob(filepath.Join(dir, filename+".*"))
			if len(matches) > 0 {
				return newLibrary(name, matches[0], ext, e.OS)
			}

			// macOS puts the version before the extension: libchromaprint.1.dylib
			if ext == ".dylib" {
				matches, _ = filepath.Glob(filepath.Join(dir, "lib"+name+".*"+ext))
				if len(matches) > 0 {
					return newLibrary(name, matches[0], ext, e.OS)
				}
			}
		}
	}

	return nil
}

func newLibrary(name, path, ext, goos string) *Library {
	return &Library{
		Name:     name,
		Path:     path,
		Dir:      filepath.Dir(path),
		Type:     ext,
		IsStatic: ext == ".a" || (ext == ".lib" && goos == "windows"),
	}
}

// FindAllLibraries returns all libraries in the environment
func (e *Environment) FindAllLibraries() []*Library {
	var libraries []*Library
	extensions := GetLibraryExtensions(e.OS)

	seen := make(map[string]bool) // Avoid duplicates

	for _, dir := range e.GetLibraryPaths() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			name := entry.Name()

			// Check if file has library extension
			for _, ext := range extensions {
				if strings.HasSuffix(name, ext) || strings.Contains(name, ext+".") {
					fullPath := filepath.Join(dir, name)

					if seen[fullPath] {
						continue
					}
					seen[fullPath] = true

					// Extract library name (remove "lib" prefix and extension)
					libName := strings.TrimPrefix(name, "lib")
					// Remove extension and version
					libName = strings.Split(libName, ".")[0]

					libraries = append(libraries, newLibrary(libName, fullPath, ext, e.OS))
					break
				}
			}
		}
	}

	return libraries
}

// ListLibraryNames returns names of all libraries found
func (e *Environment) ListLibraryNames() []string {
	libs := e.FindAllLibraries()
	names := make([]string, 0, len(libs))
	seen := make(map[string]bool)

	for _, lib := range libs {
		if !seen[lib.Name] {
			names = append(names, lib.Name)
			seen[lib.Name] = true
		}
	}

	return names
}
