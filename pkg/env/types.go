// pkg/env/types.go
package env

// PackageLayout defines where files are located within an unpacked tree
type PackageLayout struct {
	Libraries []string // Relative paths to library directories
	Includes  []string // Relative paths to include directories
	PkgConfig []string // Relative paths to pkg-config directories
}

// Library represents a found library file
type Library struct {
	Name     string // Library name (e.g., "chromaprint")
	Path     string // Absolute path to library file
	Dir      string // Directory holding the file, for -L
	Type     string // Extension: ".so", ".a", ".dylib", ".dll", ".lib"
	IsStatic bool   // True for .a and static .lib files
}

// Environment is an unpacked or installed tree holding a native library
type Environment struct {
	Root   string // Root path (e.g., <out>/prebuilt)
	Layout string // Layout name (dpkg, rpm, nix, flat, vcpkg)
	OS     string // Target OS, selects library extensions
	Arch   string // Target arch, selects multiarch directories
}
