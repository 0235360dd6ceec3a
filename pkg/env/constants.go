// pkg/env/constants.go
package env

import (
	"path/filepath"
)

// Layout names
const (
	LayoutDpkg  = "dpkg"  // unpacked .deb
	LayoutRPM   = "rpm"   // unpacked .rpm
	LayoutNix   = "nix"   // unpacked NAR
	LayoutFlat  = "flat"  // install prefix or tarball: lib/, include/
	LayoutVcpkg = "vcpkg" // installed/<triplet>/
)

// GetPackageLayout returns the typical directory structure for a layout.
// These are RELATIVE paths within the tree, not absolute system paths
func GetPackageLayout(layout, arch string) PackageLayout {
	switch layout {
	case LayoutDpkg:
		return getDebianLayout(arch)
	case LayoutRPM:
		return getRPMLayout()
	case LayoutNix, LayoutFlat:
		return getFlatLayout()
	case LayoutVcpkg:
		return getVcpkgLayout()
	default:
		return getDefaultLayout()
	}
}

// multiarchTriplet maps GOARCH to the Debian multiarch directory name
func multiarchTriplet(arch string) string {
	switch arch {
	case "amd64":
		return "x86_64-linux-gnu"
	case "arm64":
		return "aarch64-linux-gnu"
	case "386":
		return "i386-linux-gnu"
	case "arm":
		return "arm-linux-gnueabihf"
	default:
		return arch + "-linux-gnu"
	}
}

// Debian/Ubuntu packages extract with full /usr hierarchy
func getDebianLayout(arch string) PackageLayout {
	triplet := multiarchTriplet(arch)

	return PackageLayout{
		// .deb packages contain: usr/lib/x86_64-linux-gnu/libchromaprint.so.1
		Libraries: []string{
			filepath.Join("usr", "lib", triplet),
			filepath.Join("usr", "lib"),
			filepath.Join("lib", triplet),
			filepath.Join("lib"),
			filepath.Join("usr", "local", "lib"),
		},
		// .deb packages contain: usr/include/chromaprint.h
		Includes: []string{
			filepath.Join("usr", "include"),
			filepath.Join("usr", "local", "include"),
		},
		// .deb packages contain: usr/lib/x86_64-linux-gnu/pkgconfig/libchromaprint.pc
		PkgConfig: []string{
			filepath.Join("usr", "lib", triplet, "pkgconfig"),
			filepath.Join("usr", "lib", "pkgconfig"),
			filepath.Join("usr", "share", "pkgconfig"),
		},
	}
}

// Fedora/RHEL/openSUSE packages use lib64 for 64-bit
func getRPMLayout() PackageLayout {
	return PackageLayout{
		Libraries: []string{
			filepath.Join("usr", "lib64"),
			filepath.Join("usr", "lib"),
			filepath.Join("lib64"),
			filepath.Join("lib"),
		},
		Includes: []string{
			filepath.Join("usr", "include"),
		},
		PkgConfig: []string{
			filepath.Join("usr", "lib64", "pkgconfig"),
			filepath.Join("usr", "lib", "pkgconfig"),
			filepath.Join("usr", "share", "pkgconfig"),
		},
	}
}

// Nix outputs, CMake install prefixes and Homebrew-style tarballs
func getFlatLayout() PackageLayout {
	return PackageLayout{
		Libraries: []string{
			"lib",
			"lib64",
		},
		Includes: []string{
			"include",
		},
		PkgConfig: []string{
			filepath.Join("lib", "pkgconfig"),
			filepath.Join("lib64", "pkgconfig"),
		},
	}
}

// vcpkg installs one tree per triplet; debug builds live under debug/
func getVcpkgLayout() PackageLayout {
	return PackageLayout{
		Libraries: []string{
			"lib",
			"bin", // DLLs
		},
		Includes: []string{
			"include",
		},
		PkgConfig: []string{
			filepath.Join("lib", "pkgconfig"),
		},
	}
}

// Default layout for unknown trees (FHS-like)
func getDefaultLayout() PackageLayout {
	return PackageLayout{
		Libraries: []string{
			filepath.Join("usr", "lib"),
			filepath.Join("lib"),
		},
		Includes: []string{
			filepath.Join("usr", "include"),
			filepath.Join("include"),
		},
		PkgConfig: []string{
			filepath.Join("usr", "lib", "pkgconfig"),
			filepath.Join("lib", "pkgconfig"),
		},
	}
}

// GetLibraryExtensions returns file extensions to look for on an OS
func GetLibraryExtensions(goos string) []string {
	switch goos {
	case "darwin", "ios":
		return []string{".dylib", ".a"}
	case "windows":
		return []string{".dll", ".lib"}
	default: // linux, etc.
		return []string{".so", ".a"}
	}
}

// GetSharedLibraryExtensions returns only shared library extensions
func GetSharedLibraryExtensions(goos string) []string {
	switch goos {
	case "darwin", "ios":
		return []string{".dylib"}
	case "windows":
		// Link against the import library, the DLL is only needed at runtime
		return []string{".lib", ".dll"}
	default:
		return []string{".so"}
	}
}

// GetStaticLibraryExtensions returns only static library extensions
func GetStaticLibraryExtensions(goos string) []string {
	switch goos {
	case "windows":
		return []string{".lib"} // Can be import lib or static lib
	default:
		return []string{".a"}
	}
}

// libraryFileName returns the file name a linker expects for name+ext
func libraryFileName(goos, name, ext string) string {
	if goos == "windows" {
		return name + ext
	}
	return "lib" + name + ext
}
