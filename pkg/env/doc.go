// pkg/env/doc.go
package env

/*
Package env finds headers and libraries inside a directory tree whose shape
depends on where it came from.

It handles:
  - Layouts of unpacked .deb, .rpm and Nix archives, flat install prefixes
    (CMake installs, tarballs) and vcpkg triplet trees
  - Finding the public header and the library file for a dependency
  - Reading the version from a pkg-config .pc file in the tree

Basic Usage:

    e := env.New("/tmp/out/prebuilt", env.LayoutDpkg, "linux", "amd64")

    header := e.FindHeader("chromaprint.h")
    lib := e.FindStaticLibrary("chromaprint")
    if lib != nil {
        fmt.Printf("Found: %s in %s\n", lib.Name, lib.Dir)
    }

    version := e.PkgConfigVersion("libchromaprint")

For example, .deb packages unpack to usr/lib/x86_64-linux-gnu/ while a CMake
install prefix has lib/ directly.
*/
