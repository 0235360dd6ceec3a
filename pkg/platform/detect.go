// pkg/platform/detect.go
package platform

import (
	"fmt"
	"runtime"
)

// Target is the platform chromaprint is being built for
type Target struct {
	OS   string // linux, darwin, windows, ios, ...
	Arch string // amd64, arm64, 386, arm
}

// Host returns the platform this process runs on
func Host() Target {
	return Target{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// IsApple reports whether the target uses Apple's toolchain
func (t Target) IsApple() bool {
	return t.OS == "darwin" || t.OS == "ios"
}

// IsMacOS reports whether the target is macOS
func (t Target) IsMacOS() bool {
	return t.OS == "darwin"
}

// IsWindows reports whether the target is Windows
func (t Target) IsWindows() bool {
	return t.OS == "windows"
}

// IsLinux reports whether the target is Linux
func (t Target) IsLinux() bool {
	return t.OS == "linux"
}

// String returns a string representation of the target
func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.OS, t.Arch)
}
