// pkg/platform/strategy.go
package platform

// Strategy names an acquisition strategy
type Strategy string

const (
	StrategyPrebuilt  Strategy = "prebuilt"
	StrategyPkgConfig Strategy = "pkg-config"
	StrategyVcpkg     Strategy = "vcpkg"
	StrategySource    Strategy = "source"
)

// Options switches individual strategies on or off
type Options struct {
	Prebuilt         bool // a prebuilt archive is configured
	DisablePkgConfig bool
	DisableVcpkg     bool
}

// Strategies returns the ordered acquisition strategies for the target.
//
// Priority:
// 1. A user-supplied prebuilt archive
// 2. The platform's own discovery: pkg-config off Windows, vcpkg on Windows
// 3. Building from source, always last
func Strategies(t Target, opts Options) []Strategy {
	var order []Strategy

	if opts.Prebuilt {
		order = append(order, StrategyPrebuilt)
	}

	if t.IsWindows() {
		if !opts.DisableVcpkg {
			order = append(order, StrategyVcpkg)
		}
	} else if !opts.DisablePkgConfig {
		order = append(order, StrategyPkgConfig)
	}

	return append(order, StrategySource)
}
