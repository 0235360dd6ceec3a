// internal/cli/locate.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/chromabuild/pkg/core"
	"github.com/arc-language/chromabuild/pkg/platform"
)

var locateCmd = &cobra.Command{
	Use:   "locate [strategy]",
	Short: "Run a single acquisition strategy",
	Long: `Run one strategy (prebuilt, pkg-config, vcpkg or source) and show
what it found, regardless of the configured order.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func runLocate(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	strategy := platform.Strategy(args[0])
	loc, err := p.Locator(strategy)
	if err != nil {
		return err
	}
	if !platform.Contains(p.Strategies(), strategy) {
		fmt.Printf("Note: %s is not tried for %s with the current configuration\n", strategy, p.Spec().Target)
	}

	outcome := loc.Locate(cmd.Context(), p.Spec())
	switch outcome.Status {
	case core.StatusFound:
		r := outcome.Result
		fmt.Printf("%s %s\n", okMark, loc.Name())
		fmt.Printf("Version: %s\n", r.Version)
		fmt.Printf("Link mode: %s\n", r.LinkMode)
		fmt.Printf("Include paths: %v\n", r.IncludePaths)
		fmt.Printf("Library paths: %v\n", r.LinkSearchPaths)
		fmt.Printf("Libraries: %v\n", r.Libraries)
		if len(r.SystemLibraries) > 0 {
			fmt.Printf("System libraries: %v\n", r.SystemLibraries)
		}
		if len(r.Frameworks) > 0 {
			fmt.Printf("Frameworks: %v\n", r.Frameworks)
		}
		return nil
	case core.StatusNotFound:
		fmt.Printf("%s %s: %s\n", missMark, loc.Name(), outcome.Reason)
		return nil
	default:
		return fmt.Errorf("%s: %w", loc.Name(), outcome.Err)
	}
}
