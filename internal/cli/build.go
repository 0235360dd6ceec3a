// internal/cli/build.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Acquire chromaprint and generate its binding",
	Long: `Try each acquisition strategy in order, print the linker directives
of the first that succeeds and write bindings.go and link.yaml to the
output directory.

Examples:
  chromabuild build
  chromabuild build --static --fft=kissfft
  chromabuild build --source-mode=intree --package-version=1.5.2`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	art, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s %s %s via %s (%s)\n", okMark, p.Spec().Name, art.Result.Version, art.Result.Strategy, art.Result.LinkMode)
	fmt.Fprintf(os.Stderr, "  binding:  %s\n", art.BindingsPath)
	fmt.Fprintf(os.Stderr, "  manifest: %s\n", art.ManifestPath)
	return nil
}
