// internal/cli/resolve.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-language/chromabuild/pkg/directive"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Acquire chromaprint and print its linker directives",
	Long:  `Run the acquisition strategies without generating a binding.`,
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	result, err := p.Resolve(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s %s %s via %s\n", okMark, p.Spec().Name, result.Version, result.Strategy)
	return directive.Emit(os.Stdout, directive.FromResult(result))
}
