// internal/cli/strategies.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/chromabuild/pkg/platform"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List acquisition strategies in the order they are tried",
	RunE:  runStrategies,
}

func runStrategies(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	spec := p.Spec()
	fmt.Printf("Target: %s\n", spec.Target)
	fmt.Printf("Dependency: %s\n\n", spec)
	fmt.Printf("Strategies:\n")
	for i, s := range p.Strategies() {
		marker := " "
		if s == platform.StrategySource {
			marker = "*"
		}
		fmt.Printf("  %d. %s %s\n", i+1, marker, s)
	}
	fmt.Printf("\n* = builds from source (%s mode)\n", config.Source.Mode)

	return nil
}
