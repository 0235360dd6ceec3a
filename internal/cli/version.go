// internal/cli/version.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/chromabuild"
	"github.com/arc-language/chromabuild/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := version.FromPackageVersion(config.PackageVersion)
		if err != nil {
			return err
		}
		fmt.Printf("chromabuild version %s\n", chromabuild.Version)
		fmt.Printf("Package version %s binds chromaprint %s\n", config.PackageVersion, tag)
		fmt.Println("https://github.com/arc-language/chromabuild")
		return nil
	},
}
