// internal/cli/bindgen.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-language/chromabuild/pkg/bindgen"
)

var (
	bindgenOutput  string
	bindgenPackage string
	bindgenTrim    string
	bindgenDefines []string
	bindgenLDFlags []string
)

var bindgenCmd = &cobra.Command{
	Use:   "bindgen [header]",
	Short: "Generate a cgo binding for a header",
	Long: `Parse a C header and print the generated cgo binding, without
acquiring anything.

Examples:
  chromabuild bindgen /usr/include/chromaprint.h
  chromabuild bindgen chromaprint.h --trim-prefix=chromaprint_ -o bindings.go`,
	Args: cobra.ExactArgs(1),
	RunE: runBindgen,
}

func init() {
	bindgenCmd.Flags().StringVarP(&bindgenOutput, "output", "o", "", "write to a file instead of stdout")
	bindgenCmd.Flags().StringVar(&bindgenPackage, "package", bindgen.DefaultPackage, "Go package name")
	bindgenCmd.Flags().StringVar(&bindgenTrim, "trim-prefix", "", "prefix removed from C function names")
	bindgenCmd.Flags().StringSliceVarP(&bindgenDefines, "define", "D", nil, "predefined macro, NAME or NAME=VALUE")
	bindgenCmd.Flags().StringSliceVar(&bindgenLDFlags, "ldflags", []string{"-lchromaprint"}, "#cgo LDFLAGS")
}

func runBindgen(cmd *cobra.Command, args []string) error {
	h, err := bindgen.ParseFile(args[0], bindgenDefines...)
	if err != nil {
		return err
	}

	src, err := bindgen.Generate(h, bindgen.Options{
		Package:    bindgenPackage,
		LDFlags:    bindgenLDFlags,
		TrimPrefix: bindgenTrim,
	})
	if err != nil {
		return err
	}

	if bindgenOutput == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	if err := os.WriteFile(bindgenOutput, src, 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %d functions, %d types -> %s\n", okMark, len(h.Functions), len(h.Types), bindgenOutput)
	return nil
}
