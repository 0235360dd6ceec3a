// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arc-language/chromabuild"
	"github.com/arc-language/chromabuild/pkg/core"
)

var (
	cfgFile        string
	envFile        string
	debug          bool
	outDir         string
	static         bool
	fft            string
	sourceMode     string
	packageVersion string
	prebuiltPath   string
	config         *core.Config
	logger         *logrus.Logger
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	missMark = color.New(color.FgYellow).Sprint("-")
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chromabuild",
	Short: "Acquire chromaprint and generate its cgo binding",
	Long: `chromabuild - native build helper for chromaprint

Finds or builds the chromaprint library pinned to the consuming package's
version, prints the linker directives to stdout and writes a cgo binding
for every function in chromaprint.h.`,
	Version:           chromabuild.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute executes the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// PrintError reports err on stderr the way every command does
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", failMark, color.RedString("Error: %v", err))
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./chromabuild.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading CHROMABUILD_* variables")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.StringVar(&outDir, "out-dir", "", "output directory for sources, builds and the binding")
	flags.BoolVar(&static, "static", false, "link chromaprint statically")
	flags.StringVar(&fft, "fft", "", "FFT backend: avfft, fftw3, kissfft or vdsp")
	flags.StringVar(&sourceMode, "source-mode", "", "source acquisition: clone, intree or archive")
	flags.StringVar(&packageVersion, "package-version", "", "version of the consuming package")
	flags.StringVar(&prebuiltPath, "prebuilt", "", "prebuilt development package to try first")

	// Add commands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(bindgenCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig layers the config file, the environment and the flags
func initConfig(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if err := core.ApplyEnv(config, nil); err != nil {
		return err
	}

	// Override config with flags
	flags := cmd.Flags()
	if flags.Changed("out-dir") {
		config.OutDir = outDir
	}
	if flags.Changed("static") {
		config.Static = static
	}
	if flags.Changed("fft") {
		config.FFT = fft
	}
	if flags.Changed("source-mode") {
		config.Source.Mode = sourceMode
	}
	if flags.Changed("package-version") {
		config.PackageVersion = packageVersion
	}
	if flags.Changed("prebuilt") {
		config.Prebuilt = prebuiltPath
	}
	if debug {
		config.Debug = true
	}

	logger = logrus.New()
	logger.SetOutput(os.Stderr)
	if config.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	return nil
}

func newPipeline() (*chromabuild.Pipeline, error) {
	return chromabuild.NewPipeline(&chromabuild.Options{
		Config: config,
		Stdout: os.Stdout,
		Logger: logger,
	})
}
