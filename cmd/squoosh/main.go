// Command squoosh encodes, decodes, and resizes images using the bundled
// codec modules.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
)

var (
	version = "0.1.0"

	verbose bool
	mode    string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "squoosh",
	Short: "Image codec toolbox: WebP, AVIF, JPEG XL, MozJPEG, resize",
	Long: `squoosh encodes, decodes, and resizes images with the same codec
modules the library exposes. Input formats are detected from the file
contents; output formats follow the chosen codec or the output extension.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := dispatchMode().Validate(); err != nil {
			return err
		}
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = l
		}
		return nil
	},
}

func dispatchMode() squooshkit.Mode {
	return squooshkit.Mode(mode)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", string(squooshkit.ModeWorker), "dispatch mode: worker or client")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"squoosh %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "squoosh: %v\n", err)
		os.Exit(1)
	}
}
