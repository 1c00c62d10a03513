package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bnowak008/squoosh-kit-sub000/bridge"
	"github.com/bnowak008/squoosh-kit-sub000/resize"
)

var (
	resizeWidth  int
	resizeHeight int
	resizeMethod string
	resizeOut    string
)

var resizeCmd = &cobra.Command{
	Use:   "resize <input>",
	Short: "Resize an image, deriving the missing dimension from the aspect ratio",
	Args:  cobra.ExactArgs(1),
	RunE:  runResize,
}

func init() {
	resizeCmd.Flags().IntVarP(&resizeWidth, "width", "W", 0, "target width in pixels")
	resizeCmd.Flags().IntVarP(&resizeHeight, "height", "H", 0, "target height in pixels")
	resizeCmd.Flags().StringVar(&resizeMethod, "method", string(resize.MethodLanczos3), "filter: triangle, catrom, mitchell, lanczos3")
	resizeCmd.Flags().StringVarP(&resizeOut, "out", "o", "", "output file (default: input with a size suffix)")
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	img, err := loadPixels(args[0])
	if err != nil {
		return err
	}

	opts := resize.DefaultOptions()
	opts.Width = resizeWidth
	opts.Height = resizeHeight
	opts.Method = resize.Method(resizeMethod)

	rz, err := resize.NewResizer(dispatchMode(), bridge.WithLogger(logger))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer rz.Terminate(context.WithoutCancel(ctx))

	out, err := rz.Resize(ctx, img, &opts)
	if err != nil {
		return err
	}

	path := resizeOut
	if path == "" {
		ext := extOf(args[0])
		path = fmt.Sprintf("%s.%dx%d%s", strings.TrimSuffix(args[0], ext), out.Width, out.Height, ext)
	}
	if err := savePixels(out, path); err != nil {
		return err
	}
	logger.Info("resized",
		zap.String("out", path),
		zap.Int("width", out.Width),
		zap.Int("height", out.Height),
	)
	fmt.Printf("%s (%dx%d)\n", path, out.Width, out.Height)
	return nil
}
