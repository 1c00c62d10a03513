package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/avif"
	"github.com/bnowak008/squoosh-kit-sub000/bridge"
	"github.com/bnowak008/squoosh-kit-sub000/jxl"
	"github.com/bnowak008/squoosh-kit-sub000/mozjpeg"
	"github.com/bnowak008/squoosh-kit-sub000/webp"
)

var decodeFormats = map[string]string{
	".webp": "webp",
	".avif": "avif",
	".jxl":  "jxl",
	".jpg":  "mozjpeg",
	".jpeg": "mozjpeg",
}

var (
	decodeFormat string
	decodeOut    string
)

var decodeCmd = &cobra.Command{
	Use:   "decode <input>",
	Short: "Decode a compressed image to PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", "", "source codec (default: from the input extension)")
	decodeCmd.Flags().StringVarP(&decodeOut, "out", "o", "", "output file (default: input with .png)")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(decodeFormat)
	if format == "" {
		format = decodeFormats[strings.ToLower(extOf(args[0]))]
	}
	if format == "" {
		return fmt.Errorf("cannot infer codec from %q, pass --format", args[0])
	}

	out := decodeOut
	if out == "" {
		out = strings.TrimSuffix(args[0], extOf(args[0])) + ".png"
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	img, err := decodeWith(cmd.Context(), format, data)
	if err != nil {
		return err
	}
	if err := savePixels(img, out); err != nil {
		return err
	}
	logger.Info("decoded",
		zap.String("format", format),
		zap.String("out", out),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
	)
	fmt.Printf("%s (%dx%d)\n", out, img.Width, img.Height)
	return nil
}

func decodeWith(ctx context.Context, format string, data []byte) (*squooshkit.ImageBuffer, error) {
	md := dispatchMode()
	withLog := bridge.WithLogger(logger)

	switch format {
	case "webp":
		dec, err := webp.NewDecoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer dec.Terminate(context.WithoutCancel(ctx))
		return dec.Decode(ctx, data)

	case "avif":
		dec, err := avif.NewDecoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer dec.Terminate(context.WithoutCancel(ctx))
		return dec.Decode(ctx, data)

	case "jxl":
		dec, err := jxl.NewDecoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer dec.Terminate(context.WithoutCancel(ctx))
		return dec.Decode(ctx, data)

	case "mozjpeg":
		dec, err := mozjpeg.NewDecoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer dec.Terminate(context.WithoutCancel(ctx))
		return dec.Decode(ctx, data)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
