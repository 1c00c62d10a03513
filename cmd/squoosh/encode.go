package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
	"github.com/bnowak008/squoosh-kit-sub000/avif"
	"github.com/bnowak008/squoosh-kit-sub000/bridge"
	"github.com/bnowak008/squoosh-kit-sub000/jxl"
	"github.com/bnowak008/squoosh-kit-sub000/mozjpeg"
	"github.com/bnowak008/squoosh-kit-sub000/webp"
)

var encodeExtensions = map[string]string{
	"webp":    ".webp",
	"avif":    ".avif",
	"jxl":     ".jxl",
	"mozjpeg": ".jpg",
}

var (
	encodeFormat  string
	encodeOut     string
	encodeQuality int
	encodeEffort  int
	encodeSpeed   int
	encodeTimeout time.Duration
)

var encodeCmd = &cobra.Command{
	Use:   "encode <input>",
	Short: "Encode an image to WebP, AVIF, JPEG XL, or MozJPEG",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncode,
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeFormat, "format", "f", "webp", "target codec: webp, avif, jxl, mozjpeg")
	encodeCmd.Flags().StringVarP(&encodeOut, "out", "o", "", "output file (default: input with the codec extension)")
	encodeCmd.Flags().IntVarP(&encodeQuality, "quality", "q", 75, "quality 0-100")
	encodeCmd.Flags().IntVar(&encodeEffort, "effort", 1, "jxl encoder effort 0-9")
	encodeCmd.Flags().IntVar(&encodeSpeed, "speed", 6, "avif encoder speed 0-10")
	encodeCmd.Flags().DurationVar(&encodeTimeout, "timeout", 0, "abort the operation after this duration")
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(encodeFormat)
	ext, ok := encodeExtensions[format]
	if !ok {
		return fmt.Errorf("unknown format %q", encodeFormat)
	}

	out := encodeOut
	if out == "" {
		out = strings.TrimSuffix(args[0], extOf(args[0])) + ext
	}

	img, err := loadPixels(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := operationContext(cmd.Context())
	defer cancel()

	start := time.Now()
	data, err := encodeWith(ctx, format, img)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("encoded",
		zap.String("format", format),
		zap.String("out", out),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Printf("%s (%d bytes)\n", out, len(data))
	return nil
}

func encodeWith(ctx context.Context, format string, img *squooshkit.ImageBuffer) ([]byte, error) {
	md := dispatchMode()
	withLog := bridge.WithLogger(logger)

	switch format {
	case "webp":
		enc, err := webp.NewEncoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer enc.Terminate(context.WithoutCancel(ctx))
		opts := webp.DefaultOptions()
		opts.Quality = encodeQuality
		return enc.Encode(ctx, img, &opts)

	case "avif":
		enc, err := avif.NewEncoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer enc.Terminate(context.WithoutCancel(ctx))
		opts := avif.DefaultOptions()
		opts.CQLevel = qualityToCQ(encodeQuality)
		opts.Speed = encodeSpeed
		return enc.Encode(ctx, img, &opts)

	case "jxl":
		enc, err := jxl.NewEncoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer enc.Terminate(context.WithoutCancel(ctx))
		opts := jxl.DefaultOptions()
		opts.Quality = encodeQuality
		opts.Effort = encodeEffort
		return enc.Encode(ctx, img, &opts)

	case "mozjpeg":
		enc, err := mozjpeg.NewEncoder(md, withLog)
		if err != nil {
			return nil, err
		}
		defer enc.Terminate(context.WithoutCancel(ctx))
		opts := mozjpeg.DefaultOptions()
		opts.Quality = encodeQuality
		return enc.Encode(ctx, img, &opts)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// qualityToCQ maps the familiar 0-100 quality scale onto the AVIF
// constant-quantizer scale, where 0 is best.
func qualityToCQ(quality int) int {
	cq := int(math.Round(float64(100-quality) * 63.0 / 100.0))
	if cq < 0 {
		cq = 0
	}
	if cq > 63 {
		cq = 63
	}
	return cq
}

func operationContext(parent context.Context) (context.Context, context.CancelFunc) {
	if encodeTimeout > 0 {
		return context.WithTimeout(parent, encodeTimeout)
	}
	return context.WithCancel(parent)
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsRune(path[i:], '/') {
		return path[i:]
	}
	return ""
}
