package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chronobooth/internal/bootstrap"
	"chronobooth/internal/capture"
	"chronobooth/internal/compositor"
	"chronobooth/internal/storage"
	"chronobooth/internal/transform"
)

type frameOptions struct {
	era         string
	catalogPath string
	scale       float64
	rotate      float64
	offsetX     float64
	offsetY     float64
	autofit     bool
	format      string
	outDir      string
}

func newFrameCmd() *cobra.Command {
	opts := frameOptions{scale: 1}

	cmd := &cobra.Command{
		Use:   "frame <image>",
		Short: "Compose a portrait onto the submission canvas",
		Long: `Renders an image through the framing transform exactly as the API submits
it to the generation gateway, and writes the result under --out.`,
		Example: `  # Cover-fit a portrait
  framectl frame me.jpg

  # Zoom in, tilt and nudge left, filed under an era
  framectl frame me.jpg --era cyberpunk_2077 --scale 1.4 --rotate -8 --offset-x -30

  # Let smart cropping pick the framing
  framectl frame me.jpg --autofit --format webp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := runFrame(cmd.Context(), args[0], opts, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.era, "era", "", "Era id the output is filed under")
	f.StringVar(&opts.catalogPath, "catalog", "", "Era catalog YAML file (defaults to the built-in catalog)")
	f.Float64Var(&opts.scale, "scale", 1, "Zoom factor, clamped to [0.5, 5]")
	f.Float64Var(&opts.rotate, "rotate", 0, "Rotation in degrees, clamped to [-180, 180]")
	f.Float64Var(&opts.offsetX, "offset-x", 0, "Horizontal pan")
	f.Float64Var(&opts.offsetY, "offset-y", 0, "Vertical pan")
	f.BoolVar(&opts.autofit, "autofit", false, "Pick the framing with smart cropping; overrides the transform flags")
	f.StringVar(&opts.format, "format", "jpeg", "Output format: jpeg, png or webp")
	f.StringVarP(&opts.outDir, "out", "o", "framed", "Output directory")

	return cmd
}

// runFrame returns the path of the written frame.
func runFrame(ctx context.Context, input string, opts frameOptions, now time.Time) (string, error) {
	format, err := compositor.ParseFormat(opts.format)
	if err != nil {
		return "", err
	}
	if opts.era != "" {
		cat, err := bootstrap.LoadCatalog(opts.catalogPath)
		if err != nil {
			return "", err
		}
		if _, err := cat.Lookup(opts.era); err != nil {
			return "", err
		}
	}

	file, err := os.Open(input)
	if err != nil {
		return "", err
	}
	defer file.Close()
	raw, err := capture.NewFileSource(file, 0).Produce(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", input, err)
	}

	t := transform.Identity()
	if opts.autofit {
		if t, err = compositor.Suggest(ctx, raw.Image); err != nil {
			return "", fmt.Errorf("autofit: %w", err)
		}
	} else {
		t.SetScale(opts.scale)
		t.RotateTo(opts.rotate)
		t.PanBy(opts.offsetX, opts.offsetY)
		t = t.Normalize()
	}

	data, err := compositor.Encode(compositor.Render(raw.Image, t), format)
	if err != nil {
		return "", err
	}
	store, err := storage.NewFileStore(opts.outDir)
	if err != nil {
		return "", err
	}
	key, err := store.Write(ctx, storage.FrameKey(input, opts.era, format.Ext(), now), data)
	if err != nil {
		return "", err
	}
	return store.Path(key), nil
}
