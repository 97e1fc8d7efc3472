package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stethoscope-api/internal/spectrogram"
	"github.com/Brownie44l1/stethoscope-api/internal/store"
)

// spectrogramLabel names files written without a prediction.
const spectrogramLabel = "Spectrogram"

var (
	spectrogramOutDir string
	spectrogramPNG    int
)

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <wav>...",
	Short: "Build and save mel spectrograms",
	Long: `Build the 128x128 dB mel spectrogram of each recording and save it as
<name>_Spectrogram.npy. No model is needed.

With --png N a grayscale preview is also written as <name>_Spectrogram.png,
each cell drawn as an N x N block.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpectrogram,
}

func runSpectrogram(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	dir := spectrogramOutDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	st := store.New(dir, logger, nil)
	builder := spectrogram.NewBuilder(logger)
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		spec, err := builder.Build(spectrogram.FromFile(path))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed++
			continue
		}

		saved, err := st.Save(path, spectrogramLabel, spec)
		if err != nil {
			logger.Error("Failed to save spectrogram", slog.String("path", path), slog.String("error", err.Error()))
			failed++
			continue
		}
		fmt.Fprintf(out, "%s -> %s %v\n", path, saved, spec.Shape)

		if spectrogramPNG > 0 {
			img, err := spectrogram.Image(spec, spectrogramPNG)
			if err == nil {
				saved, err = st.SaveImage(path, spectrogramLabel, img)
			}
			if err != nil {
				logger.Error("Failed to save spectrogram image", slog.String("path", path), slog.String("error", err.Error()))
				failed++
				continue
			}
			fmt.Fprintf(out, "%s -> %s\n", path, saved)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d spectrograms failed", failed, len(args))
	}
	return nil
}

func init() {
	spectrogramCmd.Flags().StringVarP(&spectrogramOutDir, "output", "o", "", "output directory (default from config)")
	spectrogramCmd.Flags().IntVar(&spectrogramPNG, "png", 0, "also write a PNG preview scaled by this factor")
	rootCmd.AddCommand(spectrogramCmd)
}
