package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stethoscope-api/internal/model"
	"github.com/Brownie44l1/stethoscope-api/internal/report"
	"github.com/Brownie44l1/stethoscope-api/internal/store"
	"github.com/Brownie44l1/stethoscope-api/internal/worker"
)

var (
	predictSave bool
	predictJSON bool
)

var predictCmd = &cobra.Command{
	Use:   "predict <wav>...",
	Short: "Classify WAV recordings",
	Long: `Classify one or more WAV recordings.

The model is loaded once, on the first recording. Files are processed in
order; a file that cannot be decoded does not stop the others. The command
fails if any recording produced no prediction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

// fileResult is one line of --json output.
type fileResult struct {
	File string `json:"file"`
	model.PredictionResponse
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	svc := model.NewService(newLoader(cfg.Model), model.WithLogger(logger))
	defer svc.Close()

	runner := worker.NewRunner(svc, len(args), logger, nil)
	defer runner.Close()

	st := store.New(cfg.Output.Dir, logger, nil)
	styles := report.NewStyles(report.DefaultTheme)
	out := cmd.OutOrStdout()

	var results []fileResult
	failed := 0
	for _, path := range args {
		res, err := runner.Run(cmd.Context(), path)
		if err != nil {
			return err
		}

		resp := res.Response()
		if !res.HasPrediction() {
			failed++
		} else if predictSave {
			saved, err := st.Save(path, res.Label, res.Spectrogram)
			if err != nil {
				logger.Error("Failed to save spectrogram", slog.String("path", path), slog.String("error", err.Error()))
				failed++
			}
			resp.SavedTo = saved
		}

		if predictJSON {
			results = append(results, fileResult{File: path, PredictionResponse: resp})
			continue
		}
		fmt.Fprintln(out, report.Render(styles, filepath.Base(path), res))
		if resp.SavedTo != "" {
			fmt.Fprintf(out, "saved %s\n", resp.SavedTo)
		}
	}

	if predictJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d recordings produced no prediction", failed, len(args))
	}
	return nil
}

func init() {
	predictCmd.Flags().BoolVar(&predictSave, "save", false, "save each spectrogram as <name>_<label>.npy in the output dir")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(predictCmd)
}
