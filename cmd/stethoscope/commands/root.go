package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stethoscope-api/internal/config"
	"github.com/Brownie44l1/stethoscope-api/internal/logging"
	"github.com/Brownie44l1/stethoscope-api/internal/model"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

// newLoader builds the classifier loader; tests swap it for a fake.
var newLoader = func(cfg config.ModelConfig) model.Loader {
	return model.ONNXLoader(model.ONNXConfig{
		ModelPath:   cfg.Path,
		LibraryPath: cfg.LibraryPath,
		InputName:   cfg.InputName,
		OutputName:  cfg.OutputName,
	})
}

var rootCmd = &cobra.Command{
	Use:   "stethoscope",
	Short: "Classify respiratory sound recordings",
	Long: `stethoscope - classify lung sound recordings with a mel spectrogram CNN.

Each WAV file is decoded, turned into a 128x128 dB mel spectrogram, and
scored against six conditions. Predictions below 0.70 confidence are
reported as Unknown.

Examples:
  # Classify recordings and show a report
  stethoscope predict patient_101.wav patient_102.wav

  # Emit JSON and keep the spectrograms as .npy files
  stethoscope predict --json --save patient_101.wav

  # Only build spectrograms
  stethoscope spectrogram -o out/ patient_101.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads the configuration and builds the logger for a command.
// Without a config file only warnings are logged unless -v is given.
func setup() (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logCfg := cfg.Logging
	switch {
	case verbose:
		logCfg.Level = "debug"
	case configPath == "":
		logCfg.Level = "warn"
	}

	logger, closeLog := logging.New(logCfg)
	return cfg, logger, closeLog, nil
}
