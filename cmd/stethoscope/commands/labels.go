package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/stethoscope-api/internal/model"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List class labels in model output order",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for i, name := range model.Labels.Names() {
			fmt.Fprintf(out, "%d\t%s\n", i, name)
		}
		if verbose {
			fmt.Fprintf(out, "threshold: %.2f (below it the label is %s)\n", model.ConfidenceThreshold, model.LabelUnknown)
		}
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
}
