package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/pipeline"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Train and test every subject in one run",
	Long: `Train a model per subject in memory, classify every subject's test crops
against all models and print the per-model MSE vectors followed by the
accuracy line. Nothing is saved unless --save is given.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().Bool("json", false, "Output as JSON")
	evaluateCmd.Flags().Bool("save", false, "Save the trained models")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	p, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	_, src := crops(p)

	recs, report, err := pipeline.Evaluate(p, src)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "save") {
		ctx := context.Background()
		st, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		for _, rec := range recs {
			if err := st.save(ctx, rec); err != nil {
				return fmt.Errorf("saving model %s: %w", rec.Subject, err)
			}
		}
	}

	if mustGetBool(cmd, "json") {
		return report.WriteJSON(os.Stdout)
	}
	report.WriteMSE(os.Stdout)
	fmt.Println()
	return report.WriteTable(os.Stdout)
}
