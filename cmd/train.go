package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/modelstore"
	"github.com/kozaktomas/eigenface/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build one eigenface model per subject",
	Long: `Build an eigenface model for each subject from its training crops and save
it to MODEL_DIR (and to PostgreSQL when DATABASE_URL is set).

Any missing crop, wrong crop size or invalid component count aborts the run
before anything is saved.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringSlice("subject", nil, "Subjects to train (default all)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	p, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	subjects, err := selectSubjects(p, mustGetStringSlice(cmd, "subject"))
	if err != nil {
		return err
	}
	_, src := crops(p)

	fmt.Printf("Training %d subjects (%dx%d crops, %d components)\n\n",
		len(subjects), p.ROISize.Width, p.ROISize.Height, p.ComponentCount)

	bar := progressbar.NewOptions(len(subjects),
		progressbar.OptionSetDescription("Training"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("subjects"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	recs := make([]*modelstore.Record, 0, len(subjects))
	for _, s := range subjects {
		rec, err := pipeline.TrainSubject(p, s, src)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		bar.Add(1)
	}
	fmt.Println()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, rec := range recs {
		if err := st.save(ctx, rec); err != nil {
			return fmt.Errorf("saving model %s: %w", rec.Subject, err)
		}
		fmt.Printf("\n%s (%d training crops)\n", rec.Subject, len(rec.Training))
		fmt.Printf("  eigenvalues: %s\n", formatFloats(rec.Model.Eigenvalues()))
	}

	fmt.Printf("\nSaved %d models to %s\n", len(recs), cfg.ModelDir)
	if st.pg != nil {
		fmt.Println("Models also saved to PostgreSQL")
	}
	return nil
}

func formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
