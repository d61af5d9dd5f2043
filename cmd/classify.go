package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/modelstore"
	"github.com/kozaktomas/eigenface/internal/modelstore/postgres"
	"github.com/kozaktomas/eigenface/internal/pipeline"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify test crops against the saved models",
	Long: `Load the saved model of every pipeline subject and assign each test crop to
the model that reconstructs it with the lowest mean squared error. Ties go to
the model listed first in the pipeline.

The nearest training sample in the assigned model's face space is looked up
in an in-memory HNSW index, or in PostgreSQL with --nearest=sql.

Examples:
  eigenface classify
  eigenface classify --subject barack --json`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringSlice("subject", nil, "Subjects whose test crops are classified (default all)")
	classifyCmd.Flags().Bool("json", false, "Output as JSON")
	classifyCmd.Flags().String("nearest", "hnsw", "Nearest training sample lookup: hnsw or sql")
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	nearest := mustGetString(cmd, "nearest")
	if nearest != "hnsw" && nearest != "sql" {
		return fmt.Errorf("--nearest must be hnsw or sql, got %q", nearest)
	}

	p, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	subjects, err := selectSubjects(p, mustGetStringSlice(cmd, "subject"))
	if err != nil {
		return err
	}
	_, src := crops(p)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if nearest == "sql" && st.pg == nil {
		return errors.New("--nearest=sql requires DATABASE_URL")
	}

	recs, err := modelstore.Load(ctx, st.reader(), p.SubjectNames())
	if err != nil {
		if errors.Is(err, modelstore.ErrNotFound) {
			return fmt.Errorf("%w (run 'eigenface train' first)", err)
		}
		return err
	}

	report, err := pipeline.Test(withSubjects(p, subjects), src, recs)
	if err != nil {
		return err
	}
	if nearest == "sql" {
		if err := nearestFromSQL(ctx, st.pg, report); err != nil {
			return err
		}
	}

	if mustGetBool(cmd, "json") {
		return report.WriteJSON(os.Stdout)
	}
	return report.WriteTable(os.Stdout)
}

// nearestFromSQL replaces the in-memory nearest training samples with
// pgvector lookups.
func nearestFromSQL(ctx context.Context, store *postgres.Store, report *pipeline.Report) error {
	for si := range report.Subjects {
		s := &report.Subjects[si]
		for i, a := range s.Classification.Assigned {
			coords := s.Classification.Scores[a].Projection.RawRowView(i)
			n, err := store.NearestTraining(ctx, report.Models[a], coords)
			if err != nil {
				return fmt.Errorf("subject %s sample %s: %w", s.Subject, s.IDs[i], err)
			}
			s.Nearest[i].SampleID = n.SampleID
			s.Nearest[i].Distance = n.Distance
		}
	}
	return nil
}
