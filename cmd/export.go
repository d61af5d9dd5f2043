package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/modelstore"
	"github.com/kozaktomas/eigenface/internal/pipeline"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write eigenfaces and reconstructions as PNG",
	Long: `Write the eigenfaces of every saved model to <subject>/eigenfaces/ (the
directory is recreated) and the reconstruction of each test crop by every
model to <subject>/reconstructions/<model>reconstruction<i>.png.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Bool("train", false, "Train in memory instead of loading saved models")
	exportCmd.Flags().Bool("skip-reconstructions", false, "Only write eigenfaces")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	p, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	layout, src := crops(p)

	var recs []*modelstore.Record
	if mustGetBool(cmd, "train") {
		recs, err = pipeline.Train(p, src)
	} else {
		var st *stores
		st, err = openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		recs, err = modelstore.Load(ctx, st.reader(), p.SubjectNames())
	}
	if err != nil {
		return err
	}

	for _, rec := range recs {
		n, err := pipeline.ExportEigenfaces(layout, rec)
		if err != nil {
			return fmt.Errorf("subject %s: %w", rec.Subject, err)
		}
		fmt.Printf("%s: %d eigenfaces written to %s\n", rec.Subject, n, layout.EigenfacesDir(rec.Subject))
	}

	if mustGetBool(cmd, "skip-reconstructions") {
		return nil
	}
	report, err := pipeline.Test(p, src, recs)
	if err != nil {
		return err
	}
	n, err := pipeline.ExportReconstructions(layout, report, p.ROISize.Width, p.ROISize.Height)
	if err != nil {
		return err
	}
	fmt.Printf("%d reconstructions written\n", n)
	return nil
}
