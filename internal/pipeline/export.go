package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/faces"
	"github.com/kozaktomas/eigenface/internal/imagestore"
	"github.com/kozaktomas/eigenface/internal/modelstore"
)

// ExportEigenfaces recreates the subject's eigenfaces directory and writes
// eigenface<i>.png for every component plus mean.png. Eigenfaces are
// contrast stretched, the mean face is written as is.
func ExportEigenfaces(layout imagestore.Layout, rec *modelstore.Record) (int, error) {
	dir := layout.EigenfacesDir(rec.Subject)
	if err := imagestore.ResetDir(dir); err != nil {
		return 0, err
	}

	for i := range rec.Components {
		g := &eigenface.Grid{Width: rec.Width, Height: rec.Height, Pix: rec.Model.Eigenvector(i)}
		path := filepath.Join(dir, fmt.Sprintf("eigenface%d.png", i))
		if err := imagestore.SavePNG(path, faces.GridImage(g, true)); err != nil {
			return i, err
		}
	}

	mean := &eigenface.Grid{Width: rec.Width, Height: rec.Height, Pix: rec.Model.Mean()}
	if err := imagestore.SavePNG(filepath.Join(dir, "mean.png"), faces.GridImage(mean, false)); err != nil {
		return rec.Components, err
	}
	return rec.Components, nil
}

// ExportReconstructions writes the reconstruction of every test crop by
// every model to <subject>/reconstructions/<model>reconstruction<i>.png,
// where i is the crop's position in the subject's test list.
func ExportReconstructions(layout imagestore.Layout, report *Report, width, height int) (int, error) {
	var written int
	for _, s := range report.Subjects {
		dir := layout.ReconstructionsDir(s.Subject)
		for m, score := range s.Classification.Scores {
			for i := range s.IDs {
				g := eigenface.RowGrid(score.Reconstruction, i, width, height)
				path := filepath.Join(dir, fmt.Sprintf("%sreconstruction%d.png", report.Models[m], i))
				if err := imagestore.SavePNG(path, faces.GridImage(g, false)); err != nil {
					return written, err
				}
				written++
			}
		}
	}
	return written, nil
}
