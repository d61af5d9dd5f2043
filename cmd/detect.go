package cmd

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/faces"
	"github.com/kozaktomas/eigenface/internal/imagestore"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect faces and save ROI crops",
	Long: `Run the face detector over every photo of each subject and save the crop
of the first detected face, resized to the pipeline's ROI size, to
<data_dir>/<subject>/faces/<id>.png.

A photo without any detection stops the run with the photo's identifier.
Photos not yet sent to the detector are skipped.

Examples:
  # Crop all subjects
  eigenface detect

  # Only arnold, also saving the photos with the box drawn on them
  eigenface detect --subject arnold --overlay`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Int("concurrency", 5, "Number of parallel detector requests")
	detectCmd.Flags().StringSlice("subject", nil, "Subjects to process (default all)")
	detectCmd.Flags().Bool("overlay", false, "Also save photos with the detected box to images_with_roi/")
}

type detectJob struct {
	subject string
	id      string
	dir     *imagestore.Dir
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	concurrency := mustGetInt(cmd, "concurrency")
	overlay := mustGetBool(cmd, "overlay")
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
	}

	p, err := loadPipeline(cfg)
	if err != nil {
		return err
	}
	subjects, err := selectSubjects(p, mustGetStringSlice(cmd, "subject"))
	if err != nil {
		return err
	}
	layout, _ := crops(p)

	var jobs []detectJob
	for _, s := range subjects {
		dir := &imagestore.Dir{Path: layout.SubjectDir(s.Name)}
		ids, err := dir.List()
		if err != nil {
			return fmt.Errorf("subject %s: %w", s.Name, err)
		}
		fmt.Printf("%s: %d photos\n", s.Name, len(ids))
		for _, id := range ids {
			jobs = append(jobs, detectJob{subject: s.Name, id: id, dir: dir})
		}
	}
	if len(jobs) == 0 {
		fmt.Println("No photos found")
		return nil
	}

	detector := faces.NewClient(cfg.Detector.URL)
	fmt.Printf("Using face detector at %s\n\n", cfg.Detector.URL)

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("Detecting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	saved, err := detectAll(context.Background(), detector, layout, p.ROISize, jobs, concurrency, overlay, func() { bar.Add(1) })
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("\nCompleted: %d crops saved\n", saved)
	return nil
}

// detectAll runs detectOne over jobs with at most concurrency requests in
// flight. The first failure cancels the remaining jobs and is returned.
func detectAll(ctx context.Context, detector faces.Detector, layout imagestore.Layout, roi config.ROISize,
	jobs []detectJob, concurrency int, overlay bool, done func(),
) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var firstErr error
	var saved int
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(j detectJob) {
			defer wg.Done()
			defer done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}

			err := detectOne(ctx, detector, layout, roi, j, overlay)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			saved++
		}(job)
	}

	wg.Wait()
	return saved, firstErr
}

// detectOne crops the first detected face of one photo.
func detectOne(ctx context.Context, detector faces.Detector, layout imagestore.Layout, roi config.ROISize, j detectJob, overlay bool) error {
	data, err := j.dir.Read(j.id)
	if err != nil {
		return fmt.Errorf("subject %s: %w", j.subject, err)
	}
	img, err := imagestore.DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("subject %s photo %s: %w", j.subject, j.id, err)
	}

	boxes, err := detector.Detect(ctx, data)
	if err != nil {
		return fmt.Errorf("subject %s photo %s: %w", j.subject, j.id, err)
	}
	box, err := faces.FirstBox(boxes, j.id)
	if err != nil {
		return fmt.Errorf("subject %s: %w", j.subject, err)
	}

	crop, err := faces.Crop(img, box, roi.Width, roi.Height)
	if err != nil {
		return fmt.Errorf("subject %s photo %s: %w", j.subject, j.id, err)
	}
	if err := imagestore.SavePNG(filepath.Join(layout.FacesDir(j.subject), j.id+".png"), crop); err != nil {
		return err
	}

	if overlay {
		marked := faces.Outline(img, box, color.RGBA{G: 255, A: 255}, 2)
		if err := imagestore.SavePNG(filepath.Join(layout.OverlayDir(j.subject), j.id+".png"), marked); err != nil {
			return err
		}
	}
	return nil
}
