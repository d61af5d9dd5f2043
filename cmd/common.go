package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/imagestore"
	"github.com/kozaktomas/eigenface/internal/modelstore"
	"github.com/kozaktomas/eigenface/internal/modelstore/postgres"
	"github.com/kozaktomas/eigenface/internal/pipeline"
)

// loadPipeline reads the pipeline file named by --pipeline or EIGENFACE_PIPELINE.
func loadPipeline(cfg *config.Config) (*config.Pipeline, error) {
	path := cfg.PipelinePath
	if pipelinePath != "" {
		path = pipelinePath
	}
	p, err := config.LoadPipeline(path)
	if err != nil {
		return nil, fmt.Errorf("loading pipeline: %w", err)
	}
	return p, nil
}

// crops returns the source of the ROI crops under the pipeline's data dir.
func crops(p *config.Pipeline) (imagestore.Layout, pipeline.SourceFunc) {
	layout := imagestore.Layout{Root: p.DataDir}
	return layout, func(subject string) eigenface.SampleSource {
		return layout.Faces(subject)
	}
}

// stores holds the model stores a command writes to and reads from.
type stores struct {
	file *modelstore.FileStore
	pg   *postgres.Store // nil without DATABASE_URL
	pool *postgres.Pool
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	file, err := modelstore.NewFileStore(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("opening model dir: %w", err)
	}
	s := &stores{file: file}
	if cfg.Database.URL == "" {
		return s, nil
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	s.pool = pool
	s.pg = postgres.NewStore(pool)
	return s, nil
}

// reader prefers postgres when it is configured.
func (s *stores) reader() modelstore.Store {
	if s.pg != nil {
		return s.pg
	}
	return s.file
}

func (s *stores) save(ctx context.Context, rec *modelstore.Record) error {
	if err := s.file.Save(ctx, rec); err != nil {
		return err
	}
	if s.pg != nil {
		if err := s.pg.Save(ctx, rec); err != nil {
			return fmt.Errorf("saving to PostgreSQL: %w", err)
		}
	}
	return nil
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
