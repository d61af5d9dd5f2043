// Package postgres stores subject models in PostgreSQL. Model arrays are
// kept as double precision arrays so a loaded model reconstructs exactly
// like the trained one; training projections are pgvector vectors so the
// nearest training sample can be found in SQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gonum.org/v1/gonum/mat"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/modelstore"
)

// Store implements modelstore.Store.
type Store struct {
	pool *Pool
}

var _ modelstore.Store = (*Store)(nil)

// NewStore creates a model store on pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Nearest is a training sample and its Euclidean distance to a query.
type Nearest struct {
	SampleID string
	Distance float64
}

// Save replaces the subject's model and training samples in one transaction.
func (s *Store) Save(ctx context.Context, rec *modelstore.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	key := modelstore.Key(rec.Subject)
	return s.pool.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM models WHERE subject_key = $1", key); err != nil {
			return fmt.Errorf("delete previous model: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO models (id, subject_key, subject, width, height, components, mean, eigenvalues, eigenvectors, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			rec.ID,
			key,
			rec.Subject,
			rec.Width,
			rec.Height,
			rec.Components,
			pq.Array(rec.Model.Mean()),
			pq.Array(rec.Model.Eigenvalues()),
			pq.Array(rec.Model.Eigenvectors().RawMatrix().Data),
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert model %s: %w", rec.Subject, err)
		}

		for i, sample := range rec.Training {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO training_samples (model_id, position, sample_id, coords)
				VALUES ($1, $2, $3, $4::vector)
			`, rec.ID, i, sample.ID, pgvector.NewVector(toFloat32(sample.Coords)))
			if err != nil {
				return fmt.Errorf("insert training sample %s: %w", sample.ID, err)
			}
		}
		return nil
	})
}

// Get loads the model of subject. Training coordinates come back with
// single precision.
func (s *Store) Get(ctx context.Context, subject string) (*modelstore.Record, error) {
	rows, err := s.pool.Query(ctx, selectModels+" WHERE subject_key = $1", modelstore.Key(subject))
	if err != nil {
		return nil, fmt.Errorf("query model: %w", err)
	}
	recs, err := s.scanRecords(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", modelstore.ErrNotFound, subject)
	}
	return recs[0], nil
}

// List returns every stored model ordered by subject key.
func (s *Store) List(ctx context.Context) ([]*modelstore.Record, error) {
	rows, err := s.pool.Query(ctx, selectModels+" ORDER BY subject_key")
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	return s.scanRecords(ctx, rows)
}

// Delete removes the model of subject and its training samples.
func (s *Store) Delete(ctx context.Context, subject string) error {
	res, err := s.pool.Exec(ctx, "DELETE FROM models WHERE subject_key = $1", modelstore.Key(subject))
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", modelstore.ErrNotFound, subject)
	}
	return nil
}

// NearestTraining returns the training sample of subject's model whose
// projection is closest to coords.
func (s *Store) NearestTraining(ctx context.Context, subject string, coords []float64) (*Nearest, error) {
	var n Nearest
	err := s.pool.QueryRow(ctx, `
		SELECT t.sample_id, t.coords <-> $2::vector AS distance
		FROM training_samples t
		JOIN models m ON m.id = t.model_id
		WHERE m.subject_key = $1
		ORDER BY distance, t.position
		LIMIT 1
	`, modelstore.Key(subject), pgvector.NewVector(toFloat32(coords))).Scan(&n.SampleID, &n.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no training samples for %s", modelstore.ErrNotFound, subject)
	}
	if err != nil {
		return nil, fmt.Errorf("query nearest training sample: %w", err)
	}
	return &n, nil
}

const selectModels = `
	SELECT id, subject, width, height, components, mean, eigenvalues, eigenvectors, created_at
	FROM models`

func (s *Store) scanRecords(ctx context.Context, rows *sql.Rows) ([]*modelstore.Record, error) {
	defer rows.Close()

	var recs []*modelstore.Record
	for rows.Next() {
		var (
			rec                             modelstore.Record
			mean, eigenvalues, eigenvectors []float64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Subject, &rec.Width, &rec.Height, &rec.Components,
			pq.Array(&mean), pq.Array(&eigenvalues), pq.Array(&eigenvectors), &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		k := len(eigenvalues)
		if k == 0 || len(eigenvectors) != len(mean)*k {
			return nil, fmt.Errorf("%w: model %s has %d eigenvector values for %dx%d",
				eigenface.ErrShape, rec.Subject, len(eigenvectors), len(mean), k)
		}
		m, err := eigenface.NewModel(mean, eigenvalues, mat.NewDense(len(mean), k, eigenvectors))
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", rec.Subject, err)
		}
		rec.Model = m
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	rows.Close()

	for _, rec := range recs {
		training, err := s.trainingSamples(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Training = training
	}
	return recs, nil
}

func (s *Store) trainingSamples(ctx context.Context, modelID uuid.UUID) ([]modelstore.TrainingSample, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sample_id, coords FROM training_samples WHERE model_id = $1 ORDER BY position
	`, modelID)
	if err != nil {
		return nil, fmt.Errorf("query training samples: %w", err)
	}
	defer rows.Close()

	var samples []modelstore.TrainingSample
	for rows.Next() {
		var (
			id  string
			vec pgvector.Vector
		)
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("scan training sample: %w", err)
		}
		samples = append(samples, modelstore.TrainingSample{ID: id, Coords: toFloat64(vec.Slice())})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training samples: %w", err)
	}
	return samples, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
