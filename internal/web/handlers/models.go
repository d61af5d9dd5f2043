package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/eigenface/internal/pipeline"
)

// ModelsHandler lists the loaded subject models.
type ModelsHandler struct {
	gallery *pipeline.Gallery
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(g *pipeline.Gallery) *ModelsHandler {
	return &ModelsHandler{gallery: g}
}

// ModelResponse describes one loaded model.
type ModelResponse struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Components      int       `json:"components"`
	Eigenvalues     []float64 `json:"eigenvalues"`
	TrainingSamples []string  `json:"training_samples"`
	CreatedAt       time.Time `json:"created_at"`
}

// List returns the models in classification order.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	recs := h.gallery.Records()
	resp := make([]ModelResponse, 0, len(recs))
	for _, rec := range recs {
		ids := make([]string, len(rec.Training))
		for i, s := range rec.Training {
			ids[i] = s.ID
		}
		resp = append(resp, ModelResponse{
			ID:              rec.ID.String(),
			Subject:         rec.Subject,
			Width:           rec.Width,
			Height:          rec.Height,
			Components:      rec.Components,
			Eigenvalues:     rec.Model.Eigenvalues(),
			TrainingSamples: ids,
			CreatedAt:       rec.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
