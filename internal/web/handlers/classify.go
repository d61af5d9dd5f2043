package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/faces"
	"github.com/kozaktomas/eigenface/internal/imagestore"
	"github.com/kozaktomas/eigenface/internal/pipeline"
)

// MaxUploadSize caps the multipart body of a classify request.
const MaxUploadSize = 32 << 20

// ClassifyHandler classifies uploaded face crops.
type ClassifyHandler struct {
	gallery  *pipeline.Gallery
	detector faces.Detector
}

// NewClassifyHandler creates a new classify handler. detector may be nil,
// in which case uploads must already be ROI-sized crops.
func NewClassifyHandler(g *pipeline.Gallery, detector faces.Detector) *ClassifyHandler {
	return &ClassifyHandler{gallery: g, detector: detector}
}

// ScoreResponse is the reconstruction error under one model.
type ScoreResponse struct {
	Subject string  `json:"subject"`
	MSE     float64 `json:"mse"`
}

// ClassifyResponse is the result of classifying one upload.
type ClassifyResponse struct {
	Subject         string          `json:"subject"`
	Scores          []ScoreResponse `json:"scores"`
	NearestSample   string          `json:"nearest_sample,omitempty"`
	NearestDistance float64         `json:"nearest_distance,omitempty"`
	Box             *faces.Box      `json:"box,omitempty"`
}

// Classify handles POST /api/v1/classify. The multipart field "file" holds
// the image; with detect=true the first detected face is cropped first.
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	img, err := imagestore.DecodeBytes(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	detect, _ := strconv.ParseBool(r.FormValue("detect"))
	id := filepath.Base(header.Filename)
	width, height := h.gallery.ROI()

	var (
		grid *eigenface.Grid
		box  *faces.Box
	)
	if detect {
		if h.detector == nil {
			respondError(w, http.StatusBadRequest, "face detection is not configured")
			return
		}
		boxes, err := h.detector.Detect(r.Context(), data)
		if err != nil {
			log.Printf("classify: face detection failed for %s: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusBadGateway, "face detection failed")
			return
		}
		first, err := faces.FirstBox(boxes, id)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		grid, err = faces.CropToGrid(img, first, width, height)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		box = &first
	} else {
		grid = faces.GridFromImage(img)
	}

	pred, err := h.gallery.Predict(id, grid)
	if err != nil {
		if errors.Is(err, eigenface.ErrDimensionMismatch) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("classify: %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	subjects := h.gallery.Subjects()
	resp := ClassifyResponse{
		Subject: pred.Subject,
		Scores:  make([]ScoreResponse, len(subjects)),
		Box:     box,
	}
	for i, name := range subjects {
		resp.Scores[i] = ScoreResponse{Subject: name, MSE: pred.MSE[i]}
	}
	if pred.Nearest != nil {
		resp.NearestSample = pred.Nearest.SampleID
		resp.NearestDistance = pred.Nearest.Distance
	}
	respondJSON(w, http.StatusOK, resp)
}
