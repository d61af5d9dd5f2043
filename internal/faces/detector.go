package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultDetectorURL = "http://localhost:8000"

// ErrNoFaceDetected is returned when the detector finds no candidate box.
var ErrNoFaceDetected = errors.New("faces: no face detected")

// NoFaceDetectedError names the image the detector came back empty for.
type NoFaceDetectedError struct {
	ID string
}

func (e *NoFaceDetectedError) Error() string {
	return fmt.Sprintf("faces: no face detected in %q", e.ID)
}

func (e *NoFaceDetectedError) Unwrap() error { return ErrNoFaceDetected }

// Box is an axis-aligned face box in image pixel coordinates.
type Box struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score"`
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Detector finds candidate face boxes in an encoded image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Box, error)
}

// FirstBox applies the single-detection policy: the first box returned by
// the detector is the face, the rest are ignored. An empty result is an
// error naming id.
func FirstBox(boxes []Box, id string) (Box, error) {
	if len(boxes) == 0 {
		return Box{}, &NoFaceDetectedError{ID: id}
	}
	return boxes[0], nil
}

// Client calls a face detection server over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a detector client. An empty baseURL uses the local default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// detection represents a single detected face
type detection struct {
	FaceIndex int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// detectResponse represents the response from the face endpoint
type detectResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []detection `json:"faces"`
	Model      string      `json:"model"`
}

// Detect posts the image to /embed/face and returns the boxes in the order
// the server reported them.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Box, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	boxes := make([]Box, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.BBox) != 4 {
			return nil, fmt.Errorf("face %d: bbox has %d values, want 4", f.FaceIndex, len(f.BBox))
		}
		boxes = append(boxes, cornerToBox(f.BBox, f.DetScore))
	}
	return boxes, nil
}

// cornerToBox converts [x1, y1, x2, y2] to an origin+size box.
func cornerToBox(bbox []float64, score float64) Box {
	x1, y1 := int(bbox[0]), int(bbox[1])
	x2, y2 := int(bbox[2]), int(bbox[3])
	return Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1, Score: score}
}

func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", http.DetectContentType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
