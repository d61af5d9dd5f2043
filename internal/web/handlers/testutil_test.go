package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/eigenface/internal/config"
	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/faces"
	"github.com/kozaktomas/eigenface/internal/pipeline"
)

const testROI = 4

// testGallery trains a dark "arnold" and a bright "barack" model on
// 4x4 crops.
func testGallery(t *testing.T) *pipeline.Gallery {
	t.Helper()
	p := &config.Pipeline{
		ROISize:        config.ROISize{Width: testROI, Height: testROI},
		ComponentCount: 3,
		Subjects: []config.Subject{
			{Name: "arnold", Train: []string{"1", "2", "3", "4", "5", "6"}},
			{Name: "barack", Train: []string{"1", "2", "3", "4", "5", "6"}},
		},
	}
	rng := rand.New(rand.NewSource(3))
	sources := map[string]eigenface.MapSource{"arnold": {}, "barack": {}}
	for i := 1; i <= 6; i++ {
		for name, base := range map[string]float64{"arnold": 20, "barack": 200} {
			g := eigenface.NewGrid(testROI, testROI)
			for j := range g.Pix {
				g.Pix[j] = base + 10*rng.Float64()
			}
			sources[name][fmt.Sprint(i)] = g
		}
	}

	recs, err := pipeline.Train(p, func(s string) eigenface.SampleSource { return sources[s] })
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	g, err := pipeline.NewGallery(recs)
	if err != nil {
		t.Fatalf("NewGallery: %v", err)
	}
	return g
}

// grayPNG encodes a w×h image filled with v, with the rectangle r filled
// with inner.
func grayPNG(t *testing.T, w, h int, v uint8, r image.Rectangle, inner uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if (image.Point{X: x, Y: y}).In(r) {
				img.Pix[y*img.Stride+x] = inner
			} else {
				img.Pix[y*img.Stride+x] = v
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// uploadRequest builds a multipart classify request.
func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/classify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// fakeDetector returns fixed boxes or an error.
type fakeDetector struct {
	boxes []faces.Box
	err   error
}

func (f *fakeDetector) Detect(ctx context.Context, imageData []byte) ([]faces.Box, error) {
	return f.boxes, f.err
}
