package faces

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFirstBox(t *testing.T) {
	boxes := []Box{{X: 1, Y: 2, Width: 3, Height: 4}, {X: 9, Y: 9, Width: 9, Height: 9}}

	got, err := FirstBox(boxes, "1.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != boxes[0] {
		t.Errorf("FirstBox() = %+v, want %+v", got, boxes[0])
	}

	_, err = FirstBox(nil, "7.jpg")
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
	var nf *NoFaceDetectedError
	if !errors.As(err, &nf) || nf.ID != "7.jpg" {
		t.Errorf("expected NoFaceDetectedError for 7.jpg, got %v", err)
	}
}

func TestClientDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": 2,
			"model":       "buffalo_l",
			"faces": []map[string]any{
				{"face_index": 0, "bbox": []float64{10, 20, 60, 90}, "det_score": 0.9},
				{"face_index": 1, "bbox": []float64{100, 100, 120, 130}, "det_score": 0.5},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	boxes, err := client.Detect(context.Background(), []byte("fake image bytes"))
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes))
	}
	want := Box{X: 10, Y: 20, Width: 50, Height: 70, Score: 0.9}
	if boxes[0] != want {
		t.Errorf("boxes[0] = %+v, want %+v", boxes[0], want)
	}
}

func TestClientDetect_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Detect(context.Background(), []byte("x"))
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestClientDetect_NoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces_count":0,"faces":[],"model":"buffalo_l"}`))
	}))
	defer server.Close()

	boxes, err := NewClient(server.URL).Detect(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if _, err := FirstBox(boxes, "empty.jpg"); !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestCropToGrid(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{0, 0, 0, 255}}, image.Point{}, draw.Src)
	white := image.Rect(50, 20, 90, 60)
	draw.Draw(img, white, &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	grid, err := CropToGrid(img, Box{X: 50, Y: 20, Width: 40, Height: 40}, 10, 10)
	if err != nil {
		t.Fatalf("CropToGrid() error: %v", err)
	}
	if grid.Width != 10 || grid.Height != 10 || len(grid.Pix) != 100 {
		t.Fatalf("unexpected grid size %dx%d (%d pixels)", grid.Width, grid.Height, len(grid.Pix))
	}
	if v := grid.At(5, 5); v < 250 {
		t.Errorf("expected white center, got %v", v)
	}
}

func TestCrop_OutsideImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	_, err := Crop(img, Box{X: 20, Y: 20, Width: 5, Height: 5}, 4, 4)
	if !errors.Is(err, ErrEmptyCrop) {
		t.Errorf("expected ErrEmptyCrop, got %v", err)
	}
}

func TestGridFromImage_Luma(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 0, 255, 255})

	g := GridFromImage(img)
	// BT.601: 0.299*255 ≈ 76, 0.114*255 ≈ 29
	if v := g.At(0, 0); v < 75 || v > 77 {
		t.Errorf("red luma = %v, want ~76", v)
	}
	if v := g.At(1, 0); v < 28 || v > 30 {
		t.Errorf("blue luma = %v, want ~29", v)
	}
}

func TestGridImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{0, 128, 255}
	g := GridFromImage(img)

	out := GridImage(g, false)
	for i, want := range []uint8{0, 128, 255} {
		if out.Pix[i] != want {
			t.Errorf("clamped pixel %d = %d, want %d", i, out.Pix[i], want)
		}
	}

	g.Pix = []float64{-0.5, 0, 0.5}
	out = GridImage(g, true)
	if out.Pix[0] != 0 || out.Pix[2] != 255 {
		t.Errorf("stretched pixels = %v, want 0..255", out.Pix)
	}
}

func TestNormalizeSubjectName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Arnold", "arnold"},
		{"Jiří Novák", "jiri novak"},
		{"barack-obama", "barack obama"},
		{"  Barack_Obama ", "barack obama"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeSubjectName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeSubjectName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestOutline(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	red := color.RGBA{255, 0, 0, 255}

	out := Outline(img, Box{X: 2, Y: 2, Width: 5, Height: 5}, red, 1)
	if got := out.RGBAAt(2, 4); got != red {
		t.Errorf("left edge = %v, want red", got)
	}
	if got := out.RGBAAt(6, 6); got != red {
		t.Errorf("bottom-right corner = %v, want red", got)
	}
	if got := out.RGBAAt(4, 4); got == red {
		t.Error("interior should not be drawn")
	}
	if img.GrayAt(2, 2).Y != 0 {
		t.Error("source image was modified")
	}

	// Boxes reaching past the border are clipped.
	Outline(img, Box{X: 8, Y: 8, Width: 5, Height: 5}, red, 2)
}
