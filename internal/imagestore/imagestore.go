// Package imagestore maps sample identifiers to image files on disk.
//
// Layout under the data root, one directory per subject:
//
//	<root>/<subject>/<id>.jpg                  source photos
//	<root>/<subject>/faces/<id>.png            ROI crops
//	<root>/<subject>/images_with_roi/<id>.png  photos with the detected box
//	<root>/<subject>/eigenfaces/               exported eigenfaces
//	<root>/<subject>/reconstructions/          exported reconstructions
package imagestore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"

	"github.com/kozaktomas/eigenface/internal/eigenface"
	"github.com/kozaktomas/eigenface/internal/faces"
)

// Extensions recognized as images, in lookup order.
var Extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif"}

// Layout resolves subject directories under a data root.
type Layout struct {
	Root string
}

// SubjectDir holds a subject's source photos.
func (l Layout) SubjectDir(subject string) string {
	return filepath.Join(l.Root, subject)
}

// FacesDir holds a subject's ROI crops.
func (l Layout) FacesDir(subject string) string {
	return filepath.Join(l.Root, subject, "faces")
}

// EigenfacesDir holds a subject's exported eigenfaces.
func (l Layout) EigenfacesDir(subject string) string {
	return filepath.Join(l.Root, subject, "eigenfaces")
}

// ReconstructionsDir holds reconstructions of a subject's test crops.
func (l Layout) ReconstructionsDir(subject string) string {
	return filepath.Join(l.Root, subject, "reconstructions")
}

// OverlayDir holds source photos with the detected box drawn on them.
func (l Layout) OverlayDir(subject string) string {
	return filepath.Join(l.Root, subject, "images_with_roi")
}

// Faces returns the sample source over a subject's crops.
func (l Layout) Faces(subject string) *Dir {
	return &Dir{Path: l.FacesDir(subject)}
}

// Dir is an eigenface.SampleSource over the images of one directory.
// An identifier names a file with or without its image extension, so
// "img.01" resolves to img.01.png.
type Dir struct {
	Path string
}

// Find returns the path of the image for id.
func (d *Dir) Find(id string) (string, error) {
	candidates := []string{id}
	if !isImage(id) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, id+ext)
		}
	}
	for _, name := range candidates {
		p := filepath.Join(d.Path, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", eigenface.ErrMissingSample, id, d.Path)
}

// Read returns the raw bytes of the image for id.
func (d *Dir) Read(id string) ([]byte, error) {
	p, err := d.Find(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", eigenface.ErrMissingSample, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Decode loads and decodes the image for id.
func (d *Dir) Decode(id string) (image.Image, error) {
	data, err := d.Read(id)
	if err != nil {
		return nil, err
	}
	img, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return img, nil
}

// DecodeBytes decodes a JPEG, PNG, BMP or GIF image.
func DecodeBytes(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Sample implements eigenface.SampleSource with grayscale conversion.
func (d *Dir) Sample(id string) (*eigenface.Grid, error) {
	img, err := d.Decode(id)
	if err != nil {
		return nil, err
	}
	return faces.GridFromImage(img), nil
}

// List returns the identifiers (file names without extension) of every
// non-hidden image in the directory, sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", d.Path, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !isImage(name) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(ids)
	return ids, nil
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ResetDir removes dir and recreates it empty so no files from an
// earlier export survive.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
