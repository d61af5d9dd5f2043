package faces

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/eigenface/internal/eigenface"
)

// ErrEmptyCrop is returned when a box does not overlap the image.
var ErrEmptyCrop = errors.New("faces: box does not overlap image")

// Crop cuts box out of img, clamped to the image bounds, and scales it to
// width×height with Catmull-Rom interpolation.
func Crop(img image.Image, box Box, width, height int) (*image.RGBA, error) {
	src := box.Rect().Add(img.Bounds().Min).Intersect(img.Bounds())
	if src.Empty() {
		return nil, fmt.Errorf("%w: box %v, image %v", ErrEmptyCrop, box.Rect(), img.Bounds())
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst, nil
}

// CropToGrid crops and resizes box to the ROI and converts it to grayscale.
func CropToGrid(img image.Image, box Box, width, height int) (*eigenface.Grid, error) {
	roi, err := Crop(img, box, width, height)
	if err != nil {
		return nil, err
	}
	return GridFromImage(roi), nil
}

// GridFromImage converts img to an ITU-R BT.601 grayscale grid of the same size.
func GridFromImage(img image.Image) *eigenface.Grid {
	b := img.Bounds()
	g := eigenface.NewGrid(b.Dx(), b.Dy())
	for y := range b.Dy() {
		for x := range b.Dx() {
			gray := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.Set(x, y, float64(gray.Y))
		}
	}
	return g
}

// Outline returns a copy of img with the border of box drawn in c.
func Outline(img image.Image, box Box, c color.Color, thickness int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)

	r := box.Rect().Add(b.Min)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(out, e.Intersect(b), image.NewUniform(c), image.Point{}, draw.Src)
	}
	return out
}

// Resize scales img to exactly width×height.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// GridImage renders a grid as an 8-bit grayscale image. Values are
// min-max stretched to 0..255 when stretch is set, clamped otherwise.
func GridImage(g *eigenface.Grid, stretch bool) *image.Gray {
	lo, hi := 0.0, 255.0
	if stretch && len(g.Pix) > 0 {
		lo, hi = g.Pix[0], g.Pix[0]
		for _, v := range g.Pix {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	span := hi - lo
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for y := range g.Height {
		for x := range g.Width {
			v := g.At(x, y)
			if span > 0 {
				v = 255 * (v - lo) / span
			} else {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: uint8(min(255, max(0, v+0.5)))})
		}
	}
	return img
}
