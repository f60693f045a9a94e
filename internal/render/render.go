// Package render replays annotation data onto raster images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/annotation"
)

// Drawing style.
const (
	StrokeWidth   = 3.0
	LabelFontSize = 24.0

	// MaxDimension bounds a requested overlay side.
	MaxDimension = 8192

	capSegments = 12
)

var (
	faceOnce sync.Once
	face     font.Face
	errFace  error
)

func labelFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := opentype.Parse(gobold.TTF)
		if err != nil {
			errFace = fmt.Errorf("parse label font: %w", err)
			return
		}
		face, errFace = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    LabelFontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	})
	return face, errFace
}

// Overlay replays d onto a transparent surface of the given size.
// Coordinates are taken as surface pixels.
func Overlay(d annotation.DrawingData, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: overlay size %dx%d out of range", domain.ErrInvalidInput, width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := replay(dst, d); err != nil {
		return nil, err
	}
	return dst, nil
}

// Composite returns a copy of base with d drawn over it at base's native size.
func Composite(base image.Image, d annotation.DrawingData) (*image.RGBA, error) {
	b := base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Src)
	if err := replay(dst, d); err != nil {
		return nil, err
	}
	return dst, nil
}

// Resize scales img to the given width, keeping its aspect ratio. Neither
// side of the result exceeds MaxDimension.
func Resize(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	width = min(width, MaxDimension)
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height > MaxDimension {
		height = MaxDimension
		width = max(int(math.Round(float64(b.Dx())*float64(height)/float64(b.Dy()))), 1)
	}
	if height < 1 {
		height = 1
	}
	if width == b.Dx() && height == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func replay(dst *image.RGBA, d annotation.DrawingData) error {
	size := dst.Bounds().Size()
	for _, p := range d.Paths {
		r := vector.NewRasterizer(size.X, size.Y)
		strokePath(r, p.Points, StrokeWidth/2)
		r.Draw(dst, dst.Bounds(), image.NewUniform(ParseColor(p.Color)), image.Point{})
	}
	if len(d.Labels) == 0 {
		return nil
	}
	f, err := labelFace()
	if err != nil {
		return err
	}
	for _, l := range d.Labels {
		dr := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(ParseColor(l.Color)),
			Face: f,
			Dot:  fixed.Point26_6{X: fixed.Int26_6(l.X * 64), Y: fixed.Int26_6(l.Y * 64)},
		}
		dr.DrawString(l.Text)
	}
	return nil
}

// strokePath adds a polyline of half-width hw with round caps and joins.
// Every sub-shape is wound the same way so overlaps do not cancel.
func strokePath(r *vector.Rasterizer, pts []annotation.Point, hw float64) {
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		r.LineTo(float32(b.X+nx), float32(b.Y+ny))
		r.LineTo(float32(b.X-nx), float32(b.Y-ny))
		r.LineTo(float32(a.X-nx), float32(a.Y-ny))
		r.ClosePath()
	}
	for _, p := range pts {
		disc(r, p, hw)
	}
}

func disc(r *vector.Rasterizer, c annotation.Point, radius float64) {
	for i := 0; i <= capSegments; i++ {
		theta := -2 * math.Pi * float64(i) / capSegments
		x := float32(c.X + radius*math.Cos(theta))
		y := float32(c.Y + radius*math.Sin(theta))
		if i == 0 {
			r.MoveTo(x, y)
			continue
		}
		r.LineTo(x, y)
	}
	r.ClosePath()
}

// ParseColor parses #rgb or #rrggbb. Anything else yields the default color.
func ParseColor(s string) color.RGBA {
	c, ok := parseHex(s)
	if !ok {
		c, _ = parseHex(annotation.DefaultColor)
	}
	return c
}

func parseHex(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}
