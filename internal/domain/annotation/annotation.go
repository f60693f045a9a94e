// Package annotation models freehand marks and text labels drawn over a
// question image or its mark scheme. Coordinates are stored in the drawing
// surface's intrinsic resolution so they can be replayed at any display size.
package annotation

import (
	"fmt"
	"math"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// Hit-test constants, in surface pixels.
const (
	// HitRadius is the eraser distance to any point of a stroke.
	HitRadius = 15.0
	// LabelHitHalfWidth and LabelHitHalfHeight bound the box around a label anchor.
	LabelHitHalfWidth  = 50.0
	LabelHitHalfHeight = 20.0
	// DefaultColor is used for strokes and labels.
	DefaultColor = "#ef4444"
)

// Surface identifies which image of a question is being annotated.
type Surface string

// Surface constants.
const (
	SurfaceQuestion   Surface = "question"
	SurfaceMarkscheme Surface = "markscheme"
)

// Surfaces lists every surface in undo priority order.
var Surfaces = []Surface{SurfaceQuestion, SurfaceMarkscheme}

// ParseSurface validates a surface name.
func ParseSurface(s string) (Surface, error) {
	switch Surface(s) {
	case SurfaceQuestion, SurfaceMarkscheme:
		return Surface(s), nil
	default:
		return "", fmt.Errorf("%w: unknown surface %q", domain.ErrInvalidInput, s)
	}
}

// Point is a position on the drawing surface.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Path is a committed freehand stroke.
type Path struct {
	Points []Point
	Color  string
}

// near reports whether any point of the stroke lies within HitRadius of p.
func (s Path) near(p Point) bool {
	for _, q := range s.Points {
		if q.Distance(p) < HitRadius {
			return true
		}
	}
	return false
}

// Label is a text annotation anchored at its baseline start.
type Label struct {
	X     float64
	Y     float64
	Text  string
	Color string
}

func (l Label) near(p Point) bool {
	return math.Abs(l.X-p.X) < LabelHitHalfWidth && math.Abs(l.Y-p.Y) < LabelHitHalfHeight
}

// DrawingData is everything drawn on one surface of one question.
type DrawingData struct {
	Paths  []Path
	Labels []Label
}

// IsEmpty reports whether nothing is drawn.
func (d DrawingData) IsEmpty() bool {
	return len(d.Paths) == 0 && len(d.Labels) == 0
}

// Segment is a line piece painted incrementally while a stroke is in progress.
type Segment struct {
	From  Point
	To    Point
	Color string
}
