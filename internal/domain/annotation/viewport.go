package annotation

// Viewport describes how a drawing surface is displayed: its on-screen box
// and its intrinsic resolution.
type Viewport struct {
	Left          float64
	Top           float64
	DisplayWidth  float64
	DisplayHeight float64
	Width         float64
	Height        float64
}

// Map converts screen coordinates into surface coordinates. A viewport
// without display size maps 1:1 relative to its origin.
func (v Viewport) Map(clientX, clientY float64) Point {
	scaleX, scaleY := 1.0, 1.0
	if v.DisplayWidth > 0 && v.Width > 0 {
		scaleX = v.Width / v.DisplayWidth
	}
	if v.DisplayHeight > 0 && v.Height > 0 {
		scaleY = v.Height / v.DisplayHeight
	}
	return Point{
		X: (clientX - v.Left) * scaleX,
		Y: (clientY - v.Top) * scaleY,
	}
}

// Local converts screen coordinates into unscaled offsets within the box,
// where a floating text input is placed.
func (v Viewport) Local(clientX, clientY float64) Point {
	return Point{X: clientX - v.Left, Y: clientY - v.Top}
}
