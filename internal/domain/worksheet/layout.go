package worksheet

import "fmt"

// Page geometry in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 10.0
	Gap        = 5.0
)

// Size is the pixel size of a source image.
type Size struct {
	Width  int
	Height int
}

// Placement is where one item lands, in millimetres from the top-left corner
// of its page. Page is zero-based.
type Placement struct {
	Item   Item
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Plan is the full layout of a worksheet.
type Plan struct {
	Placements []Placement
	Pages      int
}

// Fit scales an image to the printable width, or to the printable height
// when that would overflow the page.
func Fit(s Size) (w, h float64) {
	maxW := PageWidth - 2*Margin
	maxH := PageHeight - 2*Margin
	w = maxW
	h = float64(s.Height) * w / float64(s.Width)
	if h > maxH {
		h = maxH
		w = float64(s.Width) * h / float64(s.Height)
	}
	return w, h
}

// Layout places every item. sizes must be parallel to items.
//
// A question always begins on a fresh page. Anything that does not fit the
// remaining height moves to the next page, and once the cursor passes the
// bottom margin the next item starts a new page.
func Layout(items []Item, sizes []Size) (Plan, error) {
	if len(items) != len(sizes) {
		return Plan{}, fmt.Errorf("layout: %d items, %d sizes", len(items), len(sizes))
	}
	if len(items) == 0 {
		return Plan{}, nil
	}

	bottom := PageHeight - Margin
	plan := Plan{Placements: make([]Placement, 0, len(items))}
	page, y := 0, Margin
	atStart := true

	for i, it := range items {
		s := sizes[i]
		if s.Width <= 0 || s.Height <= 0 {
			return Plan{}, fmt.Errorf("layout: %s has invalid size %dx%d", it.LabelID, s.Width, s.Height)
		}

		if it.Kind == KindQuestion && !atStart {
			page++
			y = Margin
			atStart = true
		}

		w, h := Fit(s)
		if y+h > bottom {
			page++
			y = Margin
		}

		plan.Placements = append(plan.Placements, Placement{
			Item:   it,
			Page:   page,
			X:      (PageWidth - w) / 2,
			Y:      y,
			Width:  w,
			Height: h,
		})
		atStart = false
		y += h + Gap

		if i < len(items)-1 && y > bottom {
			page++
			y = Margin
			atStart = true
		}
	}

	plan.Pages = page + 1
	return plan, nil
}
