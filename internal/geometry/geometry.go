// Package geometry converts between viewport pixel rectangles and
// document-normalized fractional coordinates.
//
// Annotations are stored with normalized coordinates only. Pixel
// rectangles are a render-time representation recomputed on every zoom
// or resize, so both conversion directions must divide the zoom factor
// out consistently: a rectangle normalized at 150% zoom has to land on
// the same spot when rendered back at 100%.
package geometry

// Point is a pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a pixel rectangle ({left, top, width, height}), in the same
// coordinate space as the container it is measured against.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizedRect is a rectangle expressed as fractions of a container,
// {x0, y0, x1, y1} in [0, 1]. It is independent of zoom level.
type NormalizedRect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Right returns the pixel x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the pixel y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Unscaled returns the rectangle with the current zoom factor divided
// back out. zoomPercent is the session zoom (100 = no scaling). Passing
// a non-positive zoom returns the rectangle unchanged.
func (r Rect) Unscaled(zoomPercent int) Rect {
	if zoomPercent <= 0 || zoomPercent == 100 {
		return r
	}
	f := float64(zoomPercent) / 100
	return Rect{
		Left:   r.Left / f,
		Top:    r.Top / f,
		Width:  r.Width / f,
		Height: r.Height / f,
	}
}

// Scaled is the inverse of Unscaled.
func (r Rect) Scaled(zoomPercent int) Rect {
	if zoomPercent <= 0 || zoomPercent == 100 {
		return r
	}
	f := float64(zoomPercent) / 100
	return Rect{
		Left:   r.Left * f,
		Top:    r.Top * f,
		Width:  r.Width * f,
		Height: r.Height * f,
	}
}

// ToNormalized converts a pixel rectangle to container fractions. Both
// rectangles must be in the same, unscaled coordinate space; callers
// working with zoomed measurements apply Unscaled first, on both.
// A degenerate container (zero width or height) yields the zero rect.
func ToNormalized(pixel, container Rect) NormalizedRect {
	if container.Width == 0 || container.Height == 0 {
		return NormalizedRect{}
	}
	return NormalizedRect{
		X0: (pixel.Left - container.Left) / container.Width,
		Y0: (pixel.Top - container.Top) / container.Height,
		X1: (pixel.Right() - container.Left) / container.Width,
		Y1: (pixel.Bottom() - container.Top) / container.Height,
	}
}

// ToPixels converts a normalized rectangle back to pixels for the given
// container rect.
func ToPixels(n NormalizedRect, container Rect) Rect {
	return Rect{
		Left:   container.Left + n.X0*container.Width,
		Top:    container.Top + n.Y0*container.Height,
		Width:  (n.X1 - n.X0) * container.Width,
		Height: (n.Y1 - n.Y0) * container.Height,
	}
}

// ClampToContainer nudges a rectangle inward so it does not overflow
// the container, keeping at least margin pixels from every edge. This
// is a presentation nicety for comment boxes placed near an edge; the
// stored coordinates are never clamped.
func ClampToContainer(r, container Rect, margin float64) Rect {
	maxLeft := container.Left + container.Width - r.Width - margin
	maxTop := container.Top + container.Height - r.Height - margin

	if r.Left > maxLeft {
		r.Left = maxLeft
	}
	if r.Top > maxTop {
		r.Top = maxTop
	}
	if r.Left < container.Left+margin {
		r.Left = container.Left + margin
	}
	if r.Top < container.Top+margin {
		r.Top = container.Top + margin
	}
	return r
}
