// Package shape builds drawable annotation objects from a tool
// selection and a pointer position, with the default geometry used by
// the evaluation canvas.
package shape

import (
	"fmt"

	"anotador/internal/geometry"
)

// Tool identifies the active drawing tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
	ToolHighlight Tool = "highlight"
	ToolArrow     Tool = "arrow"
)

// Default geometry for freshly created shapes.
const (
	defaultRectWidth   = 100
	defaultRectHeight  = 60
	defaultRadius      = 40
	highlightWidth     = 100
	highlightHeight    = 20
	arrowLength        = 100
	arrowHeadSize      = 10
	defaultStrokeWidth = 2
	defaultFontSize    = 16

	// Placeholder content for the text tool; the viewer puts the node
	// into edit mode immediately, so this is what the user overwrites.
	TextPlaceholder = "Escribe aquí..."
)

// Primitive is one drawable element. Arrows are composed of two
// primitives grouped into a single shape.
type Primitive struct {
	Kind        string        `json:"kind"` // rect, circle, text, line, triangle
	Rect        geometry.Rect `json:"rect"`
	Radius      float64       `json:"radius,omitempty"`
	Angle       float64       `json:"angle,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"stroke_width,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"font_size,omitempty"`
}

// Shape is one annotation object on the canvas. Primitives move and
// resize together; a shape stays selectable and editable after the
// active tool changes.
type Shape struct {
	Tool       Tool        `json:"tool"`
	Primitives []Primitive `json:"primitives"`
	Selectable bool        `json:"selectable"`
	Editing    bool        `json:"editing,omitempty"`
}

// New constructs a shape for the given tool anchored at the pointer
// position. The pointer is not validated against canvas bounds: a
// shape placed outside the visible area is the caller's problem, not
// an error.
func New(tool Tool, colorHex string, p geometry.Point) (*Shape, error) {
	switch tool {
	case ToolRectangle:
		return &Shape{
			Tool:       tool,
			Selectable: true,
			Primitives: []Primitive{{
				Kind:        "rect",
				Rect:        geometry.Rect{Left: p.X, Top: p.Y, Width: defaultRectWidth, Height: defaultRectHeight},
				Stroke:      colorHex,
				StrokeWidth: defaultStrokeWidth,
				Fill:        "transparent",
			}},
		}, nil

	case ToolCircle:
		return &Shape{
			Tool:       tool,
			Selectable: true,
			Primitives: []Primitive{{
				Kind:        "circle",
				Rect:        geometry.Rect{Left: p.X, Top: p.Y, Width: 2 * defaultRadius, Height: 2 * defaultRadius},
				Radius:      defaultRadius,
				Stroke:      colorHex,
				StrokeWidth: defaultStrokeWidth,
				Fill:        "transparent",
			}},
		}, nil

	case ToolText:
		return &Shape{
			Tool:       tool,
			Selectable: true,
			Editing:    true,
			Primitives: []Primitive{{
				Kind:     "text",
				Rect:     geometry.Rect{Left: p.X, Top: p.Y},
				Text:     TextPlaceholder,
				Fill:     colorHex,
				FontSize: defaultFontSize,
			}},
		}, nil

	case ToolHighlight:
		// A filled rectangle straddling the pointer, with the alpha
		// channel appended to the hex color.
		return &Shape{
			Tool:       tool,
			Selectable: true,
			Primitives: []Primitive{{
				Kind: "rect",
				Rect: geometry.Rect{
					Left:   p.X - highlightWidth/2,
					Top:    p.Y - highlightHeight/2,
					Width:  highlightWidth,
					Height: highlightHeight,
				},
				Fill: colorHex + "40",
			}},
		}, nil

	case ToolArrow:
		// Horizontal line plus a triangular head rotated to point along
		// it, grouped as one movable unit.
		return &Shape{
			Tool:       tool,
			Selectable: true,
			Primitives: []Primitive{
				{
					Kind:        "line",
					Rect:        geometry.Rect{Left: p.X, Top: p.Y, Width: arrowLength, Height: 0},
					Stroke:      colorHex,
					StrokeWidth: defaultStrokeWidth,
				},
				{
					Kind: "triangle",
					Rect: geometry.Rect{
						Left:   p.X + arrowLength,
						Top:    p.Y - arrowHeadSize/2,
						Width:  arrowHeadSize,
						Height: arrowHeadSize,
					},
					Angle: 90,
					Fill:  colorHex,
				},
			},
		}, nil
	}

	return nil, fmt.Errorf("no shape for tool %q", tool)
}

// Bounds returns the bounding box covering every primitive.
func (s *Shape) Bounds() geometry.Rect {
	if len(s.Primitives) == 0 {
		return geometry.Rect{}
	}
	b := s.Primitives[0].Rect
	right, bottom := b.Right(), b.Bottom()
	for _, p := range s.Primitives[1:] {
		if p.Rect.Left < b.Left {
			b.Left = p.Rect.Left
		}
		if p.Rect.Top < b.Top {
			b.Top = p.Rect.Top
		}
		if r := p.Rect.Right(); r > right {
			right = r
		}
		if bt := p.Rect.Bottom(); bt > bottom {
			bottom = bt
		}
	}
	b.Width = right - b.Left
	b.Height = bottom - b.Top
	return b
}

// MoveTo translates the whole shape so its bounding box starts at the
// given position. Grouped primitives keep their relative offsets.
func (s *Shape) MoveTo(p geometry.Point) {
	b := s.Bounds()
	dx, dy := p.X-b.Left, p.Y-b.Top
	for i := range s.Primitives {
		s.Primitives[i].Rect.Left += dx
		s.Primitives[i].Rect.Top += dy
	}
}

// Resize scales every primitive around the bounding box origin.
func (s *Shape) Resize(scaleX, scaleY float64) {
	b := s.Bounds()
	for i := range s.Primitives {
		pr := &s.Primitives[i]
		pr.Rect.Left = b.Left + (pr.Rect.Left-b.Left)*scaleX
		pr.Rect.Top = b.Top + (pr.Rect.Top-b.Top)*scaleY
		pr.Rect.Width *= scaleX
		pr.Rect.Height *= scaleY
		if pr.Radius > 0 {
			pr.Radius *= scaleX
		}
	}
}
