package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func regularFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	return fontTTF, fontErr
}

// RasterOptions controls PNG preview rendering.
type RasterOptions struct {
	Width      int
	Height     int
	Background string
	// Padding is the margin in pixels around the fitted content.
	Padding float64
}

// Rasterizer paints draw commands onto an image, fitting their bounds into
// the target size.
type Rasterizer struct {
	opts  RasterOptions
	faces map[float64]font.Face
}

// NewRasterizer creates a rasterizer. Zero sizes default to 1024x768.
func NewRasterizer(opts RasterOptions) *Rasterizer {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 768
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	return &Rasterizer{opts: opts, faces: make(map[float64]font.Face)}
}

// Rasterize paints commands and returns the image.
func (r *Rasterizer) Rasterize(commands []DrawCommand) (image.Image, error) {
	dc, err := r.paint(commands)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG paints commands and encodes the result as PNG.
func (r *Rasterizer) WritePNG(w io.Writer, commands []DrawCommand) error {
	dc, err := r.paint(commands)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func (r *Rasterizer) paint(commands []DrawCommand) (*gg.Context, error) {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	if r.opts.Background != "" {
		dc.SetColor(ParseColor(r.opts.Background, 1))
		dc.Clear()
	}
	view := r.viewMatrix(Bounds(commands))
	for _, c := range commands {
		m := view.Multiply(c.Matrix())
		switch c.Op {
		case "path":
			r.drawPath(dc, m, c.Path)
		case "text":
			if c.Text != nil {
				if err := r.drawText(dc, m, *c.Text); err != nil {
					return nil, err
				}
			}
		}
	}
	return dc, nil
}

func (r *Rasterizer) viewMatrix(b Rect) Matrix2D {
	if b.Width <= 0 && b.Height <= 0 {
		return Translate(float64(r.opts.Width)/2-b.X, float64(r.opts.Height)/2-b.Y)
	}
	availW := float64(r.opts.Width) - 2*r.opts.Padding
	availH := float64(r.opts.Height) - 2*r.opts.Padding
	s := math.Inf(1)
	if b.Width > 0 {
		s = availW / b.Width
	}
	if b.Height > 0 {
		s = math.Min(s, availH/b.Height)
	}
	if s <= 0 || math.IsInf(s, 0) {
		s = 1
	}
	ox := r.opts.Padding + (availW-b.Width*s)/2 - b.X*s
	oy := r.opts.Padding + (availH-b.Height*s)/2 - b.Y*s
	return Translate(ox, oy).Multiply(Scale(s, s))
}

func (r *Rasterizer) drawPath(dc *gg.Context, m Matrix2D, ops []PathOp) {
	scale := m.ScaleFactor()
	var cur r2.Point
	has := false
	for _, op := range ops {
		switch op.Kind {
		case OpMoveTo:
			x, y := m.TransformPoint(op.X, op.Y)
			dc.MoveTo(x, y)
			cur, has = r2.Point{X: x, Y: y}, true
		case OpLineTo:
			x, y := m.TransformPoint(op.X, op.Y)
			dc.LineTo(x, y)
			cur, has = r2.Point{X: x, Y: y}, true
		case OpArc:
			x, y := m.TransformPoint(op.X, op.Y)
			end := r2.Point{X: x, Y: y}
			if !has {
				dc.MoveTo(x, y)
			} else if center, ok := arcCenter(cur, end, op.SignedRadius()*scale); ok {
				a1, a2 := geometry.ArcAngles(center, cur, end, op.Sweep)
				dc.DrawArc(center.X, center.Y, op.Radius*scale, a1, a2)
			} else {
				dc.LineTo(x, y)
			}
			cur, has = end, true
		case OpClose:
			dc.ClosePath()
		case OpFill:
			dc.SetColor(ParseColor(op.Color, op.Alpha))
			dc.FillPreserve()
		case OpStroke:
			dc.SetColor(ParseColor(op.Color, op.Alpha))
			dc.SetLineWidth(math.Max(op.Width*scale, 0.5))
			if len(op.Dash) > 0 {
				dash := make([]float64, len(op.Dash))
				for i, d := range op.Dash {
					dash[i] = d * scale
				}
				dc.SetDash(dash...)
			} else {
				dc.SetDash()
			}
			dc.StrokePreserve()
			// A stroke ends the current figure.
			dc.ClearPath()
			has = false
		}
	}
	dc.ClearPath()
}

// arcCenter solves the arc center, accepting a radius equal to half the
// chord up to rounding.
func arcCenter(p1, p2 r2.Point, radius float64) (r2.Point, bool) {
	if c, ok := geometry.CircleCenterFromRadiusChecked(p1, p2, radius); ok {
		return c, true
	}
	d := geometry.Distance(p1, p2)
	if d > 0 && math.Abs(math.Abs(radius)-d/2) <= d*1e-9 {
		return p1.Add(p2).Mul(0.5), true
	}
	return r2.Point{}, false
}

func (r *Rasterizer) drawText(dc *gg.Context, m Matrix2D, t TextSpec) error {
	size := math.Round(t.Size*m.ScaleFactor()*2) / 2
	if size < 1 || t.Content == "" {
		return nil
	}
	face, err := r.face(size)
	if err != nil {
		return err
	}
	x, y := m.TransformPoint(t.X, t.Y)
	rot := m.RotationAngle() + geometry.DegToRad(t.Angle)

	dc.Push()
	defer dc.Pop()
	dc.SetFontFace(face)
	dc.SetColor(ParseColor(t.Color, 1))
	if rot != 0 {
		dc.RotateAbout(rot, x, y)
	}
	dc.DrawStringAnchored(t.Content, x, y, t.AnchorX, t.AnchorY)
	return nil
}

func (r *Rasterizer) face(size float64) (font.Face, error) {
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	ttf, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size})
	r.faces[size] = f
	return f, nil
}

// ParseColor parses "#rgb", "#rrggbb", "#rrggbbaa" or a CSS colour name and
// multiplies its alpha by alpha. Unknown colours are opaque grey.
func ParseColor(s string, alpha float64) color.Color {
	c := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			hex += "ff"
		}
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil && len(hex) == 8 {
			c = color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
		}
	} else if named, ok := colornames.Map[s]; ok {
		c = color.NRGBA{R: named.R, G: named.G, B: named.B, A: named.A}
	}
	alpha = math.Max(0, math.Min(1, alpha))
	c.A = uint8(math.Round(float64(c.A) * alpha))
	return c
}
