package gpu

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	hudMargin     = 6
	hudLineHeight = 15
)

// HUD renders status lines for the top-left corner of a frame.
type HUD struct {
	face font.Face
	fg   image.Image
	bg   image.Image
}

func NewHUD() *HUD {
	return &HUD{
		face: basicfont.Face7x13,
		fg:   image.NewUniform(color.RGBA{R: 235, G: 235, B: 235, A: 255}),
		bg:   image.NewUniform(color.RGBA{A: 160}),
	}
}

// Panel renders lines onto a translucent panel anchored at the origin,
// cropped to width x height. It returns nil when there is nothing to show.
// The panel is premultiplied RGBA, ready to composite with draw.Over or a
// premultiplied blend.
func (h *HUD) Panel(lines []string, width, height int) *image.RGBA {
	if len(lines) == 0 || width <= 0 || height <= 0 {
		return nil
	}
	d := &font.Drawer{Src: h.fg, Face: h.face}
	w := 0
	for _, l := range lines {
		w = max(w, d.MeasureString(l).Ceil())
	}
	bounds := image.Rect(0, 0, w+2*hudMargin, len(lines)*hudLineHeight+hudMargin).Intersect(image.Rect(0, 0, width, height))
	panel := image.NewRGBA(bounds)
	draw.Draw(panel, bounds, h.bg, image.Point{}, draw.Src)

	d.Dst = panel
	ascent := h.face.Metrics().Ascent
	for i, l := range lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(hudMargin),
			Y: fixed.I(hudMargin+i*hudLineHeight) + ascent,
		}
		d.DrawString(l)
	}
	return panel
}
