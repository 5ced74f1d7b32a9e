package measure

import (
	"context"
	"fmt"
	"image/color"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"resumeBuilder/internal/pdf/layout"
	"resumeBuilder/internal/style"
)

// CanvasMeasurer 使用显式的盒模型排版并通过 tdewolff/canvas 光栅化。
// 每个单元都在独立画布上完整排版，不存在“隐藏元素高度为 0”的问题。
type CanvasMeasurer struct {
	dpmm float64
	ts   *typesetter
}

// NewCanvasMeasurer scale 为相对 96dpi 的倍数，与浏览器的 devicePixelRatio 含义一致。
func NewCanvasMeasurer(scale float64) *CanvasMeasurer {
	return &CanvasMeasurer{
		dpmm: DotsPerMM(scale),
		ts:   &typesetter{fonts: newFontBook()},
	}
}

// Measure 实现 Measurer。
func (m *CanvasMeasurer) Measure(ctx context.Context, box layout.Box, width float64) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	if width <= 0 {
		return Measurement{}, fmt.Errorf("invalid target width %.2f", width)
	}

	f, err := m.ts.layoutBox(box, width)
	if err != nil {
		return Measurement{}, fmt.Errorf("layout %s: %w", box.Unit, err)
	}

	c := canvas.New(f.Width, f.Height)
	ctx2 := canvas.NewContext(c)
	ctx2.SetCoordSystem(canvas.CartesianIV)
	drawBox(ctx2, box, f)

	img := rasterizer.Draw(c, canvas.DPMM(m.dpmm), canvas.DefaultColorSpace)
	return Scale(img, width)
}

func drawBox(ctx *canvas.Context, box layout.Box, f frame) {
	w, h := f.Width, f.BoxHeight

	if box.Background.A > 0 {
		ctx.SetFillColor(box.Background)
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, roundedRect(w, h, box.RadiusTop*PxToMm, box.RadiusBottom*PxToMm))
	}

	drawBorder(ctx, box.Border.Top, 0, 0, w, box.Border.Top.Width*PxToMm, true)
	drawBorder(ctx, box.Border.Bottom, 0, h-box.Border.Bottom.Width*PxToMm, w, box.Border.Bottom.Width*PxToMm, true)
	drawBorder(ctx, box.Border.Left, 0, 0, box.Border.Left.Width*PxToMm, h, false)
	drawBorder(ctx, box.Border.Right, w-box.Border.Right.Width*PxToMm, 0, box.Border.Right.Width*PxToMm, h, false)

	for _, line := range f.Lines {
		for _, seg := range line.Segments {
			if seg.Text == "" {
				continue
			}
			ctx.DrawText(seg.X, line.Baseline, canvas.NewTextLine(seg.Face, seg.Text, canvas.Left))
		}
	}
}

// roundedRect 顶部与底部可分别设置圆角，圆角用二次曲线近似。
func roundedRect(w, h, rt, rb float64) *canvas.Path {
	limit := func(r float64) float64 {
		if r > w/2 {
			r = w / 2
		}
		if r > h/2 {
			r = h / 2
		}
		if r < 0 {
			r = 0
		}
		return r
	}
	rt, rb = limit(rt), limit(rb)

	p := &canvas.Path{}
	p.MoveTo(rt, 0)
	p.LineTo(w-rt, 0)
	p.QuadTo(w, 0, w, rt)
	p.LineTo(w, h-rb)
	p.QuadTo(w, h, w-rb, h)
	p.LineTo(rb, h)
	p.QuadTo(0, h, 0, h-rb)
	p.LineTo(0, rt)
	p.QuadTo(0, 0, rt, 0)
	p.Close()
	return p
}

func drawBorder(ctx *canvas.Context, b style.Border, x, y, w, h float64, horizontal bool) {
	if !b.Visible() || w <= 0 || h <= 0 {
		return
	}
	ctx.SetFillColor(color.Color(b.Color))
	ctx.SetStrokeColor(canvas.Transparent)

	if b.Style == "solid" {
		ctx.DrawPath(x, y, canvas.Rectangle(w, h))
		return
	}

	// dashed/dotted：按边框粗细画短段
	thickness, length := h, w
	if !horizontal {
		thickness, length = w, h
	}
	dash, gap := thickness*3, thickness*3
	if b.Style == "dotted" {
		dash, gap = thickness, thickness
	}
	for pos := 0.0; pos < length; pos += dash + gap {
		seg := dash
		if pos+seg > length {
			seg = length - pos
		}
		if horizontal {
			ctx.DrawPath(x+pos, y, canvas.Rectangle(seg, thickness))
		} else {
			ctx.DrawPath(x, y+pos, canvas.Rectangle(thickness, seg))
		}
	}
}
