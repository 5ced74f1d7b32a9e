// Package assemble 将分页结果与单元位图合成为多页 PDF。
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"resumeBuilder/internal/pdf/paginate"
	"resumeBuilder/internal/resume"
)

// 预览图参数。
const (
	previewDPMM    = 96 / 25.4
	previewQuality = 85
)

var (
	// ErrImageCount 位图数量与落点数量不一致。
	ErrImageCount = errors.New("image count does not match placements")
	// ErrEmptyPlan 没有任何页面。
	ErrEmptyPlan = errors.New("plan has no pages")
)

// Options 页面尺寸（毫米）与背景色。
type Options struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64
	Background color.RGBA
	// Preview 为 false 时不生成首页预览图。
	Preview bool
}

// ContentWidth 每个单元绘制的宽度。
func (o Options) ContentWidth() float64 { return o.PageWidth - 2*o.Margin }

// Meta PDF 文档信息。
type Meta struct {
	Title    string
	Subject  string
	Keywords string
	Author   string
}

// Document 合成结果。
type Document struct {
	Data    []byte
	Pages   int
	Preview []byte
}

// Assembler 按固定版式输出 PDF。
type Assembler struct {
	opts Options
}

// New 创建合成器。
func New(opts Options) *Assembler {
	return &Assembler{opts: opts}
}

// Options 返回合成参数。
func (a *Assembler) Options() Options { return a.opts }

// Assemble 按落点把位图画到各页。images 与 plan.Placements 一一对应。
func (a *Assembler) Assemble(plan paginate.Plan, images []image.Image, meta Meta) (*Document, error) {
	if plan.Pages <= 0 {
		return nil, ErrEmptyPlan
	}
	if len(images) != len(plan.Placements) {
		return nil, fmt.Errorf("%w: %d images, %d placements", ErrImageCount, len(images), len(plan.Placements))
	}

	w, h := a.opts.PageWidth, a.opts.PageHeight
	pages := make([]*canvas.Canvas, plan.Pages)
	contexts := make([]*canvas.Context, plan.Pages)
	for i := range pages {
		pages[i] = canvas.New(w, h)
		ctx := canvas.NewContext(pages[i])
		ctx.SetCoordSystem(canvas.CartesianIV)
		if a.opts.Background.A > 0 {
			ctx.SetFillColor(a.opts.Background)
			ctx.SetStrokeColor(canvas.Transparent)
			ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
		}
		contexts[i] = ctx
	}

	width := a.opts.ContentWidth()
	for i, pl := range plan.Placements {
		if pl.Page < 0 || pl.Page >= plan.Pages {
			return nil, fmt.Errorf("placement %d: page %d out of range", i, pl.Page)
		}
		img := images[i]
		if img == nil || img.Bounds().Dx() <= 0 {
			return nil, fmt.Errorf("placement %d: empty image", i)
		}
		dpmm := float64(img.Bounds().Dx()) / width
		contexts[pl.Page].DrawImage(pl.X, pl.Y, img, canvas.DPMM(dpmm))
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	writer.SetInfo(meta.Title, meta.Subject, meta.Keywords, meta.Author, "resumeBuilder")
	for i, c := range pages {
		if i > 0 {
			writer.NewPage(w, h)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	doc := &Document{Data: buf.Bytes(), Pages: plan.Pages}
	if a.opts.Preview {
		preview, err := renderPreview(pages[0])
		if err != nil {
			return nil, err
		}
		doc.Preview = preview
	}
	return doc, nil
}

func renderPreview(c *canvas.Canvas) ([]byte, error) {
	img := rasterizer.Draw(c, canvas.DPMM(previewDPMM), canvas.DefaultColorSpace)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename 由标题生成下载文件名，标题为空时为 resume.pdf。
func Filename(title string) string {
	return resume.Filename(title, ".pdf")
}
