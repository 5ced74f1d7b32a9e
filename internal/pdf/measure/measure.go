// Package measure 将单元盒子渲染为固定宽度的位图，并给出按页面宽度缩放后的高度。
package measure

import (
	"context"
	"errors"
	"image"

	"resumeBuilder/internal/pdf/layout"
)

// 单位换算：CSS px 按 96dpi 折算为毫米。
const (
	MmPerInch = 25.4
	CSSDPI    = 96.0
	PxToMm    = MmPerInch / CSSDPI
	PxToPt    = 0.75
)

// ErrEmptyRender 渲染结果没有像素，通常意味着元素不可见。
var ErrEmptyRender = errors.New("rendered unit has no pixels")

// Measurement 单元的渲染结果。Width/Height 为输出单位（毫米）。
type Measurement struct {
	Image  image.Image
	Width  float64
	Height float64
}

// PixelSize 返回位图尺寸。
func (m Measurement) PixelSize() (int, int) {
	if m.Image == nil {
		return 0, 0
	}
	b := m.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Measurer 在目标宽度下渲染一个盒子。
// 同一次导出中所有单元必须使用同一个 width。
type Measurer interface {
	Measure(ctx context.Context, box layout.Box, width float64) (Measurement, error)
}

// Scale 按比例计算输出高度：renderedPixelHeight * width / renderedPixelWidth。
func Scale(img image.Image, width float64) (Measurement, error) {
	if img == nil {
		return Measurement{}, ErrEmptyRender
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Measurement{}, ErrEmptyRender
	}
	return Measurement{
		Image:  img,
		Width:  width,
		Height: float64(b.Dy()) * width / float64(b.Dx()),
	}, nil
}

// DotsPerMM 将缩放倍数换算为每毫米像素数（scale=1 即 96dpi）。
func DotsPerMM(scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return scale * CSSDPI / MmPerInch
}
