// Package style 提供模板样式表与解析器。
package style

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// RootFontSize 1rem 对应的像素值。
const RootFontSize = 16.0

// DefaultLineHeight 行高倍数。
const DefaultLineHeight = 1.5

// StyleSet 单个模板在各区域上的视觉属性，长度单位为 CSS px。
type StyleSet struct {
	Card    Box
	Title   Text
	Section Box
	Heading Text
	Text    Text
}

// Text 描述文字区域。
type Text struct {
	FontFamily   string
	Color        color.RGBA
	FontSize     float64
	FontWeight   int
	LineHeight   float64
	MarginBottom float64
}

// Bold 字重达到 600 视为粗体。
func (t Text) Bold() bool { return t.FontWeight >= 600 }

// Box 描述带内边距、边框与背景的盒子。
type Box struct {
	Background   color.RGBA
	Padding      Edges
	Border       Borders
	Radius       float64
	MarginBottom float64
}

// Edges 四边的长度。
type Edges struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Borders 四边边框。
type Borders struct {
	Top, Right, Bottom, Left Border
}

// Border 单边边框，Width 为 0 表示无边框。
type Border struct {
	Width float64
	Style string
	Color color.RGBA
}

// Visible 边框是否需要绘制。
func (b Border) Visible() bool { return b.Width > 0 && b.Style != "none" && b.Color.A > 0 }

// parseLength 解析 "2rem"、"12px"、"1.5em"、"0" 等写法，返回 px。
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, nil
	}
	factor := 1.0
	switch {
	case strings.HasSuffix(s, "rem"):
		s, factor = strings.TrimSuffix(s, "rem"), RootFontSize
	case strings.HasSuffix(s, "em"):
		s, factor = strings.TrimSuffix(s, "em"), RootFontSize
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative length %q", s)
	}
	return v * factor, nil
}

// parseEdges 按 CSS 简写规则解析 1~4 个长度。
func parseEdges(s string) (Edges, error) {
	fields := strings.Fields(s)
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseLength(f)
		if err != nil {
			return Edges{}, err
		}
		values = append(values, v)
	}
	switch len(values) {
	case 0:
		return Edges{}, nil
	case 1:
		return Edges{values[0], values[0], values[0], values[0]}, nil
	case 2:
		return Edges{values[0], values[1], values[0], values[1]}, nil
	case 3:
		return Edges{values[0], values[1], values[2], values[1]}, nil
	case 4:
		return Edges{values[0], values[1], values[2], values[3]}, nil
	default:
		return Edges{}, fmt.Errorf("too many values in %q", s)
	}
}

// parseBorder 解析 "1px solid #e2e8f0" 形式的边框，缺省颜色为黑色。
func parseBorder(s string) (Border, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return Border{}, nil
	}
	b := Border{Style: "solid", Color: color.RGBA{A: 0xff}}
	for _, f := range strings.Fields(s) {
		switch {
		case f == "solid" || f == "dashed" || f == "dotted" || f == "none":
			b.Style = f
		case strings.HasPrefix(f, "#"):
			c, err := ParseColor(f)
			if err != nil {
				return Border{}, err
			}
			b.Color = c
		default:
			w, err := parseLength(f)
			if err != nil {
				return Border{}, err
			}
			b.Width = w
		}
	}
	return b, nil
}

// ParseColor 解析 #rgb、#rrggbb、#rrggbbaa 或 transparent。
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "transparent" || s == "none" {
		return color.RGBA{}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 || !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// CSSColor 返回 rgba() 形式，供浏览器测量使用。
func CSSColor(c color.RGBA) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", c.R, c.G, c.B, float64(c.A)/255)
}

// FormatBorder 把边框还原为 CSS 简写，例如 "1px solid rgba(0,0,0,1.000)"。
func FormatBorder(b Border) string {
	return fmt.Sprintf("%gpx %s %s", b.Width, b.Style, CSSColor(b.Color))
}
