package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/style"
)

// TemplateHandler 负责模板相关的 API，模板表在启动时加载且只读。
type TemplateHandler struct {
	styles *style.Resolver
}

func NewTemplateHandler(styles *style.Resolver) *TemplateHandler {
	return &TemplateHandler{styles: styles}
}

type templateListItem struct {
	ID         string `json:"id"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	FontFamily string `json:"fontFamily"`
}

type textStyleResponse struct {
	FontFamily   string  `json:"fontFamily"`
	Color        string  `json:"color"`
	FontSize     float64 `json:"fontSize"`
	FontWeight   int     `json:"fontWeight"`
	LineHeight   float64 `json:"lineHeight"`
	MarginBottom float64 `json:"marginBottom"`
}

type boxStyleResponse struct {
	Background   string      `json:"background"`
	Padding      style.Edges `json:"padding"`
	Radius       float64     `json:"radius"`
	MarginBottom float64     `json:"marginBottom"`
	BorderTop    string      `json:"borderTop,omitempty"`
	BorderBottom string      `json:"borderBottom,omitempty"`
	BorderLeft   string      `json:"borderLeft,omitempty"`
	BorderRight  string      `json:"borderRight,omitempty"`
}

type templateDetailResponse struct {
	ID      string            `json:"id"`
	Card    boxStyleResponse  `json:"card"`
	Section boxStyleResponse  `json:"section"`
	Title   textStyleResponse `json:"title"`
	Heading textStyleResponse `json:"heading"`
	Text    textStyleResponse `json:"text"`
}

// ListTemplates GET /v1/templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	ids := h.styles.IDs()
	items := make([]templateListItem, 0, len(ids))
	for _, id := range ids {
		set := h.styles.Resolve(id)
		items = append(items, templateListItem{
			ID:         id,
			Accent:     style.CSSColor(set.Heading.Color),
			Background: style.CSSColor(set.Card.Background),
			FontFamily: set.Text.FontFamily,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetTemplate GET /v1/templates/:id
// 未知模板返回 404，而不是像导出时那样回落到 default。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := c.Param("id")
	if !h.styles.Has(id) {
		NotFound(c, "template not found")
		return
	}

	set := h.styles.Resolve(id)
	c.JSON(http.StatusOK, templateDetailResponse{
		ID:      id,
		Card:    newBoxStyleResponse(set.Card),
		Section: newBoxStyleResponse(set.Section),
		Title:   newTextStyleResponse(set.Title),
		Heading: newTextStyleResponse(set.Heading),
		Text:    newTextStyleResponse(set.Text),
	})
}

func newTextStyleResponse(t style.Text) textStyleResponse {
	return textStyleResponse{
		FontFamily:   t.FontFamily,
		Color:        style.CSSColor(t.Color),
		FontSize:     t.FontSize,
		FontWeight:   t.FontWeight,
		LineHeight:   t.LineHeight,
		MarginBottom: t.MarginBottom,
	}
}

func newBoxStyleResponse(b style.Box) boxStyleResponse {
	return boxStyleResponse{
		Background:   style.CSSColor(b.Background),
		Padding:      b.Padding,
		Radius:       b.Radius,
		MarginBottom: b.MarginBottom,
		BorderTop:    borderCSS(b.Border.Top),
		BorderBottom: borderCSS(b.Border.Bottom),
		BorderLeft:   borderCSS(b.Border.Left),
		BorderRight:  borderCSS(b.Border.Right),
	}
}

func borderCSS(b style.Border) string {
	if !b.Visible() {
		return ""
	}
	return style.FormatBorder(b)
}
