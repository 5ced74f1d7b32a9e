package measure

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"resumeBuilder/internal/pdf/layout"
	"resumeBuilder/internal/style"
)

// BrowserOptions 无头浏览器测量的配置。
type BrowserOptions struct {
	Scale       float64
	ChromiumBin string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// BrowserMeasurer 在无头 Chromium 中逐个渲染单元并截图。
// 浏览器在第一次测量时启动，之后复用同一个页面，调用方负责 Close。
type BrowserMeasurer struct {
	opts BrowserOptions

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
}

// NewBrowserMeasurer 创建浏览器测量器。
func NewBrowserMeasurer(opts BrowserOptions) *BrowserMeasurer {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BrowserMeasurer{opts: opts}
}

// Measure 实现 Measurer。单元在屏幕外完整渲染后再截图，截图高度即为单元高度。
func (m *BrowserMeasurer) Measure(ctx context.Context, box layout.Box, width float64) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	if width <= 0 {
		return Measurement{}, fmt.Errorf("invalid target width %.2f", width)
	}

	html, err := renderUnitHTML(box, width/PxToMm)
	if err != nil {
		return Measurement{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensurePage(); err != nil {
		return Measurement{}, err
	}

	page := m.page.Context(ctx).Timeout(m.opts.Timeout)
	if err := page.SetDocumentContent(html); err != nil {
		return Measurement{}, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return Measurement{}, fmt.Errorf("wait load: %w", err)
	}

	el, err := page.Element("#unit")
	if err != nil {
		return Measurement{}, fmt.Errorf("find unit element: %w", err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return Measurement{}, fmt.Errorf("screenshot %s: %w", box.Unit, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Measurement{}, fmt.Errorf("decode screenshot: %w", err)
	}
	return Scale(img, width)
}

func (m *BrowserMeasurer) ensurePage() (err error) {
	if m.page != nil {
		return nil
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if m.opts.ChromiumBin != "" {
		launch = launch.Bin(m.opts.ChromiumBin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Timeout(m.opts.Timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("create page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1200,
		Height:            1600,
		DeviceScaleFactor: m.opts.Scale,
	}); err != nil {
		_ = browser.Close()
		return fmt.Errorf("set viewport: %w", err)
	}

	m.opts.Logger.Info("Measure: chromium started", slog.String("control_url", browserURL))
	m.launch, m.browser, m.page = launch, browser, page
	return nil
}

// Close 关闭浏览器并清理临时目录。
func (m *BrowserMeasurer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.page != nil {
		_ = m.page.Close()
		m.page = nil
	}
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.launch != nil {
		m.launch.Cleanup()
		m.launch = nil
	}
	return err
}

var unitTemplate = template.Must(template.New("unit").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
html, body { margin: 0; padding: 0; background: transparent; }
#unit { display: flow-root; box-sizing: border-box; width: {{.Width}}px; padding-bottom: {{.MarginBottom}}px; }
#box { box-sizing: border-box; {{.BoxCSS}} }
.block { white-space: pre-wrap; overflow-wrap: anywhere; }
.bullet { display: list-item; list-style: disc outside; margin-left: 1.5em; }
</style>
</head>
<body>
<div id="unit"><div id="box">{{range .Blocks}}<div class="block{{if .Bullet}} bullet{{end}}" style="{{.CSS}}">{{range .Runs}}{{if .Bold}}<strong>{{.Text}}</strong>{{else}}{{.Text}}{{end}}{{end}}</div>{{end}}</div></div>
</body>
</html>`))

type unitView struct {
	Width        string
	MarginBottom string
	BoxCSS       template.CSS
	Blocks       []blockView
}

type blockView struct {
	CSS    template.CSS
	Bullet bool
	Runs   []layout.Run
}

func renderUnitHTML(box layout.Box, widthPx float64) (string, error) {
	view := unitView{
		Width:        px(widthPx),
		MarginBottom: px(box.MarginBottom),
		BoxCSS:       template.CSS(boxCSS(box)),
	}
	for _, b := range box.Blocks {
		view.Blocks = append(view.Blocks, blockView{
			CSS:    template.CSS(textCSS(b.Style)),
			Bullet: b.Bullet,
			Runs:   b.Runs,
		})
	}

	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render unit html: %w", err)
	}
	return buf.String(), nil
}

func boxCSS(box layout.Box) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "background: %s; ", style.CSSColor(box.Background))
	fmt.Fprintf(&sb, "padding: %spx %spx %spx %spx; ",
		px(box.Padding.Top), px(box.Padding.Right), px(box.Padding.Bottom), px(box.Padding.Left))
	writeBorder(&sb, "top", box.Border.Top)
	writeBorder(&sb, "right", box.Border.Right)
	writeBorder(&sb, "bottom", box.Border.Bottom)
	writeBorder(&sb, "left", box.Border.Left)
	fmt.Fprintf(&sb, "border-radius: %spx %spx %spx %spx;",
		px(box.RadiusTop), px(box.RadiusTop), px(box.RadiusBottom), px(box.RadiusBottom))
	return sb.String()
}

func writeBorder(sb *strings.Builder, side string, b style.Border) {
	if !b.Visible() {
		fmt.Fprintf(sb, "border-%s: none; ", side)
		return
	}
	fmt.Fprintf(sb, "border-%s: %spx %s %s; ", side, px(b.Width), b.Style, style.CSSColor(b.Color))
}

func textCSS(t style.Text) string {
	weight := t.FontWeight
	if weight <= 0 {
		weight = 400
	}
	return fmt.Sprintf(
		"font-family: %s; color: %s; font-size: %spx; font-weight: %d; line-height: %s; min-height: %spx; margin: 0 0 %spx 0;",
		cssFamily(t.FontFamily), style.CSSColor(t.Color), px(t.FontSize), weight,
		px(t.LineHeight), px(t.FontSize*t.LineHeight), px(t.MarginBottom),
	)
}

func cssFamily(name string) string {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	switch classify(name) {
	case classSerif:
		return fmt.Sprintf("'%s', serif", name)
	case classMono:
		return fmt.Sprintf("'%s', monospace", name)
	default:
		if name == "" {
			return "sans-serif"
		}
		return fmt.Sprintf("'%s', sans-serif", name)
	}
}

func px(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
