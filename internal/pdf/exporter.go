// Package pdf 串联拆分、测量、分页与合成，完成一次简历导出。
package pdf

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"resumeBuilder/internal/pdf/assemble"
	"resumeBuilder/internal/pdf/layout"
	"resumeBuilder/internal/pdf/measure"
	"resumeBuilder/internal/pdf/paginate"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/style"
)

// State 导出状态机的状态。
type State int

const (
	StateIdle State = iota
	StateSectionizing
	StateMeasuring
	StatePlanning
	StateAssembling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSectionizing:
		return "sectionizing"
	case StateMeasuring:
		return "measuring"
	case StatePlanning:
		return "planning"
	case StateAssembling:
		return "assembling"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder 接收导出结果，用于指标上报。
type Recorder interface {
	ExportSucceeded(d time.Duration, pages, units int)
	ExportFailed(stage State)
}

type nopRecorder struct{}

func (nopRecorder) ExportSucceeded(time.Duration, int, int) {}
func (nopRecorder) ExportFailed(State)                      {}

// Options 页面版式，单位毫米。
type Options struct {
	PageWidth    float64
	PageHeight   float64
	Margin       float64
	AfterTitle   float64
	AfterUnit    float64
	KeepHeadings bool
	Preview      bool
}

// Request 一次导出的输入。Visibility、TemplateID、Language 为空时取文档自身的设置。
type Request struct {
	Document   *resume.Document
	Visibility resume.Visibility
	TemplateID string
	Language   resume.Language
}

// Artifact 导出产物。
type Artifact struct {
	Filename string
	Data     []byte
	Pages    int
	Units    int
	Preview  []byte
}

// Exporter 运行导出状态机。同一时刻只处理一个导出，测量器可能持有共享的浏览器页面。
type Exporter struct {
	styles   *style.Resolver
	measurer measure.Measurer
	opts     Options
	logger   *slog.Logger
	recorder Recorder

	mu    sync.Mutex
	state State
}

// ExporterOption 可选配置。
type ExporterOption func(*Exporter)

// WithLogger 设置日志。
func WithLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// WithRecorder 设置指标上报。
func WithRecorder(r Recorder) ExporterOption {
	return func(e *Exporter) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewExporter 创建导出器，页面参数不合法时返回错误。
func NewExporter(styles *style.Resolver, m measure.Measurer, opts Options, options ...ExporterOption) (*Exporter, error) {
	if styles == nil || m == nil {
		return nil, fmt.Errorf("exporter requires a style resolver and a measurer")
	}
	if err := opts.planOptions().Validate(); err != nil {
		return nil, err
	}
	if opts.PageWidth <= 2*opts.Margin {
		return nil, fmt.Errorf("%w: page width %.2f", paginate.ErrInvalidOptions, opts.PageWidth)
	}
	e := &Exporter{
		styles:   styles,
		measurer: m,
		opts:     opts,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

func (o Options) planOptions() paginate.Options {
	return paginate.Options{
		PageHeight:   o.PageHeight,
		Margin:       o.Margin,
		AfterTitle:   o.AfterTitle,
		AfterUnit:    o.AfterUnit,
		KeepHeadings: o.KeepHeadings,
	}
}

// ContentWidth 单元渲染宽度。
func (o Options) ContentWidth() float64 { return o.PageWidth - 2*o.Margin }

// State 返回最近一次导出所处的状态。
func (e *Exporter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Export 执行一次完整导出。失败时不返回任何部分产物。
func (e *Exporter) Export(ctx context.Context, req Request) (*Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.state = StateIdle

	art, err := e.run(ctx, req)
	if err != nil {
		stage := e.state
		e.transition(StateFailed)
		e.recorder.ExportFailed(stage)
		e.logger.Warn("Export: failed", slog.String("stage", stage.String()), slog.Any("error", err))
		return nil, err
	}

	e.transition(StateDone)
	elapsed := time.Since(start)
	e.recorder.ExportSucceeded(elapsed, art.Pages, art.Units)
	e.logger.Info("Export: completed",
		slog.String("filename", art.Filename),
		slog.Int("units", art.Units),
		slog.Int("pages", art.Pages),
		slog.Duration("elapsed", elapsed),
	)
	return art, nil
}

func (e *Exporter) transition(s State) {
	e.logger.Debug("Export: state", slog.String("from", e.state.String()), slog.String("to", s.String()))
	e.state = s
}

func (e *Exporter) run(ctx context.Context, req Request) (*Artifact, error) {
	e.transition(StateSectionizing)
	if req.Document == nil {
		return nil, ErrNoDocument
	}
	doc := *req.Document
	if req.Language != "" {
		doc.Language = req.Language
	}
	vis := req.Visibility
	if vis == nil {
		vis = doc.Visibility
	}
	templateID := req.TemplateID
	if templateID == "" {
		templateID = doc.TemplateID
	}
	set := e.styles.Resolve(templateID)

	units := layout.Sectionize(&doc, vis)
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	boxes := layout.ComposeAll(&doc, units, set, e.opts.AfterUnit/measure.PxToMm)

	e.transition(StateMeasuring)
	width := e.opts.ContentWidth()
	items := make([]paginate.Item, len(units))
	images := make([]image.Image, len(units))
	for i, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := e.measurer.Measure(ctx, boxes[i], width)
		if err != nil {
			return nil, &MeasurementError{Unit: u, Err: err}
		}
		if m.Image == nil || m.Height <= 0 {
			return nil, &MeasurementError{Unit: u, Err: measure.ErrEmptyRender}
		}
		items[i] = paginate.Item{Kind: u.Kind, Height: m.Height, Joined: layout.ContinuesSection(units, i)}
		images[i] = m.Image
	}

	e.transition(StatePlanning)
	plan, err := paginate.Paginate(items, e.opts.planOptions())
	if err != nil {
		return nil, fmt.Errorf("plan pages: %w", err)
	}
	for i, pl := range plan.Placements {
		if pl.Overflow {
			e.logger.Warn("Export: unit taller than page", slog.String("unit", units[i].String()), slog.Int("page", pl.Page+1))
		}
	}

	e.transition(StateAssembling)
	asm := assemble.New(assemble.Options{
		PageWidth:  e.opts.PageWidth,
		PageHeight: e.opts.PageHeight,
		Margin:     e.opts.Margin,
		Background: set.Card.Background,
		Preview:    e.opts.Preview,
	})
	out, err := asm.Assemble(plan, images, assemble.Meta{
		Title:   doc.DisplayTitle(),
		Subject: "Resume",
		Author:  doc.PersonalInfo.Name,
	})
	if err != nil {
		return nil, &AssemblyError{Err: err}
	}

	return &Artifact{
		Filename: assemble.Filename(doc.Title),
		Data:     out.Data,
		Pages:    out.Pages,
		Units:    len(units),
		Preview:  out.Preview,
	}, nil
}
