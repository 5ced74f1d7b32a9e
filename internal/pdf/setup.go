package pdf

import (
	"fmt"
	"log/slog"

	"resumeBuilder/internal/config"
	"resumeBuilder/internal/pdf/measure"
	"resumeBuilder/internal/style"
)

// 测量后端名称。
const (
	BackendCanvas  = "canvas"
	BackendBrowser = "browser"
)

// OptionsFromConfig 将导出配置转换为版式参数。
func OptionsFromConfig(cfg config.ExportConfig) Options {
	return Options{
		PageWidth:    cfg.PageWidth,
		PageHeight:   cfg.PageHeight,
		Margin:       cfg.Margin,
		AfterTitle:   cfg.TitleSpacing,
		AfterUnit:    cfg.UnitSpacing,
		KeepHeadings: cfg.KeepHeadings,
		Preview:      true,
	}
}

// LoadStyles 读取模板文件，未配置时使用内置模板。
func LoadStyles(cfg config.ExportConfig) (*style.Resolver, error) {
	if cfg.TemplatesPath == "" {
		return style.DefaultResolver(), nil
	}
	sets, err := style.LoadFile(cfg.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return style.NewResolver(sets)
}

// NewMeasurer 按配置选择测量后端。返回的 closer 总是非空。
func NewMeasurer(cfg config.ExportConfig, logger *slog.Logger) (measure.Measurer, func() error, error) {
	switch cfg.Backend {
	case "", BackendCanvas:
		return measure.NewCanvasMeasurer(cfg.Scale), func() error { return nil }, nil
	case BackendBrowser:
		m := measure.NewBrowserMeasurer(measure.BrowserOptions{
			Scale:       cfg.Scale,
			ChromiumBin: cfg.ChromiumBin,
			Timeout:     cfg.Timeout,
			Logger:      logger,
		})
		return m, m.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown measure backend %q", cfg.Backend)
	}
}

// NewFromConfig 组装完整的导出器，调用方负责在退出时调用 closer。
func NewFromConfig(cfg config.ExportConfig, logger *slog.Logger, options ...ExporterOption) (*Exporter, func() error, error) {
	styles, err := LoadStyles(cfg)
	if err != nil {
		return nil, nil, err
	}
	m, closer, err := NewMeasurer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	options = append([]ExporterOption{WithLogger(logger)}, options...)
	exp, err := NewExporter(styles, m, OptionsFromConfig(cfg), options...)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return exp, closer, nil
}
