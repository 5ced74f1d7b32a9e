package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"resumeBuilder/internal/config"
	"resumeBuilder/internal/logging"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/resume"
)

// render 在本地把简历 JSON 渲染为 PDF，不依赖数据库、redis 与对象存储。
func main() {
	var (
		in       = flag.String("in", "", "简历 JSON 文件（必填）")
		out      = flag.String("out", "", "输出 PDF 路径，默认按标题生成在当前目录")
		template = flag.String("template", "", "模板 ID，默认使用文件中的 templateId")
		lang     = flag.String("lang", "", "标签语言 en|vi，默认使用文件中的 language")
		backend  = flag.String("backend", "", "测量后端 canvas|browser，默认读 EXPORT_BACKEND")
		hide     = flag.String("hide", "", "逗号分隔的隐藏分区，例如 skills,projects")
		preview  = flag.String("preview", "", "可选，写出首页 JPEG 预览")
		verbose  = flag.Bool("v", false, "输出调试日志")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(config.LogConfig{Level: level}, os.Stderr)

	if err := run(logger, options{
		in:       *in,
		out:      *out,
		template: *template,
		lang:     *lang,
		backend:  *backend,
		hide:     *hide,
		preview:  *preview,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

type options struct {
	in, out, template, lang, backend, hide, preview string
}

func run(logger *slog.Logger, opts options) error {
	if strings.TrimSpace(opts.in) == "" {
		return fmt.Errorf("missing required flag: -in")
	}

	cfg, err := config.LoadExport()
	if err != nil {
		return err
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}

	data, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	doc, err := resume.Decode(data)
	if err != nil {
		return err
	}
	doc.Normalize()

	req := pdf.Request{Document: doc, TemplateID: opts.template}
	if opts.lang != "" {
		req.Language = resume.ParseLanguage(opts.lang)
	}
	if opts.hide != "" {
		vis := doc.Visibility
		for _, name := range strings.Split(opts.hide, ",") {
			sec, ok := resume.ParseSection(name)
			if !ok {
				return fmt.Errorf("unknown section %q", strings.TrimSpace(name))
			}
			vis = vis.Hide(sec)
		}
		req.Visibility = vis
	}

	exporter, closeExporter, err := pdf.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer closeExporter()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	art, err := exporter.Export(ctx, req)
	if err != nil {
		return err
	}

	target := opts.out
	if target == "" {
		target = art.Filename
	}
	if err := os.WriteFile(target, art.Data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	if opts.preview != "" && len(art.Preview) > 0 {
		if err := os.WriteFile(opts.preview, art.Preview, 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
	}

	abs, _ := filepath.Abs(target)
	logger.Info("pdf written",
		slog.String("path", abs),
		slog.Int("pages", art.Pages),
		slog.Int("units", art.Units),
	)
	return nil
}
