package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"resumeBuilder/internal/pdf"
)

var (
	exportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumebuilder",
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "简历导出耗时分布（秒）。",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	exportPages = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumebuilder",
			Subsystem: "export",
			Name:      "pages",
			Help:      "导出 PDF 的页数分布。",
			Buckets:   []float64{1, 2, 3, 4, 6, 10},
		},
		[]string{"source"},
	)

	exportFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumebuilder",
			Subsystem: "export",
			Name:      "failures_total",
			Help:      "导出失败次数，按失败阶段区分。",
		},
		[]string{"source", "stage"},
	)
)

// ExportRecorder 将导出结果写入 Prometheus，source 区分 api 与 worker。
type ExportRecorder struct {
	source string
}

// NewExportRecorder 创建指标上报器。
func NewExportRecorder(source string) ExportRecorder {
	return ExportRecorder{source: source}
}

// ExportSucceeded 实现 pdf.Recorder。
func (r ExportRecorder) ExportSucceeded(d time.Duration, pages, _ int) {
	exportDuration.WithLabelValues(r.source).Observe(d.Seconds())
	exportPages.WithLabelValues(r.source).Observe(float64(pages))
}

// ExportFailed 实现 pdf.Recorder。
func (r ExportRecorder) ExportFailed(stage pdf.State) {
	exportFailedTotal.WithLabelValues(r.source, stage.String()).Inc()
}

var _ pdf.Recorder = ExportRecorder{}
