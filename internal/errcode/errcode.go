package errcode

import (
	"errors"

	"resumeBuilder/internal/pdf"
)

// 错误码约定：
// - 0：无错误
// - 4xxx：请求或数据问题，重试无意义
// - 5xxx：系统错误，可重试
const (
	OK              = 0
	ResourceMissing = 4004
	ExportInvalid   = 4220
	SystemError     = 5000
	MeasureFailed   = 5001
	AssemblyFailed  = 5002
)

// FromExportError 将导出错误映射为错误码。
func FromExportError(err error) int {
	var (
		me *pdf.MeasurementError
		ae *pdf.AssemblyError
	)
	switch {
	case err == nil:
		return OK
	case errors.Is(err, pdf.ErrNoDocument), errors.Is(err, pdf.ErrNoUnits):
		return ExportInvalid
	case errors.As(err, &me):
		return MeasureFailed
	case errors.As(err, &ae):
		return AssemblyFailed
	default:
		return SystemError
	}
}
