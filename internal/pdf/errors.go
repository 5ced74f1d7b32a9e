package pdf

import (
	"errors"
	"fmt"

	"resumeBuilder/internal/pdf/layout"
)

// ErrNoUnits 拆分结果为空，正常情况下至少有一个标题单元。
var ErrNoUnits = errors.New("document produced no layout units")

// ErrNoDocument 请求中缺少简历。
var ErrNoDocument = errors.New("export request has no document")

// MeasurementError 某个单元渲染或测量失败，导出中止。
type MeasurementError struct {
	Unit layout.Unit
	Err  error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("measure %s: %v", e.Unit, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }

// AssemblyError PDF 合成或序列化失败。
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble pdf: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
