package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/pdf/layout"
)

func TestFromExportError(t *testing.T) {
	assert.Equal(t, OK, FromExportError(nil))
	assert.Equal(t, ExportInvalid, FromExportError(pdf.ErrNoDocument))
	assert.Equal(t, MeasureFailed, FromExportError(fmt.Errorf("wrap: %w", &pdf.MeasurementError{Unit: layout.Title(), Err: errors.New("x")})))
	assert.Equal(t, AssemblyFailed, FromExportError(&pdf.AssemblyError{Err: errors.New("x")}))
	assert.Equal(t, SystemError, FromExportError(errors.New("db down")))
}
