package pdf

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/pdf/layout"
	"resumeBuilder/internal/pdf/measure"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/style"
)

// fakeMeasurer 按单元类型返回固定高度。
type fakeMeasurer struct {
	heights map[layout.Kind]float64
	failOn  *layout.Unit
	err     error
	zeroW   bool
	calls   []layout.Unit
	widths  []float64
}

func (f *fakeMeasurer) Measure(_ context.Context, box layout.Box, width float64) (measure.Measurement, error) {
	f.calls = append(f.calls, box.Unit)
	f.widths = append(f.widths, width)
	if f.failOn != nil && *f.failOn == box.Unit {
		return measure.Measurement{}, f.err
	}
	h := f.heights[box.Unit.Kind]
	if f.zeroW {
		return measure.Measurement{Image: image.NewRGBA(image.Rect(0, 0, 0, 10)), Width: width, Height: h}, nil
	}
	px := int(h * 4)
	if px <= 0 {
		return measure.Measurement{Image: image.NewRGBA(image.Rect(0, 0, 760, 1)), Width: width, Height: 0}, nil
	}
	return measure.Measurement{Image: image.NewRGBA(image.Rect(0, 0, 760, px)), Width: width, Height: h}, nil
}

type fakeRecorder struct {
	pages, units int
	failedAt     []State
}

func (r *fakeRecorder) ExportSucceeded(_ time.Duration, pages, units int) {
	r.pages, r.units = pages, units
}

func (r *fakeRecorder) ExportFailed(stage State) { r.failedAt = append(r.failedAt, stage) }

func testOptions() Options {
	return Options{PageWidth: 210, PageHeight: 297, Margin: 10, AfterTitle: 6, AfterUnit: 2}
}

func newTestExporter(t *testing.T, m measure.Measurer, rec Recorder) *Exporter {
	t.Helper()
	e, err := NewExporter(style.DefaultResolver(), m, testOptions(), WithRecorder(rec))
	require.NoError(t, err)
	return e
}

func sampleDocument() *resume.Document {
	return &resume.Document{
		Title:        "Jane Doe",
		PersonalInfo: resume.PersonalInfo{Name: "Jane Doe", Email: "jane@example.com"},
		Education:    []resume.Education{{Institution: "MIT", Degree: "BSc", Field: "CS"}},
		Experience: []resume.Experience{
			{Company: "Acme", Position: "Engineer"},
			{Company: "Globex", Position: "Lead"},
		},
		Skills: []string{"Go", "SQL"},
	}
}

func TestExportProducesArtifact(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 12, layout.KindHeading: 8, layout.KindItem: 30}}
	rec := &fakeRecorder{}
	e := newTestExporter(t, m, rec)

	art, err := e.Export(context.Background(), Request{Document: sampleDocument()})
	require.NoError(t, err)

	// 1 + (1+1) + (1+1) + (1+2) + (1+1)
	assert.Equal(t, 10, art.Units)
	assert.Equal(t, 1, art.Pages)
	assert.Equal(t, "Jane Doe.pdf", art.Filename)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))
	assert.Equal(t, StateDone, e.State())
	assert.Equal(t, 1, rec.pages)
	assert.Equal(t, 10, rec.units)

	for _, w := range m.widths {
		assert.InDelta(t, 190.0, w, 1e-9)
	}
}

func TestExportTitleOnlyDocument(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 12}}
	e := newTestExporter(t, m, nil)

	doc := sampleDocument()
	vis := resume.Visibility{}
	for _, s := range resume.Sections() {
		vis[s] = false
	}

	art, err := e.Export(context.Background(), Request{Document: doc, Visibility: vis})
	require.NoError(t, err)
	assert.Equal(t, 1, art.Units)
	assert.Equal(t, 1, art.Pages)
	assert.Equal(t, []layout.Unit{layout.Title()}, m.calls)
}

func TestExportOversizedUnit(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 12, layout.KindHeading: 8, layout.KindItem: 400}}
	e := newTestExporter(t, m, nil)

	doc := &resume.Document{Title: "Long", Summary: "very long"}
	art, err := e.Export(context.Background(), Request{Document: doc})
	require.NoError(t, err)
	assert.Equal(t, 2, art.Pages)
}

func TestExportMeasurementFailure(t *testing.T) {
	failing := layout.Item(resume.SectionExperience, 1)
	m := &fakeMeasurer{
		heights: map[layout.Kind]float64{layout.KindTitle: 12, layout.KindHeading: 8, layout.KindItem: 30},
		failOn:  &failing,
		err:     errors.New("boom"),
	}
	rec := &fakeRecorder{}
	e := newTestExporter(t, m, rec)

	art, err := e.Export(context.Background(), Request{Document: sampleDocument()})
	assert.Nil(t, art)

	var me *MeasurementError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, failing, me.Unit)
	assert.Equal(t, StateFailed, e.State())
	assert.Equal(t, []State{StateMeasuring}, rec.failedAt)
}

func TestExportZeroHeightIsMeasurementFailure(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 0}}
	e := newTestExporter(t, m, nil)

	_, err := e.Export(context.Background(), Request{Document: &resume.Document{Title: "x"}})
	var me *MeasurementError
	require.ErrorAs(t, err, &me)
	assert.ErrorIs(t, err, measure.ErrEmptyRender)
}

func TestExportAssemblyFailure(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 12}, zeroW: true}
	rec := &fakeRecorder{}
	e := newTestExporter(t, m, rec)

	_, err := e.Export(context.Background(), Request{Document: &resume.Document{Title: "x"}})
	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []State{StateAssembling}, rec.failedAt)
}

func TestExportCancelled(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 12}}
	e := newTestExporter(t, m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Export(ctx, Request{Document: sampleDocument()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.calls)
	assert.Equal(t, StateFailed, e.State())
}

func TestExportRequiresDocument(t *testing.T) {
	e := newTestExporter(t, &fakeMeasurer{}, nil)
	_, err := e.Export(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestExportDoesNotMutateDocument(t *testing.T) {
	m := &fakeMeasurer{heights: map[layout.Kind]float64{layout.KindTitle: 12, layout.KindHeading: 8, layout.KindItem: 30}}
	e := newTestExporter(t, m, nil)

	doc := sampleDocument()
	_, err := e.Export(context.Background(), Request{Document: doc, Language: resume.Vietnamese})
	require.NoError(t, err)
	assert.Equal(t, resume.Language(""), doc.Language)
}

func TestExportWithCanvasMeasurer(t *testing.T) {
	e, err := NewExporter(style.DefaultResolver(), measure.NewCanvasMeasurer(1), Options{
		PageWidth: 210, PageHeight: 297, Margin: 10, AfterTitle: 6, AfterUnit: 2, Preview: true,
	})
	require.NoError(t, err)

	art, err := e.Export(context.Background(), Request{Document: sampleDocument(), TemplateID: "modern"})
	require.NoError(t, err)
	assert.Equal(t, 1, art.Pages)
	assert.NotEmpty(t, art.Preview)
}

func TestNewExporterValidatesOptions(t *testing.T) {
	_, err := NewExporter(style.DefaultResolver(), &fakeMeasurer{}, Options{PageWidth: 10, PageHeight: 297, Margin: 10})
	assert.Error(t, err)

	_, err = NewExporter(nil, &fakeMeasurer{}, testOptions())
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "measuring", StateMeasuring.String())
	assert.Equal(t, "failed", StateFailed.String())
}
