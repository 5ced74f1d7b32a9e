package measure

import (
	"context"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/pdf/layout"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/style"
)

func textStyle() style.Text {
	return style.Text{
		FontFamily: "Inter",
		Color:      color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff},
		FontSize:   16,
		FontWeight: 400,
		LineHeight: 1.5,
	}
}

func itemBox(lines ...string) layout.Box {
	box := layout.Box{
		Unit:       layout.Item(resume.SectionExperience, 0),
		Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Padding:    style.Edges{Left: 16, Right: 16},
	}
	for _, l := range lines {
		box.Blocks = append(box.Blocks, layout.Block{Runs: []layout.Run{{Text: l}}, Style: textStyle()})
	}
	return box
}

func TestScaleKeepsAspectRatio(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 100))

	m, err := Scale(img, 190)
	require.NoError(t, err)
	assert.InDelta(t, 47.5, m.Height, 1e-9)
	assert.Equal(t, 190.0, m.Width)

	w, h := m.PixelSize()
	assert.Equal(t, 400, w)
	assert.Equal(t, 100, h)
}

func TestScaleRejectsEmptyImage(t *testing.T) {
	_, err := Scale(nil, 190)
	assert.ErrorIs(t, err, ErrEmptyRender)

	_, err = Scale(image.NewRGBA(image.Rect(0, 0, 0, 10)), 190)
	assert.ErrorIs(t, err, ErrEmptyRender)
}

func TestDotsPerMM(t *testing.T) {
	assert.InDelta(t, 96/25.4, DotsPerMM(1), 1e-9)
	assert.InDelta(t, 2*96/25.4, DotsPerMM(2), 1e-9)
	assert.InDelta(t, DotsPerMM(1), DotsPerMM(0), 1e-9)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize([]layout.Run{
		{Text: "Name:", Bold: true},
		{Text: " Jane Doe\nnext"},
	})
	require.Len(t, tokens, 5)
	assert.Equal(t, "Name:", tokens[0].text)
	assert.True(t, tokens[0].bold)
	assert.Equal(t, "Jane", tokens[1].text)
	assert.True(t, tokens[1].spaceBefore)
	assert.True(t, tokens[3].hardBreak)
	assert.Equal(t, "next", tokens[4].text)
	assert.False(t, tokens[4].spaceBefore)
}

func TestWrapBreaksLongText(t *testing.T) {
	ts := &typesetter{fonts: newFontBook()}
	regular, bold, err := ts.faces(textStyle())
	require.NoError(t, err)

	text := strings.Repeat("lorem ipsum dolor ", 20)
	tokens := tokenize([]layout.Run{{Text: text}})

	wide := wrap(tokens, 1000, regular, bold)
	narrow := wrap(tokens, 40, regular, bold)
	assert.Len(t, wide, 1)
	assert.Greater(t, len(narrow), 3)

	for _, line := range narrow {
		last := line[len(line)-1]
		assert.LessOrEqual(t, last.X+last.Face.TextWidth(last.Text), 40.0+1e-6)
	}
}

func TestWrapSplitsOversizedWord(t *testing.T) {
	ts := &typesetter{fonts: newFontBook()}
	regular, bold, err := ts.faces(textStyle())
	require.NoError(t, err)

	lines := wrap(tokenize([]layout.Run{{Text: strings.Repeat("x", 80)}}), 20, regular, bold)
	require.Greater(t, len(lines), 1)

	var joined strings.Builder
	for _, l := range lines {
		for _, s := range l {
			joined.WriteString(s.Text)
		}
	}
	assert.Equal(t, strings.Repeat("x", 80), joined.String())
}

func TestLayoutBoxAddsInsets(t *testing.T) {
	ts := &typesetter{fonts: newFontBook()}

	plain, err := ts.layoutBox(itemBox("hello"), 190)
	require.NoError(t, err)

	padded := itemBox("hello")
	padded.Padding.Top, padded.Padding.Bottom = 16, 16
	padded.MarginBottom = 24
	withInsets, err := ts.layoutBox(padded, 190)
	require.NoError(t, err)

	assert.InDelta(t, plain.Height+56*PxToMm, withInsets.Height, 1e-6)
	assert.InDelta(t, withInsets.Height-24*PxToMm, withInsets.BoxHeight, 1e-6)
	assert.InDelta(t, 16*1.5*PxToMm, plain.Height, 1e-6)
}

func TestLayoutBoxNoContentWidth(t *testing.T) {
	ts := &typesetter{fonts: newFontBook()}
	box := itemBox("hello")
	box.Padding.Left, box.Padding.Right = 500, 500

	_, err := ts.layoutBox(box, 190)
	assert.ErrorIs(t, err, errNoContentWidth)
}

func TestCanvasMeasurer(t *testing.T) {
	m := NewCanvasMeasurer(1)
	ctx := context.Background()

	one, err := m.Measure(ctx, itemBox("single line"), 190)
	require.NoError(t, err)
	three, err := m.Measure(ctx, itemBox("first", "second", "third"), 190)
	require.NoError(t, err)

	assert.Greater(t, three.Height, one.Height)
	for _, got := range []Measurement{one, three} {
		w, h := got.PixelSize()
		require.Positive(t, w)
		assert.InDelta(t, float64(h)*190/float64(w), got.Height, 1e-9)
	}
}

func TestCanvasMeasurerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCanvasMeasurer(1).Measure(ctx, itemBox("x"), 190)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderUnitHTML(t *testing.T) {
	box := itemBox("<script>alert(1)</script>")
	box.Blocks[0].Bullet = true
	box.Border.Bottom = style.Border{Width: 1, Style: "solid", Color: color.RGBA{A: 0xff}}

	html, err := renderUnitHTML(box, 718.11)
	require.NoError(t, err)

	assert.Contains(t, html, "width: 718.11px")
	assert.Contains(t, html, "border-bottom: 1px solid")
	assert.Contains(t, html, "bullet")
	assert.NotContains(t, html, "<script>alert")
}

func TestCSSFamily(t *testing.T) {
	assert.Equal(t, "'Georgia', serif", cssFamily("Georgia"))
	assert.Equal(t, "'Menlo', monospace", cssFamily("Menlo"))
	assert.Equal(t, "sans-serif", cssFamily(""))
}

func TestDoublingTextDoublesHeight(t *testing.T) {
	m := NewCanvasMeasurer(2)
	paragraph := strings.Repeat("Led the migration of billing services to an event driven design. ", 12)

	single, err := m.Measure(context.Background(), itemBox(paragraph), 190)
	require.NoError(t, err)
	double, err := m.Measure(context.Background(), itemBox(paragraph+paragraph), 190)
	require.NoError(t, err)

	ratio := double.Height / single.Height
	assert.InDelta(t, 2.0, ratio, 0.35)
}
