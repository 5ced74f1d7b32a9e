package measure

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"resumeBuilder/internal/pdf/layout"
	"resumeBuilder/internal/style"
)

// 项目符号缩进（em）。
const bulletIndentEm = 1.5

var errNoContentWidth = errors.New("box leaves no room for content")

// frame 排版结果，坐标为盒子内的毫米值，原点在左上角。
type frame struct {
	Width     float64
	Height    float64
	BoxHeight float64 // 不含外边距
	Lines     []textLine
}

type textLine struct {
	Baseline float64
	Segments []segment
}

type segment struct {
	X    float64
	Text string
	Face *canvas.FontFace
}

type token struct {
	text        string
	bold        bool
	spaceBefore bool
	hardBreak   bool
}

// typesetter 负责贪心换行与盒模型计算。
type typesetter struct {
	fonts *fontBook
}

func (ts *typesetter) faces(st style.Text) (regular, bold *canvas.FontFace, err error) {
	family, err := ts.fonts.family(st.FontFamily)
	if err != nil {
		return nil, nil, err
	}
	sizePt := st.FontSize * PxToPt
	col := color.Color(st.Color)

	regularStyle := canvas.FontRegular
	if st.Bold() {
		regularStyle = canvas.FontBold
	}
	regular = family.Face(sizePt, col, regularStyle, canvas.FontNormal)
	bold = family.Face(sizePt, col, canvas.FontBold, canvas.FontNormal)
	return regular, bold, nil
}

// layoutBox 在给定宽度（毫米）内排版盒子。
func (ts *typesetter) layoutBox(box layout.Box, width float64) (frame, error) {
	left := (box.Border.Left.Width + box.Padding.Left) * PxToMm
	right := (box.Border.Right.Width + box.Padding.Right) * PxToMm
	contentWidth := width - left - right
	if contentWidth <= 0 {
		return frame{}, errNoContentWidth
	}

	f := frame{Width: width}
	y := (box.Border.Top.Width + box.Padding.Top) * PxToMm

	for _, block := range box.Blocks {
		regular, bold, err := ts.faces(block.Style)
		if err != nil {
			return frame{}, err
		}

		lineHeight := block.Style.FontSize * block.Style.LineHeight * PxToMm
		metrics := regular.Metrics()
		ascent, descent := metrics.Ascent, math.Abs(metrics.Descent)
		halfLeading := (lineHeight - ascent - descent) / 2

		x0 := left
		if block.Bullet {
			indent := bulletIndentEm * block.Style.FontSize * PxToMm
			f.Lines = append(f.Lines, textLine{
				Baseline: y + halfLeading + ascent,
				Segments: []segment{{X: left + indent/3, Text: "•", Face: regular}},
			})
			x0 += indent
		}

		lines := wrap(tokenize(block.Runs), contentWidth-(x0-left), regular, bold)
		if len(lines) == 0 {
			lines = [][]segment{nil}
		}
		for i, segs := range lines {
			for j := range segs {
				segs[j].X += x0
			}
			if i == 0 && block.Bullet {
				// 与项目符号共用第一行
				f.Lines[len(f.Lines)-1].Segments = append(f.Lines[len(f.Lines)-1].Segments, segs...)
			} else {
				f.Lines = append(f.Lines, textLine{Baseline: y + halfLeading + ascent, Segments: segs})
			}
			y += lineHeight
		}
		y += block.Style.MarginBottom * PxToMm
	}

	y += (box.Padding.Bottom + box.Border.Bottom.Width) * PxToMm
	f.BoxHeight = y
	f.Height = y + box.MarginBottom*PxToMm
	if f.Height <= 0 {
		return frame{}, fmt.Errorf("%s: %w", box.Unit, ErrEmptyRender)
	}
	return f, nil
}

// tokenize 将多段文字拆成词，记录词前是否有空格，"\n" 产生强制换行。
func tokenize(runs []layout.Run) []token {
	var tokens []token
	pendingSpace := false
	for _, run := range runs {
		var cur strings.Builder
		flush := func() {
			if cur.Len() > 0 {
				tokens = append(tokens, token{text: cur.String(), bold: run.Bold, spaceBefore: pendingSpace})
				cur.Reset()
				pendingSpace = false
			}
		}
		for _, r := range run.Text {
			switch {
			case r == '\n':
				flush()
				tokens = append(tokens, token{hardBreak: true})
				pendingSpace = false
			case unicode.IsSpace(r):
				flush()
				pendingSpace = true
			default:
				cur.WriteRune(r)
			}
		}
		flush()
	}
	return tokens
}

// wrap 贪心换行：能放下就追加到当前行，否则另起一行；单个词超宽时按字符拆分。
func wrap(tokens []token, width float64, regular, bold *canvas.FontFace) [][]segment {
	var (
		lines  [][]segment
		cur    []segment
		cursor float64
	)
	faceOf := func(t token) *canvas.FontFace {
		if t.bold {
			return bold
		}
		return regular
	}
	newLine := func() {
		lines = append(lines, cur)
		cur = nil
		cursor = 0
	}
	appendText := func(face *canvas.FontFace, text string, w float64) {
		if n := len(cur); n > 0 && cur[n-1].Face == face {
			cur[n-1].Text += text
		} else {
			cur = append(cur, segment{X: cursor, Text: text, Face: face})
		}
		cursor += w
	}

	for _, t := range tokens {
		if t.hardBreak {
			newLine()
			continue
		}
		face := faceOf(t)
		wordWidth := face.TextWidth(t.text)
		space := ""
		spaceWidth := 0.0
		if t.spaceBefore && len(cur) > 0 {
			space = " "
			spaceWidth = face.TextWidth(" ")
		}

		if cursor+spaceWidth+wordWidth <= width {
			appendText(face, space+t.text, spaceWidth+wordWidth)
			continue
		}
		if wordWidth <= width {
			newLine()
			appendText(face, t.text, wordWidth)
			continue
		}

		// 超长词：先换行，再按宽度切分
		if len(cur) > 0 {
			newLine()
		}
		for _, piece := range splitByWidth(t.text, width, face) {
			if len(cur) > 0 {
				newLine()
			}
			appendText(face, piece, face.TextWidth(piece))
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func splitByWidth(text string, width float64, face *canvas.FontFace) []string {
	var (
		parts []string
		cur   []rune
	)
	for _, r := range text {
		next := append(cur, r)
		if len(cur) > 0 && face.TextWidth(string(next)) > width {
			parts = append(parts, string(cur))
			cur = []rune{r}
			continue
		}
		cur = next
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
