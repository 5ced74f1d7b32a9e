package layout

import (
	"image/color"
	"strings"

	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/style"
)

// Box 单元的盒模型，长度单位为 CSS px。
type Box struct {
	Unit         Unit
	Background   color.RGBA
	Padding      style.Edges
	Border       style.Borders
	RadiusTop    float64
	RadiusBottom float64
	MarginBottom float64
	Blocks       []Block
}

// Block 一个段落；段落内的 "\n" 为强制换行。
type Block struct {
	Runs   []Run
	Style  style.Text
	Bullet bool
}

// Run 同一字体的一段文字。
type Run struct {
	Text string
	Bold bool
}

// Text 返回段落的纯文本。
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Compose 将单元组装为盒子。分区样式按单元拆分：
// 分区标题承担上内边距与上边框，最后一个条目承担下内边距、下边框与外边距，
// 所有单元共享左右内边距、左右边框与背景。
func Compose(doc *resume.Document, u Unit, set style.StyleSet) Box {
	lang := doc.Language

	if u.Kind == KindTitle {
		return Box{
			Unit:   u,
			Blocks: []Block{{Runs: []Run{{Text: doc.DisplayTitle()}}, Style: set.Title}},
		}
	}

	sec := set.Section
	box := Box{
		Unit:       u,
		Background: sec.Background,
		Padding:    style.Edges{Left: sec.Padding.Left, Right: sec.Padding.Right},
		Border:     style.Borders{Left: sec.Border.Left, Right: sec.Border.Right},
	}

	if u.Kind == KindHeading {
		box.Padding.Top = sec.Padding.Top
		box.Border.Top = sec.Border.Top
		box.RadiusTop = sec.Radius
		box.Blocks = []Block{{Runs: []Run{{Text: resume.SectionTitle(lang, u.Section)}}, Style: set.Heading}}
		return box
	}

	if u.Index == doc.EntryCount(u.Section)-1 {
		box.Padding.Bottom = sec.Padding.Bottom
		box.Border.Bottom = sec.Border.Bottom
		box.RadiusBottom = sec.Radius
		box.MarginBottom = sec.MarginBottom
	}
	box.Blocks = itemBlocks(doc, u, set.Text)
	return box
}

// ContinuesSection 报告 units[i] 之后是否紧跟同一分区的条目。
func ContinuesSection(units []Unit, i int) bool {
	if i < 0 || i+1 >= len(units) || units[i].Kind == KindTitle {
		return false
	}
	next := units[i+1]
	return next.Kind == KindItem && next.Section == units[i].Section
}

// ComposeAll 组装全部单元。同一分区内相邻单元之间的间距 gap（px）并入前一个单元的下内边距，
// 由分区背景与左右边框填充。
func ComposeAll(doc *resume.Document, units []Unit, set style.StyleSet, gap float64) []Box {
	boxes := make([]Box, len(units))
	for i, u := range units {
		boxes[i] = Compose(doc, u, set)
		if ContinuesSection(units, i) {
			boxes[i].Padding.Bottom += gap
		}
	}
	return boxes
}

func itemBlocks(doc *resume.Document, u Unit, text style.Text) []Block {
	lang := doc.Language
	var blocks []Block
	add := func(runs ...Run) {
		var nonEmpty []Run
		for _, r := range runs {
			if r.Text != "" {
				nonEmpty = append(nonEmpty, r)
			}
		}
		if len(nonEmpty) > 0 {
			blocks = append(blocks, Block{Runs: nonEmpty, Style: text})
		}
	}
	labeled := func(key resume.LabelKey, value string) {
		if value = strings.TrimSpace(value); value != "" {
			add(Run{Text: resume.Label(lang, key) + ":", Bold: true}, Run{Text: " " + value})
		}
	}
	dates := func(start, end string) {
		start, end = strings.TrimSpace(start), strings.TrimSpace(end)
		if start == "" && end == "" {
			return
		}
		if end == "" {
			end = resume.Label(lang, resume.LabelPresent)
		}
		add(Run{Text: start + " - " + end})
	}

	switch u.Section {
	case resume.SectionPersonalInfo:
		p := doc.PersonalInfo
		labeled(resume.LabelName, p.Name)
		labeled(resume.LabelEmail, p.Email)
		labeled(resume.LabelPhone, p.Phone)
		labeled(resume.LabelAddress, p.Address)
		labeled(resume.LabelWebsite, p.Website)
		labeled(resume.LabelLinkedIn, p.LinkedIn)

	case resume.SectionSummary:
		add(Run{Text: strings.TrimSpace(doc.Summary)})

	case resume.SectionEducation:
		e := doc.Education[u.Index]
		add(headline(e.Degree, resume.Label(lang, resume.LabelIn)+" ", e.Field, "")...)
		add(Run{Text: strings.TrimSpace(e.Institution)})
		dates(e.StartDate, e.EndDate)
		labeled(resume.LabelGPA, e.GPA)

	case resume.SectionExperience:
		e := doc.Experience[u.Index]
		add(headline(e.Position, resume.Label(lang, resume.LabelAt)+" ", e.Company, "")...)
		add(Run{Text: strings.TrimSpace(e.Location)})
		dates(e.StartDate, e.EndDate)
		add(Run{Text: strings.TrimSpace(e.Description)})

	case resume.SectionSkills:
		for _, skill := range doc.Skills {
			if skill = strings.TrimSpace(skill); skill != "" {
				blocks = append(blocks, Block{Runs: []Run{{Text: skill}}, Style: text, Bullet: true})
			}
		}

	case resume.SectionCertifications:
		c := doc.Certifications[u.Index]
		line := strings.TrimSpace(c.Name)
		if issuer := strings.TrimSpace(c.Issuer); issuer != "" {
			line += " - " + issuer
		}
		if date := strings.TrimSpace(c.Date); date != "" {
			line += " (" + date + ")"
		}
		add(Run{Text: strings.TrimSpace(line)})

	case resume.SectionProjects:
		p := doc.Projects[u.Index]
		add(headline(p.Name, "(", p.URL, ")")...)
		add(Run{Text: strings.TrimSpace(p.Description)})
	}

	if len(blocks) == 0 {
		// 保留一行空白，避免条目被测量为零高度
		blocks = []Block{{Style: text}}
	}
	return blocks
}

// headline 组装条目首行：加粗的主文字，后接 "前缀+补充+后缀"。
// 主文字为空时只输出补充内容本身，不留连接词。
func headline(main, prefix, detail, suffix string) []Run {
	main, detail = strings.TrimSpace(main), strings.TrimSpace(detail)
	switch {
	case detail == "":
		return []Run{{Text: main, Bold: true}}
	case main == "":
		return []Run{{Text: detail}}
	default:
		return []Run{{Text: main, Bold: true}, {Text: " " + prefix + detail + suffix}}
	}
}
