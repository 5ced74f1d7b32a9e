// Package layout 把简历拆分为原子排版单元，并为每个单元组装可渲染的盒子。
package layout

import (
	"fmt"

	"resumeBuilder/internal/resume"
)

// Kind 单元类型。
type Kind int

const (
	KindTitle Kind = iota
	KindHeading
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "Title"
	case KindHeading:
		return "SectionHeading"
	case KindItem:
		return "ContentItem"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Unit 原子排版单元：标题、分区标题或分区内的一个条目。
type Unit struct {
	Kind    Kind
	Section resume.Section
	Index   int
}

// Title 标题单元。
func Title() Unit { return Unit{Kind: KindTitle} }

// Heading 分区标题单元。
func Heading(sec resume.Section) Unit { return Unit{Kind: KindHeading, Section: sec} }

// Item 分区条目单元。
func Item(sec resume.Section, index int) Unit {
	return Unit{Kind: KindItem, Section: sec, Index: index}
}

func (u Unit) String() string {
	switch u.Kind {
	case KindHeading:
		return fmt.Sprintf("SectionHeading(%s)", u.Section)
	case KindItem:
		return fmt.Sprintf("ContentItem(%s,%d)", u.Section, u.Index)
	default:
		return u.Kind.String()
	}
}

// Sectionize 按固定分区顺序生成单元序列：
// 一个标题单元，然后每个可见且非空的分区输出一个分区标题和若干条目。
func Sectionize(doc *resume.Document, vis resume.Visibility) []Unit {
	units := []Unit{Title()}
	for _, sec := range resume.Sections() {
		if !vis.Includes(sec) {
			continue
		}
		n := doc.EntryCount(sec)
		if n == 0 {
			continue
		}
		units = append(units, Heading(sec))
		for i := 0; i < n; i++ {
			units = append(units, Item(sec, i))
		}
	}
	return units
}
