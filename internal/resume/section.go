package resume

import "strings"

// Section 简历中的一个固定分区。
type Section string

const (
	SectionPersonalInfo   Section = "personalInfo"
	SectionSummary        Section = "summary"
	SectionEducation      Section = "education"
	SectionExperience     Section = "experience"
	SectionSkills         Section = "skills"
	SectionCertifications Section = "certifications"
	SectionProjects       Section = "projects"
)

// Sections 按固定顺序返回全部分区，导出时即按此顺序排版。
func Sections() []Section {
	return []Section{
		SectionPersonalInfo,
		SectionSummary,
		SectionEducation,
		SectionExperience,
		SectionSkills,
		SectionCertifications,
		SectionProjects,
	}
}

// ParseSection 将字符串解析为分区，大小写不敏感。
func ParseSection(s string) (Section, bool) {
	s = strings.TrimSpace(s)
	for _, sec := range Sections() {
		if strings.EqualFold(string(sec), s) {
			return sec, true
		}
	}
	return "", false
}

// Visibility 分区可见性；缺省的分区视为可见。
type Visibility map[Section]bool

// DefaultVisibility 全部分区可见。
func DefaultVisibility() Visibility {
	v := make(Visibility, len(Sections()))
	for _, sec := range Sections() {
		v[sec] = true
	}
	return v
}

// Includes 判断分区是否参与渲染。
func (v Visibility) Includes(sec Section) bool {
	if v == nil {
		return true
	}
	visible, ok := v[sec]
	return !ok || visible
}

// Clone 返回副本。
func (v Visibility) Clone() Visibility {
	if v == nil {
		return nil
	}
	out := make(Visibility, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Hide 返回隐藏指定分区后的副本。
func (v Visibility) Hide(sections ...Section) Visibility {
	out := v.Clone()
	if out == nil {
		out = DefaultVisibility()
	}
	for _, sec := range sections {
		out[sec] = false
	}
	return out
}

// EntryCount 返回分区的条目数，分区数据为空时为 0。
// personalInfo/summary/skills 作为单个条目渲染。
func (d *Document) EntryCount(sec Section) int {
	switch sec {
	case SectionPersonalInfo:
		if d.PersonalInfo.IsEmpty() {
			return 0
		}
		return 1
	case SectionSummary:
		if strings.TrimSpace(d.Summary) == "" {
			return 0
		}
		return 1
	case SectionEducation:
		return len(d.Education)
	case SectionExperience:
		return len(d.Experience)
	case SectionSkills:
		if len(d.Skills) == 0 {
			return 0
		}
		return 1
	case SectionCertifications:
		return len(d.Certifications)
	case SectionProjects:
		return len(d.Projects)
	default:
		return 0
	}
}
