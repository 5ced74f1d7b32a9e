package resume

import "strings"

// Language 控制标签翻译，不影响内容。
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// ParseLanguage 未知语言回落到英文。
func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Vietnamese:
		return Vietnamese
	default:
		return English
	}
}

// LabelKey 标签键。
type LabelKey string

const (
	LabelUntitled LabelKey = "untitled"
	LabelName     LabelKey = "name"
	LabelEmail    LabelKey = "email"
	LabelPhone    LabelKey = "phone"
	LabelAddress  LabelKey = "address"
	LabelWebsite  LabelKey = "website"
	LabelLinkedIn LabelKey = "linkedin"
	LabelPresent  LabelKey = "present"
	LabelIn       LabelKey = "in"
	LabelAt       LabelKey = "at"
	LabelGPA      LabelKey = "gpa"
)

var labels = map[Language]map[LabelKey]string{
	English: {
		LabelUntitled: "Untitled Resume",
		LabelName:     "Name",
		LabelEmail:    "Email",
		LabelPhone:    "Phone",
		LabelAddress:  "Address",
		LabelWebsite:  "Website",
		LabelLinkedIn: "LinkedIn",
		LabelPresent:  "Present",
		LabelIn:       "in",
		LabelAt:       "at",
		LabelGPA:      "GPA",
	},
	Vietnamese: {
		LabelUntitled: "Hồ Sơ Chưa Đặt Tên",
		LabelName:     "Họ và Tên",
		LabelEmail:    "Email",
		LabelPhone:    "Điện Thoại",
		LabelAddress:  "Địa Chỉ",
		LabelWebsite:  "Website",
		LabelLinkedIn: "LinkedIn",
		LabelPresent:  "Hiện tại",
		LabelIn:       "ngành",
		LabelAt:       "tại",
		LabelGPA:      "GPA",
	},
}

var sectionTitles = map[Language]map[Section]string{
	English: {
		SectionPersonalInfo:   "Personal Information",
		SectionSummary:        "Professional Summary",
		SectionEducation:      "Education",
		SectionExperience:     "Experience",
		SectionSkills:         "Skills",
		SectionCertifications: "Certifications",
		SectionProjects:       "Projects",
	},
	Vietnamese: {
		SectionPersonalInfo:   "Thông Tin Cá Nhân",
		SectionSummary:        "Tóm Tắt Chuyên Môn",
		SectionEducation:      "Học Vấn",
		SectionExperience:     "Kinh Nghiệm",
		SectionSkills:         "Kỹ Năng",
		SectionCertifications: "Chứng Chỉ",
		SectionProjects:       "Dự Án",
	},
}

// Label 返回指定语言下的标签文本，缺失时回落到英文。
func Label(lang Language, key LabelKey) string {
	if v, ok := labels[ParseLanguage(string(lang))][key]; ok {
		return v
	}
	return labels[English][key]
}

// SectionTitle 返回分区标题。
func SectionTitle(lang Language, sec Section) string {
	if v, ok := sectionTitles[ParseLanguage(string(lang))][sec]; ok {
		return v
	}
	return sectionTitles[English][sec]
}

// DisplayTitle 返回简历标题，为空时使用占位标题。
func (d *Document) DisplayTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return Label(d.Language, LabelUntitled)
}
