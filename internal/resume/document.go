package resume

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// 富文本编辑器粘贴的内容可能带标签，渲染时按纯文本绘制。
var markupPolicy = bluemonday.StrictPolicy()

// stripMarkup 去掉 HTML 标签，保留实体解码后的文字。
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(markupPolicy.Sanitize(s)))
}

// Document 表示一份完整的简历，同时也是 Resume.Content(JSONB) 中存储的结构。
type Document struct {
	Title          string          `json:"title"`
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Summary        string          `json:"summary"`
	Education      []Education     `json:"education"`
	Experience     []Experience    `json:"experience"`
	Skills         []string        `json:"skills"`
	Certifications []Certification `json:"certifications"`
	Projects       []Project       `json:"projects"`
	TemplateID     string          `json:"templateId"`
	Visibility     Visibility      `json:"visibility"`
	Language       Language        `json:"language"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// PersonalInfo 个人信息，name 与 email 为必填。
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Website  string `json:"website"`
	LinkedIn string `json:"linkedin"`
}

// IsEmpty 所有字段均为空白时返回 true。
func (p PersonalInfo) IsEmpty() bool {
	return allBlank(p.Name, p.Email, p.Phone, p.Address, p.Website, p.LinkedIn)
}

// Education 教育经历，EndDate 为空表示至今。
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa"`
}

// Experience 工作经历，EndDate 为空表示至今。
type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Certification 证书。
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

// Project 项目经历。
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// New 返回带默认模板、默认语言与全量可见性的空白简历。
func New(now time.Time) *Document {
	return &Document{
		TemplateID: DefaultTemplateID,
		Language:   English,
		Visibility: DefaultVisibility(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// DefaultTemplateID 未知模板统一回落到该值。
const DefaultTemplateID = "default"

// Normalize 去除空白条目并补齐默认值，保存前调用。
func (d *Document) Normalize() {
	d.Title = strings.TrimSpace(stripMarkup(d.Title))
	d.Summary = stripMarkup(d.Summary)
	for i := range d.Experience {
		d.Experience[i].Description = stripMarkup(d.Experience[i].Description)
	}
	for i := range d.Projects {
		d.Projects[i].Description = stripMarkup(d.Projects[i].Description)
	}
	if strings.TrimSpace(d.TemplateID) == "" {
		d.TemplateID = DefaultTemplateID
	}
	d.Language = ParseLanguage(string(d.Language))

	d.Education = filter(d.Education, func(e Education) bool {
		return !allBlank(e.Institution, e.Degree, e.Field, e.StartDate, e.EndDate, e.GPA)
	})
	d.Experience = filter(d.Experience, func(e Experience) bool {
		return !allBlank(e.Company, e.Position, e.Location, e.StartDate, e.EndDate, e.Description)
	})
	d.Certifications = filter(d.Certifications, func(c Certification) bool {
		return !allBlank(c.Name, c.Issuer, c.Date)
	})
	d.Projects = filter(d.Projects, func(p Project) bool {
		return !allBlank(p.Name, p.Description, p.URL)
	})

	skills := make([]string, 0, len(d.Skills))
	for _, s := range d.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	d.Skills = skills
}

// Duplicate 复制一份简历，标题追加 "(Copy)"，时间戳重置。
func (d *Document) Duplicate(now time.Time) *Document {
	cp := *d
	cp.Education = append([]Education(nil), d.Education...)
	cp.Experience = append([]Experience(nil), d.Experience...)
	cp.Skills = append([]string(nil), d.Skills...)
	cp.Certifications = append([]Certification(nil), d.Certifications...)
	cp.Projects = append([]Project(nil), d.Projects...)
	cp.Visibility = d.Visibility.Clone()

	title := d.Title
	if strings.TrimSpace(title) == "" {
		title = Label(d.Language, LabelUntitled)
	}
	cp.Title = title + " (Copy)"
	cp.CreatedAt = now
	cp.UpdatedAt = now
	return &cp
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func allBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
