package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 导出状态。
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username           string   `gorm:"uniqueIndex;size:64"`
	PasswordHash       string   `gorm:"size:255"`
	MustChangePassword bool     `gorm:"default:false"`
	ActiveResumeID     *uint    `gorm:"index"`
	Resumes            []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户创建的简历，Content 为完整的 resume.Document JSON。
type Resume struct {
	gorm.Model
	Title            string         `gorm:"size:255;index"`
	TemplateID       string         `gorm:"size:64;default:default"`
	Language         string         `gorm:"size:8;default:en"`
	Content          datatypes.JSON `gorm:"type:jsonb"`
	UserID           uint           `gorm:"index"`
	PdfUrl           string         `gorm:"size:512"`
	PreviewObjectKey string         `gorm:"size:512"`
	PreviewImageURL  string         `gorm:"size:1024"`
	PageCount        int
	Status           string `gorm:"size:32"`
}
