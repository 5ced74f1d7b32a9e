package database

import (
	"encoding/json"
	"fmt"

	"resumeBuilder/internal/resume"
)

// Document 解析 Content，并用记录上的元数据补齐文档。
func (r *Resume) Document() (*resume.Document, error) {
	doc := &resume.Document{}
	if len(r.Content) > 0 {
		if err := json.Unmarshal(r.Content, doc); err != nil {
			return nil, fmt.Errorf("decode resume %d content: %w", r.ID, err)
		}
	}
	doc.Title = r.Title
	if r.TemplateID != "" {
		doc.TemplateID = r.TemplateID
	}
	if r.Language != "" {
		doc.Language = resume.ParseLanguage(r.Language)
	}
	doc.CreatedAt = r.CreatedAt
	doc.UpdatedAt = r.UpdatedAt
	return doc, nil
}

// SetDocument 写入 Content，同时同步可检索的列。
func (r *Resume) SetDocument(doc *resume.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode resume content: %w", err)
	}
	r.Content = data
	r.Title = doc.Title
	r.TemplateID = doc.TemplateID
	r.Language = string(doc.Language)
	return nil
}
