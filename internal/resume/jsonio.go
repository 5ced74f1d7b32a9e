package resume

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var documentSchema = mustCompileSchema(schemaJSON)

// ErrInvalidJSON 文件不是合法 JSON。
var ErrInvalidJSON = errors.New("invalid JSON file")

// SchemaError 导入的 JSON 不符合简历结构。
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "resume json does not match schema: " + strings.Join(e.Problems, "; ")
}

func mustCompileSchema(raw []byte) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Errorf("compile resume schema: %w", err))
	}
	return schema
}

// Encode 以缩进格式导出简历 JSON。
func Encode(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode resume: %w", err)
	}
	return data, nil
}

// Decode 校验并解析导入的简历 JSON。
func Decode(data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	result, err := documentSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate resume json: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &SchemaError{Problems: problems}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode resume: %w", err)
	}
	return &doc, nil
}

// Filename 根据标题生成下载文件名，标题为空时使用 "resume"。
func Filename(title, ext string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			continue
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	name := strings.Trim(b.String(), " .")
	if runes := []rune(name); len(runes) > 120 {
		name = strings.TrimSpace(string(runes[:120]))
	}
	if name == "" {
		name = "resume"
	}
	return name + ext
}
